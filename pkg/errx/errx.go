// Package errx carries an HTTP status and a safe user-facing message alongside an internal error.
package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

const (
	SystemErrorMessage   = "internal server error"
	RedisErrorMessage    = "redis operation failed"
	RedisNotFoundMessage = "redis key not found"
	TurnFailedMessage    = "Sorry, something went wrong while handling your request."
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(err error, status int, message string) *AppError {
	return &AppError{Err: err, Status: status, Message: message}
}

// WrapRedis maps go-redis failures; redis.Nil becomes a not-found error.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// FromError classifies an error returned by a turn into an AppError.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return New(err, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, contractx.ErrParse), errors.Is(err, contractx.ErrTransport), errors.Is(err, contractx.ErrModelInvoke):
		return New(err, http.StatusBadGateway, TurnFailedMessage)
	default:
		return New(err, http.StatusInternalServerError, SystemErrorMessage)
	}
}

const maxValidationMessage = 200

// validationMessage caps the message at maxValidationMessage runes.
func validationMessage(err error) string {
	msg := []rune(err.Error())
	if len(msg) > maxValidationMessage {
		msg = msg[:maxValidationMessage]
	}
	return string(msg)
}

// Status returns the HTTP status for err. A nil error maps to 200.
func Status(err error) int {
	if app := FromError(err); app != nil {
		return app.Status
	}
	return http.StatusOK
}
