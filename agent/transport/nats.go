// Package transport serves turns as NATS request/reply.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/pkg/errx"
)

type Config struct {
	URL            string        `split_words:"true"`
	Name           string        `split_words:"true" default:"chative-router"`
	Subject        string        `split_words:"true" default:"chative.router.turn"`
	Queue          string        `split_words:"true" default:"chative-router"`
	Timeout        time.Duration `split_words:"true" default:"10s"`
	RequestTimeout time.Duration `split_words:"true" default:"90s"`
}

func (c Config) Enabled() bool { return c.URL != "" }

// TurnProcessor handles one user message.
type TurnProcessor interface {
	Process(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error)
}

type NATSTransport struct {
	conn  *nats.Conn
	sub   *nats.Subscription
	cfg   Config
	turns TurnProcessor
}

func NewNATSTransport(cfg Config, turns TurnProcessor) (*NATSTransport, error) {
	if turns == nil {
		return nil, errors.New("turn processor is required")
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", conn.ConnectedUrlRedacted()).Msg("connected to NATS")

	return &NATSTransport{conn: conn, cfg: cfg, turns: turns}, nil
}

// Start joins the queue group on the turn subject.
func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.cfg.Subject, nt.cfg.Queue, nt.handleTurn)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.cfg.Subject, err)
	}
	nt.sub = sub
	log.Info().Str("subject", nt.cfg.Subject).Str("queue", nt.cfg.Queue).Msg("subscribed")
	return nil
}

func (nt *NATSTransport) handleTurn(msg *nats.Msg) {
	ctx := context.Background()
	if nt.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nt.cfg.RequestTimeout)
		defer cancel()
	}

	resp := HandleTurn(ctx, nt.turns, msg.Data)
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to send response")
	}
}

// HandleTurn decodes a chat request, runs the turn and renders the reply.
// Failures are rendered as an error response rather than dropped.
func HandleTurn(ctx context.Context, turns TurnProcessor, data []byte) contractx.ChatResponse {
	var req contractx.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(fmt.Errorf("%w: invalid request: %v", contractx.ErrValidation, err))
	}
	turn, err := req.TurnRequest()
	if err != nil {
		return errorResponse(err)
	}

	res, err := turns.Process(ctx, turn)
	if err != nil {
		return errorResponse(err)
	}
	log.Info().Str("session_id", res.SessionID).Str("status", res.Status).Msg("turn handled over NATS")
	return contractx.NewChatResponse(res)
}

func errorResponse(err error) contractx.ChatResponse {
	app := errx.FromError(err)
	log.Warn().Err(err).Int("status", app.Status).Msg("turn request failed")
	return contractx.ChatResponse{
		OK:      false,
		Action:  "error",
		Message: app.Message,
		Data:    map[string]any{"status": app.Status},
	}
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Drain(); err != nil {
			log.Warn().Err(err).Msg("NATS subscription drain failed")
		}
	}
	if nt.conn != nil {
		nt.conn.Close()
		log.Info().Msg("NATS connection closed")
	}
	return nil
}
