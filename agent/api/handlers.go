package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/pkg/errx"
)

const (
	headerUpstashSignature = "Upstash-Signature"
	actionError            = "error"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req contractx.ChatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	turn, err := req.TurnRequest()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := s.turns.Process(ctx, turn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractx.NewChatResponse(res))
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody()))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: read body: %v", contractx.ErrValidation, err))
		return
	}
	if err := s.verifier.Verify(r.Header.Get(headerUpstashSignature), body, s.callbackURL); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("rejected memory callback")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var ep contractx.Episode
	if err := json.Unmarshal(body, &ep); err != nil {
		s.fail(w, r, fmt.Errorf("%w: episode: %v", contractx.ErrValidation, err))
		return
	}
	if err := s.episodes.AddEpisode(r.Context(), ep); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "episode": ep.Name})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody()))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errx.New(err, http.StatusRequestEntityTooLarge, "request body too large")
		}
		return fmt.Errorf("%w: invalid JSON body: %v", contractx.ErrValidation, err)
	}
	return nil
}

func (s *Server) maxBody() int64 {
	if s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return 1 << 16
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	app := errx.FromError(err)
	ev := log.Ctx(r.Context()).Warn()
	if app.Status >= http.StatusInternalServerError {
		ev = log.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", app.Status).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, app.Status, app.Message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, contractx.ChatResponse{
		OK:      false,
		Action:  actionError,
		Message: message,
		Data:    map[string]any{},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
