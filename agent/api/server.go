// Package api serves the shopping router over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// TurnProcessor handles one user message.
type TurnProcessor interface {
	Process(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error)
}

// EpisodeWriter stores a memory episode delivered by the queue callback.
type EpisodeWriter interface {
	AddEpisode(ctx context.Context, ep contractx.Episode) error
}

// SignatureVerifier checks a signed queue delivery.
type SignatureVerifier interface {
	Verify(signature string, body []byte, callbackURL string) error
}

type Server struct {
	cfg     Config
	turns   TurnProcessor
	limiter *RateLimiter

	episodes    EpisodeWriter
	verifier    SignatureVerifier
	callbackURL string
}

type Option func(*Server)

// WithEpisodeCallback enables POST /v1/memory/episodes.
func WithEpisodeCallback(writer EpisodeWriter, verifier SignatureVerifier, callbackURL string) Option {
	return func(s *Server) {
		s.episodes = writer
		s.verifier = verifier
		s.callbackURL = callbackURL
	}
}

func NewServer(cfg Config, turns TurnProcessor, opts ...Option) (*Server, error) {
	if turns == nil {
		return nil, errors.New("turn processor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, turns: turns}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, max(cfg.RateLimitBurst, 1))
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	if s.episodes != nil && s.verifier != nil {
		mux.HandleFunc("POST /v1/memory/episodes", s.handleEpisode)
	}

	mws := []middleware{
		requestID,
		accessLog,
		securityHeaders(s.cfg.Production()),
		cors(s.cfg.AllowedOrigins),
	}
	if s.limiter != nil {
		mws = append(mws, s.limiter.Middleware)
	}
	return chain(mux, mws...)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}
