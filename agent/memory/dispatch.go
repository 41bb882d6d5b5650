package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

var ErrDispatcherBusy = errors.New("memory dispatcher is at capacity")

// InProcessDispatcher ingests episodes on background goroutines, at most
// Concurrency at a time. Dispatch never blocks on ingestion.
type InProcessDispatcher struct {
	graph   contractx.GraphMemory
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewInProcessDispatcher(graph contractx.GraphMemory, concurrency int64, timeout time.Duration) *InProcessDispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InProcessDispatcher{graph: graph, sem: semaphore.NewWeighted(concurrency), timeout: timeout}
}

func (d *InProcessDispatcher) Dispatch(_ context.Context, ep contractx.Episode) error {
	if !d.sem.TryAcquire(1) {
		return ErrDispatcherBusy
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		// The request context is already gone by the time ingestion runs.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		start := time.Now()
		if err := d.graph.AddEpisode(ctx, ep); err != nil {
			log.Error().Err(err).Str("group_id", ep.GroupID).Str("episode", ep.Name).Msg("memory ingestion failed")
			return
		}
		log.Debug().Str("group_id", ep.GroupID).Str("episode", ep.Name).Dur("took", time.Since(start)).Msg("memory episode stored")
	}()
	return nil
}

// Wait blocks until every dispatched episode has been ingested.
func (d *InProcessDispatcher) Wait() {
	d.wg.Wait()
}

// Publisher delivers a message body to a callback destination.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte) (string, error)
}

// QStashDispatcher defers ingestion to a signed callback on /v1/memory/episodes.
type QStashDispatcher struct {
	publisher   Publisher
	callbackURL string
}

func NewQStashDispatcher(publisher Publisher, callbackURL string) *QStashDispatcher {
	return &QStashDispatcher{publisher: publisher, callbackURL: callbackURL}
}

func (d *QStashDispatcher) Dispatch(ctx context.Context, ep contractx.Episode) error {
	body, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("memory: encode episode: %w", err)
	}
	id, err := d.publisher.Publish(ctx, d.callbackURL, body)
	if err != nil {
		return fmt.Errorf("%w: publish episode: %v", contractx.ErrTransport, err)
	}
	log.Debug().Str("group_id", ep.GroupID).Str("message_id", id).Msg("memory episode queued")
	return nil
}

type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(context.Context, contractx.Episode) error { return nil }

// NewDispatcher picks the dispatcher for cfg.Mode.
func NewDispatcher(cfg Config, graph contractx.GraphMemory, publisher Publisher) (contractx.EpisodeDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeInProcess:
		if graph == nil {
			return nil, errors.New("memory: in-process mode needs a graph store")
		}
		return NewInProcessDispatcher(graph, cfg.Concurrency, cfg.Timeout), nil
	case ModeQStash:
		if publisher == nil {
			return nil, errors.New("memory: qstash mode needs a publisher")
		}
		return NewQStashDispatcher(publisher, cfg.CallbackURL), nil
	default:
		return NoopDispatcher{}, nil
	}
}
