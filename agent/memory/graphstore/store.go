// Package graphstore keeps the temporal knowledge graph in Postgres through bun.
package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
)

const (
	defaultLimit  = 10
	semanticPool  = 200
	lexicalFactor = 2
)

type Store struct {
	db        *bun.DB
	extractor Extractor
	embedder  Embedder
	now       func() time.Time
	newID     func() string
}

type Option func(*Store)

func WithEmbedder(e Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *bun.DB, extractor Extractor, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("graphstore: db is required")
	}
	if extractor == nil {
		return nil, errors.New("graphstore: extractor is required")
	}
	s := &Store{
		db:        db,
		extractor: extractor,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the graph tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range []any{(*episodeModel)(nil), (*nodeModel)(nil), (*edgeModel)(nil)} {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("graphstore: create table: %w", err)
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*edgeModel)(nil)).
		Index("memory_edges_source_idx").
		IfNotExists().
		Column("group_id", "source_uuid", "name").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("graphstore: create index: %w", err)
	}
	return nil
}

// AddEpisode extracts facts from ep and writes them in one transaction.
// Entities and facts outside the episode's ontology are dropped. An exclusive
// edge invalidates the source's previous edge of the same name.
func (s *Store) AddEpisode(ctx context.Context, ep contractx.Episode) error {
	if strings.TrimSpace(ep.Content) == "" {
		return fmt.Errorf("%w: episode content is empty", contractx.ErrValidation)
	}

	extraction, err := s.extractor.Extract(ctx, ep)
	if err != nil {
		return err
	}
	entities, facts := filterExtraction(ep, extraction)

	factVectors, entityVectors := s.embedExtraction(ctx, entities, facts)
	now := s.now().UTC()
	validAt := ep.ReferenceTime
	if validAt.IsZero() {
		validAt = now
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		episode := &episodeModel{
			UUID:          s.newID(),
			GroupID:       ep.GroupID,
			Name:          ep.Name,
			Content:       ep.Content,
			Description:   ep.Description,
			ReferenceTime: validAt,
			CreatedAt:     now,
		}
		if _, err := tx.NewInsert().Model(episode).Exec(ctx); err != nil {
			return fmt.Errorf("graphstore: insert episode: %w", err)
		}

		ids := make(map[string]string, len(entities))
		for i, ent := range entities {
			id, err := s.upsertNode(ctx, tx, ep.GroupID, ent, entityVectors[i], now)
			if err != nil {
				return err
			}
			ids[entityKey(ent.Name)] = id
		}

		for i, f := range facts {
			edge := &edgeModel{
				UUID:        s.newID(),
				GroupID:     ep.GroupID,
				Name:        f.Name,
				Fact:        f.Fact,
				SourceUUID:  ids[entityKey(f.Source)],
				TargetUUID:  ids[entityKey(f.Target)],
				EpisodeUUID: episode.UUID,
				ValidAt:     validAt,
				Embedding:   factVectors[i],
				CreatedAt:   now,
			}
			if err := s.insertEdge(ctx, tx, edge); err != nil {
				return err
			}
		}

		log.Debug().
			Str("group_id", ep.GroupID).
			Int("entities", len(entities)).
			Int("facts", len(facts)).
			Msg("memory episode written")
		return nil
	})
}

func (s *Store) upsertNode(ctx context.Context, tx bun.Tx, groupID string, ent Entity, vec []float64, now time.Time) (string, error) {
	var existing nodeModel
	err := tx.NewSelect().
		Model(&existing).
		Column("uuid").
		Where("group_id = ?", groupID).
		Where("lower(name) = ?", entityKey(ent.Name)).
		Where("type = ?", ent.Type).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return existing.UUID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("graphstore: find node: %w", err)
	}

	node := &nodeModel{
		UUID:      s.newID(),
		GroupID:   groupID,
		Name:      strings.TrimSpace(ent.Name),
		Type:      ent.Type,
		Summary:   ent.Summary,
		Embedding: vec,
		CreatedAt: now,
	}
	if _, err := tx.NewInsert().Model(node).Exec(ctx); err != nil {
		return "", fmt.Errorf("graphstore: insert node: %w", err)
	}
	return node.UUID, nil
}

func (s *Store) insertEdge(ctx context.Context, tx bun.Tx, edge *edgeModel) error {
	if memory.IsExclusive(edge.Name) {
		_, err := tx.NewUpdate().
			Model((*edgeModel)(nil)).
			Set("invalid_at = ?", edge.ValidAt).
			Where("group_id = ?", edge.GroupID).
			Where("source_uuid = ?", edge.SourceUUID).
			Where("name = ?", edge.Name).
			Where("invalid_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("graphstore: invalidate %s: %w", edge.Name, err)
		}
	} else {
		exists, err := tx.NewSelect().
			Model((*edgeModel)(nil)).
			Where("group_id = ?", edge.GroupID).
			Where("source_uuid = ?", edge.SourceUUID).
			Where("target_uuid = ?", edge.TargetUUID).
			Where("name = ?", edge.Name).
			Where("invalid_at IS NULL").
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("graphstore: find edge: %w", err)
		}
		if exists {
			return nil
		}
	}

	if _, err := tx.NewInsert().Model(edge).Exec(ctx); err != nil {
		return fmt.Errorf("graphstore: insert edge: %w", err)
	}
	return nil
}

func (s *Store) embedExtraction(ctx context.Context, entities []Entity, facts []Fact) ([][]float64, [][]float64) {
	factVectors := make([][]float64, len(facts))
	entityVectors := make([][]float64, len(entities))
	if s.embedder == nil || len(facts)+len(entities) == 0 {
		return factVectors, entityVectors
	}

	texts := make([]string, 0, len(facts)+len(entities))
	for _, f := range facts {
		texts = append(texts, f.Fact)
	}
	for _, e := range entities {
		texts = append(texts, strings.TrimSpace(e.Name+" "+e.Summary))
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		log.Warn().Err(err).Msg("memory embedding skipped")
		return factVectors, entityVectors
	}
	copy(factVectors, vectors[:len(facts)])
	copy(entityVectors, vectors[len(facts):])
	return factVectors, entityVectors
}

// SearchEdges ranks valid edges by fused lexical and semantic relevance.
// Edges touching CenterNodeUUID are boosted.
func (s *Store) SearchEdges(ctx context.Context, q contractx.EdgeQuery) ([]contractx.Edge, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var lexical []edgeModel
	sel := s.db.NewSelect().
		Model(&lexical).
		Where("group_id = ?", q.GroupID).
		Where("invalid_at IS NULL")
	if terms := searchTerms(q.Query); len(terms) > 0 {
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, t := range terms {
				sq = sq.WhereOr("fact ILIKE ?", likePattern(t)).WhereOr("name ILIKE ?", likePattern(t))
			}
			return sq
		})
	}
	if err := sel.OrderExpr("valid_at DESC").Limit(limit * lexicalFactor).Scan(ctx); err != nil {
		return nil, fmt.Errorf("graphstore: search edges: %w", err)
	}

	semantic, err := s.semanticEdges(ctx, q, limit*lexicalFactor)
	if err != nil {
		log.Warn().Err(err).Str("group_id", q.GroupID).Msg("semantic edge search skipped")
	}

	byID := map[string]edgeModel{}
	lexIDs := make([]string, 0, len(lexical))
	for _, e := range lexical {
		byID[e.UUID] = e
		lexIDs = append(lexIDs, e.UUID)
	}
	semIDs := make([]string, 0, len(semantic))
	for _, e := range semantic {
		byID[e.UUID] = e
		semIDs = append(semIDs, e.UUID)
	}

	var boost func(string) float64
	if q.CenterNodeUUID != "" {
		boost = func(id string) float64 {
			e := byID[id]
			if e.SourceUUID == q.CenterNodeUUID || e.TargetUUID == q.CenterNodeUUID {
				return centerBoost
			}
			return 0
		}
	}

	ranked := fuse(boost, lexIDs, semIDs)
	out := make([]contractx.Edge, 0, min(limit, len(ranked)))
	for _, id := range ranked[:min(limit, len(ranked))] {
		out = append(out, byID[id].toEdge())
	}
	return out, nil
}

func (s *Store) semanticEdges(ctx context.Context, q contractx.EdgeQuery, n int) ([]edgeModel, error) {
	vec, err := s.embedQuery(ctx, q.Query)
	if err != nil || vec == nil {
		return nil, err
	}
	var pool []edgeModel
	err = s.db.NewSelect().
		Model(&pool).
		Where("group_id = ?", q.GroupID).
		Where("invalid_at IS NULL").
		Where("embedding IS NOT NULL").
		OrderExpr("valid_at DESC").
		Limit(semanticPool).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return topBySimilarity(pool, vec, n, func(e edgeModel) []float64 { return e.Embedding }), nil
}

// SearchNodes ranks nodes by fused lexical and semantic relevance.
func (s *Store) SearchNodes(ctx context.Context, q contractx.NodeQuery) ([]contractx.Node, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var lexical []nodeModel
	sel := s.db.NewSelect().Model(&lexical).Where("group_id = ?", q.GroupID)
	if terms := searchTerms(q.Query); len(terms) > 0 {
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, t := range terms {
				sq = sq.WhereOr("name ILIKE ?", likePattern(t)).WhereOr("summary ILIKE ?", likePattern(t))
			}
			return sq
		})
	}
	if err := sel.OrderExpr("created_at DESC").Limit(limit * lexicalFactor).Scan(ctx); err != nil {
		return nil, fmt.Errorf("graphstore: search nodes: %w", err)
	}

	var semantic []nodeModel
	if vec, err := s.embedQuery(ctx, q.Query); err != nil {
		log.Warn().Err(err).Str("group_id", q.GroupID).Msg("semantic node search skipped")
	} else if vec != nil {
		var pool []nodeModel
		err := s.db.NewSelect().
			Model(&pool).
			Where("group_id = ?", q.GroupID).
			Where("embedding IS NOT NULL").
			OrderExpr("created_at DESC").
			Limit(semanticPool).
			Scan(ctx)
		if err != nil {
			log.Warn().Err(err).Str("group_id", q.GroupID).Msg("semantic node search skipped")
		} else {
			semantic = topBySimilarity(pool, vec, limit*lexicalFactor, func(n nodeModel) []float64 { return n.Embedding })
		}
	}

	byID := map[string]nodeModel{}
	lexIDs := make([]string, 0, len(lexical))
	for _, n := range lexical {
		byID[n.UUID] = n
		lexIDs = append(lexIDs, n.UUID)
	}
	semIDs := make([]string, 0, len(semantic))
	for _, n := range semantic {
		byID[n.UUID] = n
		semIDs = append(semIDs, n.UUID)
	}

	ranked := fuse(nil, lexIDs, semIDs)
	out := make([]contractx.Node, 0, min(limit, len(ranked)))
	for _, id := range ranked[:min(limit, len(ranked))] {
		out = append(out, byID[id].toNode())
	}
	return out, nil
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float64, error) {
	if s.embedder == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, nil
	}
	return vectors[0], nil
}

func topBySimilarity[T any](pool []T, query []float64, n int, vector func(T) []float64) []T {
	type scored struct {
		item  T
		score float64
	}
	ranked := make([]scored, 0, len(pool))
	for _, item := range pool {
		if score := cosine(query, vector(item)); score > 0 {
			ranked = append(ranked, scored{item: item, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]T, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.item)
	}
	return out
}

func entityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// filterExtraction keeps entities of known types and facts whose endpoints
// exist and whose edge is allowed between their types.
func filterExtraction(ep contractx.Episode, x Extraction) ([]Entity, []Fact) {
	entityTypes, edgeTypes, edgeMap := ontologyOf(ep)

	types := map[string]string{}
	entities := make([]Entity, 0, len(x.Entities))
	for _, e := range x.Entities {
		key := entityKey(e.Name)
		if key == "" || !slices.Contains(entityTypes, e.Type) {
			continue
		}
		if _, dup := types[key]; dup {
			continue
		}
		types[key] = e.Type
		entities = append(entities, e)
	}

	facts := make([]Fact, 0, len(x.Facts))
	for _, f := range x.Facts {
		srcType, okSrc := types[entityKey(f.Source)]
		tgtType, okTgt := types[entityKey(f.Target)]
		if !okSrc || !okTgt || !slices.Contains(edgeTypes, f.Name) {
			continue
		}
		if !slices.Contains(edgeMap[srcType+"|"+tgtType], f.Name) {
			continue
		}
		if strings.TrimSpace(f.Fact) == "" {
			f.Fact = f.Source + " " + f.Name + " " + f.Target
		}
		facts = append(facts, f)
	}
	return entities, facts
}
