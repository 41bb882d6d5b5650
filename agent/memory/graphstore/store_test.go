package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
)

type stubExtractor struct {
	out Extraction
	err error
}

func (s stubExtractor) Extract(context.Context, contractx.Episode) (Extraction, error) {
	return s.out, s.err
}

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, float64(i)}
	}
	return out, nil
}

func newMockStore(t *testing.T, x Extractor, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(db, x, opts...)
	require.NoError(t, err)

	var n int
	store.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func testEpisode() contractx.Episode {
	return contractx.Episode{
		Name:          "turn-1",
		GroupID:       "sc:main:session:s1",
		Content:       "user: show me SW100\naction[1]: product_detail (productNumber=SW100)",
		ReferenceTime: time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
		EntityTypes:   memory.EntityTypes(),
		EdgeTypes:     memory.EdgeTypes(),
		EdgeTypeMap:   memory.EdgeTypeMap(),
	}
}

func TestAddEpisodeWritesFilteredGraph(t *testing.T) {
	extraction := Extraction{
		Entities: []Entity{
			{Name: "user", Type: memory.EntityUser},
			{Name: "SW100", Type: memory.EntityProduct, Summary: "Trail runner"},
			{Name: "red", Type: "Color"},
		},
		Facts: []Fact{
			{Source: "user", Target: "SW100", Name: memory.EdgeLastViewedProduct, Fact: "user viewed SW100"},
			{Source: "user", Target: "SW100", Name: memory.EdgeHasInCart, Fact: "user has SW100 in cart"},
			{Source: "SW100", Target: "user", Name: memory.EdgeWants, Fact: "not allowed"},
			{Source: "user", Target: "ghost", Name: memory.EdgeWants, Fact: "unknown target"},
		},
	}
	store, mock := newMockStore(t, stubExtractor{out: extraction})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "memory_episodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .*"uuid" FROM "memory_nodes"`).
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow("user-node"))
	mock.ExpectQuery(`SELECT .*"uuid" FROM "memory_nodes"`).
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}))
	mock.ExpectExec(`INSERT INTO "memory_nodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "memory_edges".*invalid_at = .*'LAST_VIEWED_PRODUCT'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "memory_edges".*'LAST_VIEWED_PRODUCT'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT .* FROM "memory_edges"`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO "memory_edges".*'HAS_IN_CART'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.AddEpisode(context.Background(), testEpisode())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEpisodeSkipsDuplicateEdge(t *testing.T) {
	extraction := Extraction{
		Entities: []Entity{{Name: "user", Type: memory.EntityUser}, {Name: "SW100", Type: memory.EntityProduct}},
		Facts:    []Fact{{Source: "user", Target: "SW100", Name: memory.EdgeWants}},
	}
	store, mock := newMockStore(t, stubExtractor{out: extraction})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "memory_episodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "memory_nodes"`).WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow("u"))
	mock.ExpectQuery(`FROM "memory_nodes"`).WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow("p"))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	require.NoError(t, store.AddEpisode(context.Background(), testEpisode()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEpisodeRollsBackOnFailure(t *testing.T) {
	extraction := Extraction{Entities: []Entity{{Name: "user", Type: memory.EntityUser}}}
	store, mock := newMockStore(t, stubExtractor{out: extraction})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "memory_episodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "memory_nodes"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.AddEpisode(context.Background(), testEpisode())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find node")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEpisodeExtractionFailureWritesNothing(t *testing.T) {
	store, mock := newMockStore(t, stubExtractor{err: contractx.ErrParse})

	err := store.AddEpisode(context.Background(), testEpisode())
	assert.ErrorIs(t, err, contractx.ErrParse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEpisodeRejectsEmptyContent(t *testing.T) {
	store, _ := newMockStore(t, stubExtractor{})

	err := store.AddEpisode(context.Background(), contractx.Episode{GroupID: "g"})
	assert.ErrorIs(t, err, contractx.ErrValidation)
}

func TestAddEpisodeEmbedsFactsAndEntitiesOnce(t *testing.T) {
	embedder := &stubEmbedder{}
	extraction := Extraction{
		Entities: []Entity{{Name: "user", Type: memory.EntityUser}, {Name: "SW100", Type: memory.EntityProduct}},
		Facts:    []Fact{{Source: "user", Target: "SW100", Name: memory.EdgeLastViewedProduct, Fact: "viewed"}},
	}
	store, mock := newMockStore(t, stubExtractor{out: extraction}, WithEmbedder(embedder))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "memory_episodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "memory_nodes"`).WillReturnRows(sqlmock.NewRows([]string{"uuid"}))
	mock.ExpectExec(`INSERT INTO "memory_nodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "memory_nodes"`).WillReturnRows(sqlmock.NewRows([]string{"uuid"}))
	mock.ExpectExec(`INSERT INTO "memory_nodes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "memory_edges"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "memory_edges"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.AddEpisode(context.Background(), testEpisode()))
	assert.Equal(t, 1, embedder.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var edgeColumns = []string{"uuid", "group_id", "name", "fact", "source_uuid", "target_uuid", "episode_uuid", "valid_at", "invalid_at"}

func TestSearchEdgesBoostsCenterNode(t *testing.T) {
	store, mock := newMockStore(t, stubExtractor{})
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM "memory_edges" AS "e" WHERE .*group_id = 'g'.*invalid_at IS NULL.*fact ILIKE '%shoes%'.*ORDER BY valid_at DESC LIMIT 4`).
		WillReturnRows(sqlmock.NewRows(edgeColumns).
			AddRow("e1", "g", "WANTS", "user wants shoes", "user", "p1", "ep", at, nil).
			AddRow("e2", "g", "MENTIONS", "shoes were mentioned", "intent", "center", "ep", at, nil))

	edges, err := store.SearchEdges(context.Background(), contractx.EdgeQuery{GroupID: "g", Query: "shoes", Limit: 2, CenterNodeUUID: "center"})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e2", edges[0].UUID)
	assert.Equal(t, "e1", edges[1].UUID)
	assert.Equal(t, "user wants shoes", edges[1].Fact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEdgesPropagatesQueryError(t *testing.T) {
	store, mock := newMockStore(t, stubExtractor{})
	mock.ExpectQuery(`FROM "memory_edges"`).WillReturnError(sql.ErrConnDone)

	_, err := store.SearchEdges(context.Background(), contractx.EdgeQuery{GroupID: "g", Query: "shoes"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestSearchNodesLexical(t *testing.T) {
	store, mock := newMockStore(t, stubExtractor{})

	mock.ExpectQuery(`FROM "memory_nodes" AS "n" WHERE .*group_id = 'g'.*name ILIKE '%runner%'.*summary ILIKE '%runner%'`).
		WillReturnRows(sqlmock.NewRows([]string{"uuid", "group_id", "name", "type", "summary"}).
			AddRow("n1", "g", "SW100", "Product", "Trail runner"))

	nodes, err := store.SearchNodes(context.Background(), contractx.NodeQuery{GroupID: "g", Query: "runner"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, contractx.Node{UUID: "n1", Name: "SW100", Type: "Product", Summary: "Trail runner"}, nodes[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateCreatesTables(t *testing.T) {
	store, mock := newMockStore(t, stubExtractor{})

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "memory_episodes"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "memory_nodes"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "memory_edges"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "memory_edges_source_idx"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
