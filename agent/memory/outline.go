package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

const (
	DefaultOutlineLimit = 12
	NoKnowledge         = "No prior knowledge found."
	outlineHeader       = "Relevant knowledge:"
)

// BuildOutline renders edges then nodes, at most limit lines in total.
func BuildOutline(edges []contractx.Edge, nodes []contractx.Node, limit int) string {
	if limit <= 0 {
		limit = DefaultOutlineLimit
	}
	lines := make([]string, 0, limit)
	for _, e := range edges {
		if len(lines) >= limit {
			break
		}
		fact := strings.TrimSpace(e.Fact)
		if fact == "" {
			fact = e.Name
		}
		lines = append(lines, fmt.Sprintf("- EDGE[%s]: %s (src=%s, tgt=%s)", e.Name, fact, e.SourceID, e.TargetID))
	}
	for _, n := range nodes {
		if len(lines) >= limit {
			break
		}
		lines = append(lines, fmt.Sprintf("- NODE[%s]: %s (%s)", n.Type, n.Name, n.UUID))
	}
	if len(lines) == 0 {
		return NoKnowledge
	}
	return outlineHeader + "\n" + strings.Join(lines, "\n")
}

// Reader queries the graph for the outline handed to the agents.
type Reader struct {
	graph contractx.GraphMemory
	limit int
}

func NewReader(graph contractx.GraphMemory, limit int) *Reader {
	if limit <= 0 {
		limit = DefaultOutlineLimit
	}
	return &Reader{graph: graph, limit: limit}
}

// Outline never fails. A failed lookup contributes nothing; when both fail the
// no-knowledge outline is returned.
func (r *Reader) Outline(ctx context.Context, groupID, query string) string {
	if r == nil || r.graph == nil || strings.TrimSpace(query) == "" {
		return NoKnowledge
	}

	edges, err := r.graph.SearchEdges(ctx, contractx.EdgeQuery{GroupID: groupID, Query: query, Limit: r.limit})
	if err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("memory edge search failed")
		edges = nil
	}
	nodes, err := r.graph.SearchNodes(ctx, contractx.NodeQuery{GroupID: groupID, Query: query, Limit: r.limit})
	if err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("memory node search failed")
		nodes = nil
	}
	return BuildOutline(edges, nodes, r.limit)
}
