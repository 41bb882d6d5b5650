package graphstore

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

type episodeModel struct {
	bun.BaseModel `bun:"table:memory_episodes,alias:ep"`

	UUID          string    `bun:"uuid,pk"`
	GroupID       string    `bun:"group_id,notnull"`
	Name          string    `bun:"name,notnull"`
	Content       string    `bun:"content,notnull"`
	Description   string    `bun:"description"`
	ReferenceTime time.Time `bun:"reference_time,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type nodeModel struct {
	bun.BaseModel `bun:"table:memory_nodes,alias:n"`

	UUID      string    `bun:"uuid,pk"`
	GroupID   string    `bun:"group_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Type      string    `bun:"type,notnull"`
	Summary   string    `bun:"summary"`
	Embedding []float64 `bun:"embedding,array"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type edgeModel struct {
	bun.BaseModel `bun:"table:memory_edges,alias:e"`

	UUID        string     `bun:"uuid,pk"`
	GroupID     string     `bun:"group_id,notnull"`
	Name        string     `bun:"name,notnull"`
	Fact        string     `bun:"fact,notnull"`
	SourceUUID  string     `bun:"source_uuid,notnull"`
	TargetUUID  string     `bun:"target_uuid,notnull"`
	EpisodeUUID string     `bun:"episode_uuid,notnull"`
	ValidAt     time.Time  `bun:"valid_at,notnull"`
	InvalidAt   *time.Time `bun:"invalid_at"`
	Embedding   []float64  `bun:"embedding,array"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
}

func (n nodeModel) toNode() contractx.Node {
	return contractx.Node{UUID: n.UUID, Name: n.Name, Type: n.Type, Summary: n.Summary}
}

func (e edgeModel) toEdge() contractx.Edge {
	return contractx.Edge{
		UUID:      e.UUID,
		Name:      e.Name,
		Fact:      e.Fact,
		SourceID:  e.SourceUUID,
		TargetID:  e.TargetUUID,
		ValidAt:   e.ValidAt,
		InvalidAt: e.InvalidAt,
	}
}
