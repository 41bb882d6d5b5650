package contract

import (
	"context"
	"time"
)

// Agent is the uniform entry point the coordinator calls for every intent.
type Agent interface {
	Name() AgentType
	PlanAndExecute(ctx context.Context, req AgentRequest) (Plan, error)
}

// Communicator is the agent that asks the user for missing information.
type Communicator interface {
	Agent
	PlanCommunication(ctx context.Context, req AgentRequest) (CommunicationPlan, error)
}

type Registry interface {
	Search() Agent
	Cart() Agent
	Order() Agent
	Communication() Communicator
}

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (IntentClassification, error)
}

// ActionExecutor invokes a storefront action by name.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, payload map[string]any, header HeaderInfo) (ActionResult, error)
}

// GraphMemory is the temporal knowledge graph collaborator.
type GraphMemory interface {
	AddEpisode(ctx context.Context, ep Episode) error
	SearchEdges(ctx context.Context, query EdgeQuery) ([]Edge, error)
	SearchNodes(ctx context.Context, query NodeQuery) ([]Node, error)
}

// EpisodeDispatcher hands finished turns to memory ingestion.
type EpisodeDispatcher interface {
	Dispatch(ctx context.Context, ep Episode) error
}

type Episode struct {
	Name          string              `json:"name"`
	GroupID       string              `json:"group_id"`
	Content       string              `json:"content"`
	Description   string              `json:"description"`
	ReferenceTime time.Time           `json:"reference_time"`
	EntityTypes   []string            `json:"entity_types,omitempty"`
	EdgeTypes     []string            `json:"edge_types,omitempty"`
	EdgeTypeMap   map[string][]string `json:"edge_type_map,omitempty"`
}

type EdgeQuery struct {
	GroupID        string
	Query          string
	Limit          int
	CenterNodeUUID string
}

type NodeQuery struct {
	GroupID string
	Query   string
	Limit   int
}

// Node is a knowledge graph entity. Absent fields are empty strings.
type Node struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
}

// Edge is a fact between two nodes.
type Edge struct {
	UUID      string     `json:"uuid"`
	Name      string     `json:"name"`
	Fact      string     `json:"fact"`
	SourceID  string     `json:"source_id"`
	TargetID  string     `json:"target_id"`
	ValidAt   time.Time  `json:"valid_at"`
	InvalidAt *time.Time `json:"invalid_at,omitempty"`
}
