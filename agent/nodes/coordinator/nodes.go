// Package coordinatornode holds the nodes of the turn graph.
package coordinatornode

const (
	NodeValidateRequest    = "validate_request"
	NodeLoadSession        = "load_session"
	NodeReadMemory         = "read_memory"
	NodeClassify           = "classify"
	NodeRespondNonShopping = "respond_non_shopping"
	NodeRunSequence        = "run_sequence"
	NodeSaveSession        = "save_session"
	NodeWriteMemory        = "write_memory"
	NodeFinalize           = "finalize"
)
