package domain

// Stage is one step of the pipeline.
// Stages are immutable once they are part of a registry.
type Stage struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Target is an opaque location token handed to the navigator (e.g. a route).
	Target string `json:"target" yaml:"target"`

	// Description is optional markdown content rendered by presentation adapters.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StageStatus is the derived view of a stage against a session state.
type StageStatus struct {
	Stage
	Current   bool `json:"current"`
	Completed bool `json:"completed"`
	Reachable bool `json:"reachable"`
}
