/*
Package domain contains the core domain models of the stageflow engine.

It defines the entities of a linear stage pipeline and the per-session progress record.
This package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Stage: One named step of the pipeline, with an opaque navigation Target.
  - State: The progress snapshot of a session (Current Stage, Completed set, History).
  - StageStatus: A derived per-stage view (current/completed/reachable) for presentation.
  - StateDiff: The changes between two snapshots, used by streaming adapters.
*/
package domain
