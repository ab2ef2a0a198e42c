/*
Package ports defines the driven ports (interfaces) for the stageflow engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends and view layers.

# Key Interfaces

  - Navigator: Performs the view transition for a committed stage change (router, SSE, terminal).
  - StateStore: Holds live session State (memory, Redis).
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
