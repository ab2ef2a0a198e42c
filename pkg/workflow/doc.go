/*
Package workflow implements the stage progression controller.

A Controller owns the progress State of a single session: which stage is current and which
stages are completed. Every mutation passes through it:

  - MarkCompleted adds a stage to the completed set (idempotent, no navigation).
  - RequestTransition consults the access policy, commits the new current stage and then
    hands the stage target to the Navigator.

Committing and navigating are separate steps. A navigator failure is reported as a
*domain.NavigationError but never reverts the committed state; the view layer may lag
behind, the session state does not.
*/
package workflow
