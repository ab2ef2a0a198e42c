/*
Package policy holds the pluggable access predicates consulted before a stage transition.

The default, Permissive, keeps every registered stage reachable at all times so users can
freely revisit or jump ahead. Stricter predicates (such as Sequential) can be injected into
the workflow controller without touching it.
*/
package policy
