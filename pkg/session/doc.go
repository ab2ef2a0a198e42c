/*
Package session hosts many progress sessions side by side.

Manager serializes access per session with a reference-counted in-process mutex and,
when several replicas share a StateStore, an optional distributed lock. The session id
travels to navigators through the context (see ContextWithID).
*/
package session
