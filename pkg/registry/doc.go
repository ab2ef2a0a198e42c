/*
Package registry implements the immutable, ordered catalog of pipeline stages.

A Registry is built once (from Go values, a YAML/JSON document, or a directory of markdown
stage documents via the loam adapter) and never mutated afterwards. Lookups of unknown ids
return errors wrapping domain.ErrUnknownStage.
*/
package registry
