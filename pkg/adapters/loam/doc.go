// Package loam reads stage definitions from a directory of Markdown/JSON/YAML documents
// managed by github.com/aretw0/loam.
package loam
