// Package mcp exposes a Stageflow engine as a Model Context Protocol server,
// so agents can list stages, drive sessions and read the pipeline as a resource.
package mcp
