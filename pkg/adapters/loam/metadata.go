package loam

// StageMetadata is the frontmatter of a stage document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
//
//	---
//	id: project-setup
//	name: Project Setup
//	target: /project-setup
//	---
//	Markdown body shown as the stage description.
type StageMetadata struct {
	ID     string `json:"id" mapstructure:"id"`
	Name   string `json:"name" mapstructure:"name"`
	Target string `json:"target" mapstructure:"target"`

	// Description overrides the document body, mostly for JSON/YAML documents that have none.
	Description string `json:"description,omitempty" mapstructure:"description"`
}
