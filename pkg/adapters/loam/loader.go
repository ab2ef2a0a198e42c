package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/stageflow/pkg/domain"
)

// Loader adapts a Loam repository of stage documents to ports.StageLoader.
// Pipeline order is the document path order (e.g. 01-setup.md, 02-analysis.md).
type Loader struct {
	Repo *loam.TypedRepository[StageMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[StageMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a strict, read-only Loam repository at path.
// Strict mode keeps numeric frontmatter consistent across Markdown and JSON documents;
// read-only mode stops Loam from creating its dev sandbox since stages are never written.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StageMetadata](repo)), nil
}

// LoadStages lists the documents in path order. List carries the frontmatter
// but not the body, so documents without a description are read again for it.
func (l *Loader) LoadStages(ctx context.Context) ([]domain.Stage, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return filepath.ToSlash(docs[i].ID) < filepath.ToSlash(docs[j].ID)
	})

	seen := make(map[string]string, len(docs))
	stages := make([]domain.Stage, 0, len(docs))
	for _, doc := range docs {
		body := doc.Content
		if doc.Data.Description == "" && body == "" {
			full, err := l.Repo.Get(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
			}
			body = full.Content
		}
		stage := toStage(doc.ID, doc.Data, body)

		if original, exists := seen[stage.ID]; exists {
			return nil, fmt.Errorf("stage id collision detected: %q is defined by both %q and %q", stage.ID, original, doc.ID)
		}
		seen[stage.ID] = doc.ID
		stages = append(stages, stage)
	}
	return stages, nil
}

// toStage applies the fallbacks: the document id stands in for a missing id,
// the id for a missing name and the body for a missing description.
func toStage(docID string, meta StageMetadata, body string) domain.Stage {
	id := meta.ID
	if id == "" {
		id = docID
	}
	id = trimExtension(id)

	name := meta.Name
	if name == "" {
		name = id
	}
	description := meta.Description
	if description == "" {
		description = strings.TrimSpace(body)
	}
	return domain.Stage{
		ID:          id,
		Name:        name,
		Target:      meta.Target,
		Description: description,
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	// Doublestar pattern supported by Loam; avoids a manual filtering loop.
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
