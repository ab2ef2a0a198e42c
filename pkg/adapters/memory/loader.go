package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/stageflow/pkg/domain"
)

// Loader implements ports.StageLoader using an in-memory map of JSON stage documents.
// Stages are returned in key order.
type Loader struct {
	docs map[string][]byte
}

// NewLoader creates a Loader from raw JSON documents keyed by sort key.
func NewLoader(data map[string]string) *Loader {
	docs := make(map[string][]byte, len(data))
	for k, v := range data {
		docs[k] = []byte(v)
	}
	return &Loader{docs: docs}
}

// NewFromStages creates a Loader from domain objects, preserving their order.
// This handles serialization automatically, improving DX for tests.
func NewFromStages(stages ...domain.Stage) (*Loader, error) {
	docs := make(map[string][]byte, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage %d missing ID", i)
		}
		bytes, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stage %s: %w", s.ID, err)
		}
		docs[fmt.Sprintf("%04d-%s", i, s.ID)] = bytes
	}
	return &Loader{docs: docs}, nil
}

// LoadStages decodes every document in key order.
func (l *Loader) LoadStages(ctx context.Context) ([]domain.Stage, error) {
	keys := make([]string, 0, len(l.docs))
	for k := range l.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order

	stages := make([]domain.Stage, 0, len(keys))
	for _, k := range keys {
		var s domain.Stage
		if err := json.Unmarshal(l.docs[k], &s); err != nil {
			return nil, fmt.Errorf("decode stage %q: %w", k, err)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		stages = append(stages, s)
	}
	return stages, nil
}
