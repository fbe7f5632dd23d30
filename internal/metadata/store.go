package metadata

import (
	"context"
	"errors"
	"sort"
)

var ErrNotFound = errors.New("metadata record not found")

// Store is the query surface the adapters consume.
type Store interface {
	RawBySrcID(ctx context.Context, srcid string) (*RawMetadata, error)
	RawByBuilding(ctx context.Context, building string) ([]RawMetadata, error)
	LabelBySrcID(ctx context.Context, srcid string) (*LabeledMetadata, error)
	LabelsByBuilding(ctx context.Context, building string) ([]LabeledMetadata, error)
}

// MemoryStore keeps records in maps. It backs tests and small fixtures.
type MemoryStore struct {
	raws   map[string]RawMetadata
	labels map[string]LabeledMetadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		raws:   make(map[string]RawMetadata),
		labels: make(map[string]LabeledMetadata),
	}
}

func (m *MemoryStore) PutRaw(_ context.Context, raw RawMetadata) error {
	m.raws[raw.SrcID] = raw
	return nil
}

func (m *MemoryStore) PutLabel(_ context.Context, label LabeledMetadata) error {
	m.labels[label.SrcID] = label
	return nil
}

func (m *MemoryStore) RawBySrcID(_ context.Context, srcid string) (*RawMetadata, error) {
	raw, ok := m.raws[srcid]
	if !ok {
		return nil, ErrNotFound
	}
	return &raw, nil
}

func (m *MemoryStore) RawByBuilding(_ context.Context, building string) ([]RawMetadata, error) {
	var out []RawMetadata
	for _, raw := range m.raws {
		if raw.Building == building {
			out = append(out, raw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SrcID < out[j].SrcID })
	return out, nil
}

func (m *MemoryStore) LabelBySrcID(_ context.Context, srcid string) (*LabeledMetadata, error) {
	label, ok := m.labels[srcid]
	if !ok {
		return nil, ErrNotFound
	}
	return &label, nil
}

func (m *MemoryStore) LabelsByBuilding(_ context.Context, building string) ([]LabeledMetadata, error) {
	var out []LabeledMetadata
	for _, label := range m.labels {
		if label.Building == building {
			out = append(out, label)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SrcID < out[j].SrcID })
	return out, nil
}
