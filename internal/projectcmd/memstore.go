package projectcmd

import (
	"context"
	"slices"
	"sync"

	"github.com/runger/nvpick/internal/storage"
)

// MemoryStore keeps project state for the life of the process. It backs
// the runner when the database cannot be opened.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]storage.Project
	runs     []storage.Run
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]storage.Project)}
}

func (m *MemoryStore) GetProject(_ context.Context, root string) (*storage.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[root]
	if !ok {
		return nil, storage.ErrProjectNotFound
	}
	p.Commands = slices.Clone(p.Commands)
	return &p, nil
}

func (m *MemoryStore) SaveProject(_ context.Context, p *storage.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.Commands = slices.Clone(p.Commands)
	m.projects[p.Root] = cp
	return nil
}

func (m *MemoryStore) RecordRun(_ context.Context, run *storage.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, *run)
	return nil
}

// Runs returns every recorded run, oldest first.
func (m *MemoryStore) Runs() []storage.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.runs)
}
