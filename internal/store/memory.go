package store

import (
	"context"

	"github.com/couchcryptid/cbc-history-etl/internal/cache"
	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// Memory is a bounded in-process store. The least recently used report is
// dropped once capacity is reached.
type Memory struct {
	reports *cache.LRU[string, domain.Report]
}

// NewMemory returns a Memory store holding at most capacity reports.
func NewMemory(capacity int) *Memory {
	return &Memory{reports: cache.New[string, domain.Report](capacity)}
}

func (m *Memory) Put(_ context.Context, report domain.Report) error {
	m.reports.Put(report.ID, report)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.Report, error) {
	report, ok := m.reports.Get(id)
	if !ok {
		return domain.Report{}, ErrNotFound
	}
	return report, nil
}

// Len returns the number of reports held.
func (m *Memory) Len() int {
	return m.reports.Len()
}

func (m *Memory) Close() error { return nil }
