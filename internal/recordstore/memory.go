package recordstore

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// Memory guarda records en proceso, sin expiración. Útil para tests y para
// el modo dry-run; no sobrevive al proceso (el hand-off manual aplica).
type Memory struct{ c *gocache.Cache }

func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) Save(_ context.Context, rec *sequencer.MaintenanceRecord) error {
	cp := *rec
	m.c.Set(normKey(rec.Server), &cp, gocache.NoExpiration)
	return nil
}

func (m *Memory) Get(_ context.Context, server string) (*sequencer.MaintenanceRecord, error) {
	v, ok := m.c.Get(normKey(server))
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := v.(*sequencer.MaintenanceRecord)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) Delete(_ context.Context, server string) error {
	m.c.Delete(normKey(server))
	return nil
}
