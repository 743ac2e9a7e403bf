package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// Etcd persiste records bajo /mailmaint/records/<server>. Pensado para sites
// donde el estado operacional ya vive en etcd junto al resto de la infra.
type Etcd struct {
	c      *clientv3.Client
	prefix string
}

func NewEtcd(endpoints []string, prefix string) (*Etcd, error) {
	if prefix == "" {
		prefix = "/mailmaint/records/"
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("recordstore etcd: connect: %w", err)
	}
	return &Etcd{c: c, prefix: prefix}, nil
}

// Close cierra la conexión al cluster etcd.
func (e *Etcd) Close() error { return e.c.Close() }

func (e *Etcd) key(server string) string { return e.prefix + normKey(server) }

func (e *Etcd) Save(ctx context.Context, rec *sequencer.MaintenanceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recordstore etcd: marshal: %w", err)
	}
	if _, err := e.c.Put(ctx, e.key(rec.Server), string(b)); err != nil {
		return fmt.Errorf("recordstore etcd: put: %w", err)
	}
	return nil
}

func (e *Etcd) Get(ctx context.Context, server string) (*sequencer.MaintenanceRecord, error) {
	resp, err := e.c.Get(ctx, e.key(server))
	if err != nil {
		return nil, fmt.Errorf("recordstore etcd: get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	var rec sequencer.MaintenanceRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &rec); err != nil {
		return nil, fmt.Errorf("recordstore etcd: unmarshal: %w", err)
	}
	return &rec, nil
}

func (e *Etcd) Delete(ctx context.Context, server string) error {
	if _, err := e.c.Delete(ctx, e.key(server)); err != nil {
		return fmt.Errorf("recordstore etcd: delete: %w", err)
	}
	return nil
}
