package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// Redis persiste records como JSON bajo un prefix. Sin TTL: un nodo puede
// quedar semanas en mantenimiento, el record vive hasta el exit.
type Redis struct {
	c      *rdb.Client
	prefix string
}

func NewRedis(addr string, db int, prefix string) *Redis {
	if prefix == "" {
		prefix = "mailmaint:record:"
	}
	return &Redis{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (r *Redis) key(server string) string { return r.prefix + normKey(server) }

func (r *Redis) Save(ctx context.Context, rec *sequencer.MaintenanceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recordstore redis: marshal: %w", err)
	}
	if err := r.c.Set(ctx, r.key(rec.Server), b, 0).Err(); err != nil {
		return fmt.Errorf("recordstore redis: set: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, server string) (*sequencer.MaintenanceRecord, error) {
	b, err := r.c.Get(ctx, r.key(server)).Bytes()
	if err != nil {
		if errors.Is(err, rdb.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recordstore redis: get: %w", err)
	}
	var rec sequencer.MaintenanceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("recordstore redis: unmarshal: %w", err)
	}
	return &rec, nil
}

func (r *Redis) Delete(ctx context.Context, server string) error {
	if err := r.c.Del(ctx, r.key(server)).Err(); err != nil {
		return fmt.Errorf("recordstore redis: del: %w", err)
	}
	return nil
}
