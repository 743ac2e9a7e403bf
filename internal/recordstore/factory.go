package recordstore

import (
	"context"
	"fmt"
)

// Options selecciona y configura el backend del record store.
type Options struct {
	Kind string // "none" | "memory" | "fs" | "redis" | "postgres" | "etcd"

	FSDir string

	RedisAddr   string
	RedisDB     int
	RedisPrefix string

	PostgresDSN string

	EtcdEndpoints []string
	EtcdPrefix    string
}

// Open construye el Store según Options.Kind. Con "none" (default) devuelve
// nil: el caller trata store==nil como "solo hand-off por consola".
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Kind {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "fs":
		return NewFS(o.FSDir)
	case "redis":
		return NewRedis(o.RedisAddr, o.RedisDB, o.RedisPrefix), nil
	case "postgres":
		return NewPostgres(ctx, o.PostgresDSN)
	case "etcd":
		return NewEtcd(o.EtcdEndpoints, o.EtcdPrefix)
	default:
		return nil, fmt.Errorf("recordstore: unknown kind %q", o.Kind)
	}
}
