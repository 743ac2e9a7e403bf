// Package recordstore persiste (opcionalmente) el MaintenanceRecord entre el
// enter y el exit, keyed por identidad del nodo.
//
// Es aditivo: el hand-off manual por consola sigue siendo el baseline y el
// sequencer no depende de ningún store. Backends: memory, fs, redis,
// postgres, etcd.
package recordstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// ErrNotFound: no hay record guardado para ese servidor.
var ErrNotFound = errors.New("recordstore: record not found")

// Store es el contrato de persistencia del MaintenanceRecord.
type Store interface {
	Save(ctx context.Context, rec *sequencer.MaintenanceRecord) error
	Get(ctx context.Context, server string) (*sequencer.MaintenanceRecord, error)
	Delete(ctx context.Context, server string) error
}

// normKey normaliza la identidad del servidor como clave de store.
func normKey(server string) string {
	return strings.ToLower(strings.TrimSpace(server))
}
