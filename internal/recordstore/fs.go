package recordstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mailmaint/internal/sequencer"
	"github.com/dropDatabas3/mailmaint/internal/util/atomicwrite"
)

// FS persiste un YAML por servidor bajo root. El write es atómico
// (tmp + rename) para que un crash a mitad de save no deje un record corrupto.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("recordstore fs: root dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("recordstore fs: mkdir %s: %w", root, err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(server string) string {
	return filepath.Join(f.root, normKey(server)+".yaml")
}

func (f *FS) Save(_ context.Context, rec *sequencer.MaintenanceRecord) error {
	b, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recordstore fs: marshal: %w", err)
	}
	if err := atomicwrite.AtomicWriteFile(f.path(rec.Server), b, 0o600); err != nil {
		return fmt.Errorf("recordstore fs: write: %w", err)
	}
	return nil
}

func (f *FS) Get(_ context.Context, server string) (*sequencer.MaintenanceRecord, error) {
	b, err := os.ReadFile(f.path(server))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recordstore fs: read: %w", err)
	}
	var rec sequencer.MaintenanceRecord
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("recordstore fs: unmarshal %s: %w", f.path(server), err)
	}
	return &rec, nil
}

func (f *FS) Delete(_ context.Context, server string) error {
	if err := os.Remove(f.path(server)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("recordstore fs: remove: %w", err)
	}
	return nil
}
