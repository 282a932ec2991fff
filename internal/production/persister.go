// Package production provides integrations for running containers outside
// tests: snapshot persistence, metadata tables, change publishing and
// visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/attributex"
)

// Persister stores container snapshots by container ID.
type Persister interface {
	Save(ctx context.Context, snap attributex.Snapshot) error
	Load(ctx context.Context, containerID string) (attributex.Snapshot, error)
}

// fileStore writes one file per container in dir.
type fileStore struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

func newFileStore(dir, ext string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStore{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fileStore{dir: dir, ext: ext, marshal: marshal, unmarshal: unmarshal}, nil
}

func (s fileStore) path(id string) string {
	return filepath.Join(s.dir, id+s.ext)
}

func (s fileStore) save(ctx context.Context, snap attributex.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.ContainerID == "" {
		return errors.New("snapshot has no container ID")
	}
	data, err := s.marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.ext, err)
	}
	fn := s.path(snap.ContainerID)
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (s fileStore) load(ctx context.Context, id string) (attributex.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return attributex.Snapshot{}, err
	}
	fn := s.path(id)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return attributex.Snapshot{}, fmt.Errorf("container %q: %w", id, os.ErrNotExist)
		}
		return attributex.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var snap attributex.Snapshot
	if err := s.unmarshal(data, &snap); err != nil {
		return attributex.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	snap.ContainerID = id
	return snap, nil
}

// JSONPersister stores snapshots as indented JSON files.
type JSONPersister struct {
	store fileStore
}

// NewJSONPersister creates a JSONPersister, ensuring dir exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	store, err := newFileStore(dir, ".json", func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}, json.Unmarshal)
	if err != nil {
		return nil, err
	}
	return &JSONPersister{store: store}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snap attributex.Snapshot) error {
	return p.store.save(ctx, snap)
}

func (p *JSONPersister) Load(ctx context.Context, containerID string) (attributex.Snapshot, error) {
	return p.store.load(ctx, containerID)
}

// YAMLPersister stores snapshots as YAML files.
type YAMLPersister struct {
	store fileStore
}

// NewYAMLPersister creates a YAMLPersister, ensuring dir exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	store, err := newFileStore(dir, ".yaml", yaml.Marshal, yaml.Unmarshal)
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{store: store}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snap attributex.Snapshot) error {
	return p.store.save(ctx, snap)
}

func (p *YAMLPersister) Load(ctx context.Context, containerID string) (attributex.Snapshot, error) {
	return p.store.load(ctx, containerID)
}

// SaveContainer snapshots c and saves it.
func SaveContainer(ctx context.Context, p Persister, c *attributex.Container) error {
	return p.Save(ctx, c.Snapshot())
}

// RestoreContainer loads the snapshot saved under c's ID into c. No
// notifications fire.
func RestoreContainer(ctx context.Context, p Persister, c *attributex.Container) error {
	snap, err := p.Load(ctx, c.ID())
	if err != nil {
		return err
	}
	return c.Restore(snap)
}
