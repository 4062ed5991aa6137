// Copyright 2026 reelrank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage persists trained model snapshots as JSON files, one file
// per model.
package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/model"
)

// SnapshotStore reads and writes model snapshots under a single directory.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a store rooted at dir, creating it if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Trace(err)
	}
	return &SnapshotStore{dir: dir}, nil
}

func (store *SnapshotStore) path(name string) string {
	return filepath.Join(store.dir, name+".json")
}

// Exists reports whether a snapshot was saved for the named model.
func (store *SnapshotStore) Exists(name string) bool {
	_, err := os.Stat(store.path(name))
	return err == nil
}

// Save writes the snapshot atomically: a temporary file is renamed over the
// destination so a crash mid-write never leaves a truncated snapshot.
func (store *SnapshotStore) Save(snapshot *model.Snapshot) error {
	start := time.Now()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Trace(err)
	}
	temp, err := os.CreateTemp(store.dir, snapshot.Name+".*.tmp")
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = os.Rename(temp.Name(), store.path(snapshot.Name)); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	log.Logger().Info("saved model snapshot",
		zap.String("model", snapshot.Name),
		zap.Int("size", len(data)),
		zap.Duration("save_time", time.Since(start)))
	return nil
}

// Load reads the snapshot for the named model. A missing file maps to a
// not-found error so callers can fall back to training.
func (store *SnapshotStore) Load(name string) (*model.Snapshot, error) {
	data, err := os.ReadFile(store.path(name))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("snapshot for model %q", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var snapshot model.Snapshot
	if err = json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.NotValidf("snapshot for model %q: %v", name, err)
	}
	if snapshot.Name != name {
		return nil, errors.NotValidf("snapshot file %q holds model %q", store.path(name), snapshot.Name)
	}
	return &snapshot, nil
}
