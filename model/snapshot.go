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

package model

import (
	"time"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/reelrank/reelrank/base"
)

// SnapshotVersion is the current snapshot schema version. Loading a snapshot
// written under any other version fails instead of guessing.
const SnapshotVersion = 1

// Snapshot is the persisted state of one trained model: a tagged union keyed
// by model name, with exactly one variant payload populated.
type Snapshot struct {
	Version int       `json:"version"`
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`

	Popularity          *PopularitySnapshot `json:"popularity,omitempty"`
	MatrixFactorization *MFSnapshot         `json:"matrixFactorization,omitempty"`
	ItemItemCF          *KNNSnapshot        `json:"itemItemCf,omitempty"`
	GraphBased          *GraphSnapshot      `json:"graphBased,omitempty"`
}

// SnapshotModel is implemented by models that can persist and restore their
// trained state.
type SnapshotModel interface {
	Model
	Snapshot() *Snapshot
	Restore(snapshot *Snapshot) error
}

// checkSnapshot validates the envelope against the restoring model.
func checkSnapshot(snapshot *Snapshot, name string) error {
	if snapshot == nil {
		return errors.NotValidf("nil snapshot")
	}
	if snapshot.Version != SnapshotVersion {
		return errors.NotValidf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	if snapshot.Name != name {
		return errors.NotValidf("snapshot for model %q restored into %q", snapshot.Name, name)
	}
	return nil
}

// PopularitySnapshot is the trained state of a Popularity model.
type PopularitySnapshot struct {
	Scores map[int]float64 `json:"scores"`
	Sorted []int           `json:"sorted"`
}

func (pop *Popularity) Snapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Name:    pop.Name(),
		Popularity: &PopularitySnapshot{
			Scores: pop.scores,
			Sorted: pop.sorted,
		},
	}
}

func (pop *Popularity) Restore(snapshot *Snapshot) error {
	if err := checkSnapshot(snapshot, pop.Name()); err != nil {
		return errors.Trace(err)
	}
	if snapshot.Popularity == nil {
		return errors.NotValidf("snapshot missing popularity payload")
	}
	pop.scores = snapshot.Popularity.Scores
	pop.sorted = snapshot.Popularity.Sorted
	return nil
}

// MFSnapshot is the trained state of a MatrixFactorization model. Factor
// matrices are stored row-major.
type MFSnapshot struct {
	NFactors   int         `json:"nFactors"`
	UserIndex  *base.Index `json:"userIndex"`
	ItemIndex  *base.Index `json:"itemIndex"`
	UserFactor []float64   `json:"userFactor"`
	ItemFactor []float64   `json:"itemFactor"`
}

func (mf *MatrixFactorization) Snapshot() *Snapshot {
	payload := &MFSnapshot{
		NFactors:  mf.nFactors,
		UserIndex: mf.userIndex,
		ItemIndex: mf.itemIndex,
	}
	// factors stay nil after fitting an empty train set
	if mf.userFactor != nil {
		payload.UserFactor = mf.userFactor.RawMatrix().Data
	}
	if mf.itemFactor != nil {
		payload.ItemFactor = mf.itemFactor.RawMatrix().Data
	}
	return &Snapshot{
		Version:             SnapshotVersion,
		SavedAt:             time.Now(),
		Name:                mf.Name(),
		MatrixFactorization: payload,
	}
}

func (mf *MatrixFactorization) Restore(snapshot *Snapshot) error {
	if err := checkSnapshot(snapshot, mf.Name()); err != nil {
		return errors.Trace(err)
	}
	payload := snapshot.MatrixFactorization
	if payload == nil {
		return errors.NotValidf("snapshot missing matrix factorization payload")
	}
	if payload.NFactors <= 0 {
		return errors.NotValidf("snapshot factor count %d", payload.NFactors)
	}
	nUsers := payload.UserIndex.Len()
	nItems := payload.ItemIndex.Len()
	if len(payload.UserFactor) != nUsers*payload.NFactors ||
		len(payload.ItemFactor) != nItems*payload.NFactors {
		return errors.NotValidf("snapshot factor matrix shape")
	}
	mf.nFactors = payload.NFactors
	mf.userIndex = payload.UserIndex
	mf.itemIndex = payload.ItemIndex
	if nUsers == 0 || nItems == 0 {
		mf.userFactor = nil
		mf.itemFactor = nil
		return nil
	}
	mf.userFactor = mat.NewDense(nUsers, payload.NFactors, payload.UserFactor)
	mf.itemFactor = mat.NewDense(nItems, payload.NFactors, payload.ItemFactor)
	return nil
}

// KNNSnapshot is the trained state of an ItemItemCF model.
type KNNSnapshot struct {
	UserItems map[int]map[int]float64 `json:"userItems"`
	Neighbors map[int][]Neighbor      `json:"neighbors"`
}

func (knn *ItemItemCF) Snapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Name:    knn.Name(),
		ItemItemCF: &KNNSnapshot{
			UserItems: knn.userItems,
			Neighbors: knn.neighbors,
		},
	}
}

func (knn *ItemItemCF) Restore(snapshot *Snapshot) error {
	if err := checkSnapshot(snapshot, knn.Name()); err != nil {
		return errors.Trace(err)
	}
	if snapshot.ItemItemCF == nil {
		return errors.NotValidf("snapshot missing item-item cf payload")
	}
	knn.userItems = snapshot.ItemItemCF.UserItems
	knn.neighbors = snapshot.ItemItemCF.Neighbors
	return nil
}

// GraphSnapshot is the trained state of a GraphBased model, including any
// synthetic cold-start nodes induced before the snapshot was taken.
type GraphSnapshot struct {
	Users    map[int]int32 `json:"users"`
	Items    map[int]int32 `json:"items"`
	Kinds    []uint8       `json:"kinds"`
	IDs      []int         `json:"ids"`
	Adjacent [][]int32     `json:"adjacent"`
	Cum      [][]float64   `json:"cum"`
}

func (graph *GraphBased) Snapshot() *Snapshot {
	graph.mu.RLock()
	defer graph.mu.RUnlock()
	return &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Name:    graph.Name(),
		GraphBased: &GraphSnapshot{
			Users:    graph.users,
			Items:    graph.items,
			Kinds:    graph.kinds,
			IDs:      graph.ids,
			Adjacent: graph.adjacent,
			Cum:      graph.cum,
		},
	}
}

func (graph *GraphBased) Restore(snapshot *Snapshot) error {
	if err := checkSnapshot(snapshot, graph.Name()); err != nil {
		return errors.Trace(err)
	}
	payload := snapshot.GraphBased
	if payload == nil {
		return errors.NotValidf("snapshot missing graph payload")
	}
	nNodes := len(payload.Kinds)
	if len(payload.IDs) != nNodes || len(payload.Adjacent) != nNodes || len(payload.Cum) != nNodes {
		return errors.NotValidf("snapshot graph node arrays disagree on length")
	}
	graph.mu.Lock()
	defer graph.mu.Unlock()
	graph.users = payload.Users
	graph.items = payload.Items
	graph.kinds = payload.Kinds
	graph.ids = payload.IDs
	graph.adjacent = payload.Adjacent
	graph.cum = payload.Cum
	if graph.jobs < 1 {
		graph.jobs = 1
	}
	return nil
}
