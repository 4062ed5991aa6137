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

package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/dataset"
	"github.com/reelrank/reelrank/model"
)

// RecommendedItem is a recommendation enriched with item metadata. Title and
// genres stay absent when the item id is unknown to the catalog.
type RecommendedItem struct {
	ItemID      int      `json:"itemId"`
	Score       float64  `json:"score"`
	Explanation string   `json:"explanation,omitempty"`
	Title       string   `json:"title,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// Registry owns the trained models and the dataset. It routes recommendation
// requests, answers catalog queries and ingests live ratings.
//
// Ingested ratings update the dataset and the live interaction list consulted
// by cold-start paths, but never retrain a model or rebuild the exclusion
// index. Trained model state only changes through Fit.
type Registry struct {
	mu         sync.RWMutex
	models     map[string]model.Model
	data       *dataset.Dataset
	exclusions map[int]mapset.Set[int]         // user id -> training item ids
	positions  map[int]map[int]int             // (user id, item id) -> interaction offset
	live       []dataset.Interaction           // ratings ingested after training
	livePos    map[int]map[int]int             // (user id, item id) -> live offset
	userIDs    []int                           // sorted, for sampling
	maxUserID  int
	timeout    time.Duration

	rngMu sync.Mutex
	rng   base.RandomGenerator
}

// NewRegistry creates an empty registry. Queries fail with a not-provisioned
// error until a dataset is attached.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		models:  make(map[string]model.Model),
		timeout: timeout,
		rng:     base.NewRandomGenerator(time.Now().UnixNano()),
	}
}

// Register adds a trained model under its own name.
func (r *Registry) Register(m model.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.Name()] = m
}

// ModelNames returns the registered model names in ascending order.
func (r *Registry) ModelNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttachDataset hands the dataset to the registry and builds the exclusion
// index from the training interactions. Called once after training.
func (r *Registry) AttachDataset(data *dataset.Dataset, train []dataset.Interaction) {
	exclusions := make(map[int]mapset.Set[int])
	for _, interaction := range train {
		if _, exist := exclusions[interaction.UserID]; !exist {
			exclusions[interaction.UserID] = mapset.NewSet[int]()
		}
		exclusions[interaction.UserID].Add(interaction.ItemID)
	}
	positions := make(map[int]map[int]int)
	maxUserID := 0
	for offset, interaction := range data.Interactions {
		if _, exist := positions[interaction.UserID]; !exist {
			positions[interaction.UserID] = make(map[int]int)
		}
		positions[interaction.UserID][interaction.ItemID] = offset
		if interaction.UserID > maxUserID {
			maxUserID = interaction.UserID
		}
	}
	userIDs := data.Users.ToSlice()
	sort.Ints(userIDs)
	r.mu.Lock()
	r.data = data
	r.exclusions = exclusions
	r.positions = positions
	r.livePos = make(map[int]map[int]int)
	r.userIDs = userIDs
	r.maxUserID = maxUserID
	r.mu.Unlock()
	log.Logger().Info("attached dataset",
		zap.Int("n_interactions", len(data.Interactions)),
		zap.Int("n_items", data.ItemCount()),
		zap.Int("n_users", len(userIDs)))
}

// Recommend returns the model's top-n items for a user, enriched with catalog
// metadata. The model call runs under the registry timeout so a pathological
// cold-start computation cannot hold the request forever. An empty list is a
// valid success for a cold user, distinct from the not-found failures.
func (r *Registry) Recommend(ctx context.Context, userID int, modelName string, n int) ([]RecommendedItem, error) {
	r.mu.RLock()
	data := r.data
	m, exist := r.models[modelName]
	exclude := r.exclusions[userID]
	r.mu.RUnlock()
	if data == nil {
		return nil, errors.NotProvisionedf("dataset")
	}
	if !exist {
		return nil, errors.NotFoundf("model %q", modelName)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	done := make(chan []model.Recommendation, 1)
	go func() {
		done <- m.RecommendTopN(userID, n, exclude)
	}()
	select {
	case recommendations := <-done:
		return r.enrich(recommendations), nil
	case <-ctx.Done():
		return nil, errors.Timeoutf("recommend %q for user %d", modelName, userID)
	}
}

func (r *Registry) enrich(recommendations []model.Recommendation) []RecommendedItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enriched := make([]RecommendedItem, len(recommendations))
	for i, recommendation := range recommendations {
		enriched[i] = RecommendedItem{
			ItemID:      recommendation.ItemID,
			Score:       recommendation.Score,
			Explanation: recommendation.Explanation,
		}
		if item, exist := r.data.Items[recommendation.ItemID]; exist {
			enriched[i].Title = item.Title
			enriched[i].Genres = item.Genres
		}
	}
	return enriched
}

// InsertRating appends a new interaction or overwrites the existing one for
// the (user, item) pair, then fans the live interaction list out to models
// that serve cold-start users. No model retrains and the exclusion index
// stays as built. Returns whether the rating was "added" or "updated".
func (r *Registry) InsertRating(userID, itemID int, rating float64) (string, error) {
	if rating < 1 || rating > 5 {
		return "", errors.BadRequestf("rating %v out of range [1, 5]", rating)
	}
	r.mu.Lock()
	if r.data == nil {
		r.mu.Unlock()
		return "", errors.NotProvisionedf("dataset")
	}
	interaction := dataset.Interaction{
		UserID:    userID,
		ItemID:    itemID,
		Weight:    rating,
		Timestamp: time.Now().Unix(),
	}
	action := "added"
	if offset, exist := r.positions[userID][itemID]; exist {
		r.data.Interactions[offset] = interaction
		action = "updated"
	} else {
		if _, exist := r.positions[userID]; !exist {
			r.positions[userID] = make(map[int]int)
		}
		r.positions[userID][itemID] = len(r.data.Interactions)
		r.data.Interactions = append(r.data.Interactions, interaction)
	}
	if !r.data.Users.Contains(userID) {
		r.data.Users.Add(userID)
		r.userIDs = append(r.userIDs, userID)
		sort.Ints(r.userIDs)
	}
	if userID > r.maxUserID {
		r.maxUserID = userID
	}
	if offset, exist := r.livePos[userID][itemID]; exist {
		r.live[offset] = interaction
	} else {
		if _, exist := r.livePos[userID]; !exist {
			r.livePos[userID] = make(map[int]int)
		}
		r.livePos[userID][itemID] = len(r.live)
		r.live = append(r.live, interaction)
	}
	live := make([]dataset.Interaction, len(r.live))
	copy(live, r.live)
	models := make([]model.Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	r.mu.Unlock()
	for _, m := range models {
		if recommender, ok := m.(model.LiveRecommender); ok {
			recommender.SetLiveInteractions(live)
		}
	}
	log.Logger().Info("ingested rating",
		zap.Int("user_id", userID),
		zap.Int("item_id", itemID),
		zap.Float64("rating", rating),
		zap.String("action", action))
	return action, nil
}

// UserRating looks up the current rating for a (user, item) pair.
func (r *Registry) UserRating(userID, itemID int) (dataset.Interaction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return dataset.Interaction{}, false, errors.NotProvisionedf("dataset")
	}
	offset, exist := r.positions[userID][itemID]
	if !exist {
		return dataset.Interaction{}, false, nil
	}
	return r.data.Interactions[offset], true, nil
}

// Movie looks up one catalog item.
func (r *Registry) Movie(itemID int) (dataset.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return dataset.Item{}, errors.NotProvisionedf("dataset")
	}
	item, exist := r.data.Items[itemID]
	if !exist {
		return dataset.Item{}, errors.NotFoundf("movie %d", itemID)
	}
	return item, nil
}

// SearchMovies matches the query case-insensitively against titles and
// returns up to limit items in ascending id order.
func (r *Registry) SearchMovies(query string, limit int) ([]dataset.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil, errors.NotProvisionedf("dataset")
	}
	query = strings.ToLower(query)
	results := make([]dataset.Item, 0)
	for _, itemID := range r.data.ItemIDs() {
		if len(results) >= limit {
			break
		}
		item := r.data.Items[itemID]
		if strings.Contains(strings.ToLower(item.Title), query) {
			results = append(results, item)
		}
	}
	return results, nil
}

// RandomUsers samples count user ids with replacement.
func (r *Registry) RandomUsers(count int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil, errors.NotProvisionedf("dataset")
	}
	if len(r.userIDs) == 0 {
		return []int{}, nil
	}
	users := make([]int, count)
	r.rngMu.Lock()
	for i := range users {
		users[i] = r.userIDs[r.rng.Intn(len(r.userIDs))]
	}
	r.rngMu.Unlock()
	return users, nil
}

// NextUserID returns max(existing user ids) + 1.
func (r *Registry) NextUserID() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return 0, errors.NotProvisionedf("dataset")
	}
	return r.maxUserID + 1, nil
}
