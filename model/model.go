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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/reelrank/reelrank/dataset"
)

// Recommendation is a scored item. The score scale is model-specific and not
// comparable across models.
type Recommendation struct {
	ItemID      int     `json:"itemId"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
}

// Model is the contract shared by all recommenders.
//
// Fit builds internal state from scratch; a second call fully replaces prior
// state. Predict returns a point estimate, 0 for unknown ids. RecommendTopN
// returns at most n items sorted by descending score (equal scores break by
// ascending item id), never containing an excluded item, and never mutates
// trained state except for documented lazy cold-start induction.
type Model interface {
	Name() string
	Fit(train []dataset.Interaction, config *FitConfig)
	Predict(userID, itemID int) float64
	RecommendTopN(userID, n int, exclude mapset.Set[int]) []Recommendation
}

// LiveRecommender is implemented by models that can serve users absent from
// training data, given externally supplied live interactions.
type LiveRecommender interface {
	SetLiveInteractions(interactions []dataset.Interaction)
}

// ParamName is the name of a hyper-parameter.
type ParamName string

// Predefined parameter names
const (
	NFactors    ParamName = "n_factors"
	NIterations ParamName = "n_iterations"
	Reg         ParamName = "reg"
	RandomState ParamName = "random_state"
	K           ParamName = "k"
	SimLowBound ParamName = "sim_low_bound"
	RestartProb ParamName = "restart_prob"
	NumWalks    ParamName = "num_walks"
	WalkLength  ParamName = "walk_length"
)

// Params for a model. Given by:
//
//	model.Params{
//		model.NFactors: 30,
//		model.Reg:      0.1,
//	}
type Params map[ParamName]interface{}

// GetInt gets an integer parameter by name.
func (params Params) GetInt(name ParamName, _default int) int {
	if val, exist := params[name]; exist {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return _default
}

// GetInt64 gets an int64 parameter by name.
func (params Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := params[name]; exist {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		}
	}
	return _default
}

// GetFloat64 gets a float parameter by name.
func (params Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := params[name]; exist {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return _default
}

// FitConfig is the runtime configuration for training.
type FitConfig struct {
	Jobs    int // parallel workers inside a single fit
	Verbose int // log every n iterations
}

// NewFitConfig creates a default fit configuration.
func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 1,
	}
}

// SetJobs sets the number of parallel workers.
func (config *FitConfig) SetJobs(nJobs int) *FitConfig {
	config.Jobs = nJobs
	return config
}

// LoadDefaultIfNil returns the default configuration for a nil receiver.
func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// sortRecommendations orders by descending score, breaking ties by ascending
// item id so that rankings are reproducible.
func sortRecommendations(recommendations []Recommendation) {
	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].ItemID < recommendations[j].ItemID
	})
}

// excluded reports whether an item is in the exclusion set. A nil set
// excludes nothing.
func excluded(exclude mapset.Set[int], itemID int) bool {
	return exclude != nil && exclude.Contains(itemID)
}
