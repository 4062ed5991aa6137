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

package dataset

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

// Interaction is a single user-item signal. Weight is the explicit rating
// (1-5) or an implicit signal strength.
type Interaction struct {
	UserID    int     `json:"userId"`
	ItemID    int     `json:"itemId"`
	Weight    float64 `json:"weight"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Item is a recommendable item (a movie in the MovieLens schema).
type Item struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

// Dataset is a normalized interaction history plus the item catalog.
type Dataset struct {
	Interactions []Interaction
	Items        map[int]Item
	Users        mapset.Set[int]

	itemIDs []int // ascending, for deterministic catalog iteration
}

// NewDataset creates a Dataset from interactions and an item catalog. The
// user set is derived from the interactions.
func NewDataset(interactions []Interaction, items map[int]Item) *Dataset {
	users := mapset.NewSet[int]()
	for _, interaction := range interactions {
		users.Add(interaction.UserID)
	}
	itemIDs := lo.Keys(items)
	sort.Ints(itemIDs)
	return &Dataset{
		Interactions: interactions,
		Items:        items,
		Users:        users,
		itemIDs:      itemIDs,
	}
}

// ItemIDs returns catalog item ids in ascending order.
func (d *Dataset) ItemIDs() []int {
	return d.itemIDs
}

// ItemCount returns the catalog size.
func (d *Dataset) ItemCount() int {
	return len(d.Items)
}

// UserCount returns the number of distinct users across interactions.
func (d *Dataset) UserCount() int {
	return d.Users.Cardinality()
}
