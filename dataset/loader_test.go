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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ratingsData = `1::10::5::978300760
1::20::3::978302109
2::10::4::978301968
`

const moviesData = `10::Toy Story (1995)::Animation|Children's|Comedy
20::Jumanji (1995)::Adventure|Children's|Fantasy
30::Heat (1995)::Action|Crime|Thriller
`

func TestLoadRatings(t *testing.T) {
	interactions, err := LoadRatings(strings.NewReader(ratingsData))
	require.NoError(t, err)
	require.Len(t, interactions, 3)
	assert.Equal(t, Interaction{UserID: 1, ItemID: 10, Weight: 5, Timestamp: 978300760}, interactions[0])
	assert.Equal(t, Interaction{UserID: 2, ItemID: 10, Weight: 4, Timestamp: 978301968}, interactions[2])
}

func TestLoadRatingsMalformed(t *testing.T) {
	cases := []string{
		"1::10::5",             // missing field
		"a::10::5::978300760",  // non-numeric user id
		"1::x::5::978300760",   // non-numeric item id
		"1::10::bad::1",        // non-numeric rating
		"1::10::5::yesterday",  // non-numeric timestamp
		"1::10::5::1::6",       // extra field
	}
	for _, text := range cases {
		_, err := LoadRatings(strings.NewReader(text))
		assert.True(t, errors.Is(err, errors.BadRequest), text)
	}
}

func TestLoadItems(t *testing.T) {
	items, err := LoadItems(strings.NewReader(moviesData))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Toy Story (1995)", items[10].Title)
	assert.Equal(t, []string{"Animation", "Children's", "Comedy"}, items[10].Genres)
	assert.Equal(t, []string{"Action", "Crime", "Thriller"}, items[30].Genres)
}

func TestLoadItemsMalformed(t *testing.T) {
	_, err := LoadItems(strings.NewReader("10::Toy Story (1995)"))
	assert.True(t, errors.Is(err, errors.BadRequest))
	_, err = LoadItems(strings.NewReader("x::Toy Story (1995)::Comedy"))
	assert.True(t, errors.Is(err, errors.BadRequest))
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.dat"), []byte(ratingsData), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movies.dat"), []byte(moviesData), 0o644))
	assert.True(t, DatasetExists(dir))

	data, err := LoadDataset(dir)
	require.NoError(t, err)
	assert.Len(t, data.Interactions, 3)
	assert.Equal(t, 2, data.UserCount())
	assert.Equal(t, 3, data.ItemCount())
	assert.Equal(t, []int{10, 20, 30}, data.ItemIDs())
	assert.True(t, data.Users.Contains(1))
	assert.True(t, data.Users.Contains(2))

	assert.False(t, DatasetExists(t.TempDir()))
}
