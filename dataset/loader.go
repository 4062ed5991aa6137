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
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
)

// MovieLens ML-1M file layout: double-colon-delimited records.
//	ratings.dat	UserID::MovieID::Rating::Timestamp
//	movies.dat	MovieID::Title::Genre1|Genre2|...
const (
	separator    = "::"
	ratingsFile  = "ratings.dat"
	moviesFile   = "movies.dat"
	ratingFields = 4
	movieFields  = 3
)

// LoadDataset loads ratings.dat and movies.dat from a directory.
func LoadDataset(dir string) (*Dataset, error) {
	start := time.Now()
	ratingsReader, err := os.Open(filepath.Join(dir, ratingsFile))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer ratingsReader.Close()
	interactions, err := LoadRatings(ratingsReader)
	if err != nil {
		return nil, errors.Trace(err)
	}
	moviesReader, err := os.Open(filepath.Join(dir, moviesFile))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer moviesReader.Close()
	items, err := LoadItems(moviesReader)
	if err != nil {
		return nil, errors.Trace(err)
	}
	data := NewDataset(interactions, items)
	log.Logger().Info("dataset loaded",
		zap.String("dir", dir),
		zap.Int("n_interactions", len(data.Interactions)),
		zap.Int("n_users", data.UserCount()),
		zap.Int("n_items", data.ItemCount()),
		zap.Duration("load_time", time.Since(start)))
	return data, nil
}

// DatasetExists reports whether both dataset files exist in a directory.
func DatasetExists(dir string) bool {
	for _, name := range []string{ratingsFile, moviesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// LoadRatings parses a stream of userId::itemId::rating::timestamp records.
func LoadRatings(r io.Reader) ([]Interaction, error) {
	var interactions []Interaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if len(text) == 0 {
			continue
		}
		fields := strings.Split(text, separator)
		if len(fields) != ratingFields {
			return nil, errors.BadRequestf("malformed rating record at line %d: expected %d fields, got %d",
				line, ratingFields, len(fields))
		}
		userID, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.BadRequestf("malformed rating record at line %d: user id %q", line, fields[0])
		}
		itemID, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.BadRequestf("malformed rating record at line %d: item id %q", line, fields[1])
		}
		weight, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errors.BadRequestf("malformed rating record at line %d: rating %q", line, fields[2])
		}
		timestamp, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, errors.BadRequestf("malformed rating record at line %d: timestamp %q", line, fields[3])
		}
		interactions = append(interactions, Interaction{
			UserID:    userID,
			ItemID:    itemID,
			Weight:    weight,
			Timestamp: timestamp,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return interactions, nil
}

// LoadItems parses a stream of itemId::title::genre1|genre2 records.
func LoadItems(r io.Reader) (map[int]Item, error) {
	items := make(map[int]Item)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if len(text) == 0 {
			continue
		}
		fields := strings.Split(text, separator)
		if len(fields) != movieFields {
			return nil, errors.BadRequestf("malformed movie record at line %d: expected %d fields, got %d",
				line, movieFields, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.BadRequestf("malformed movie record at line %d: movie id %q", line, fields[0])
		}
		var genres []string
		for _, genre := range strings.Split(fields[2], "|") {
			if len(genre) > 0 {
				genres = append(genres, genre)
			}
		}
		items[id] = Item{
			ID:     id,
			Title:  fields[1],
			Genres: genres,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return items, nil
}
