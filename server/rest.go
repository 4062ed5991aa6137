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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/dataset"
)

// RestServer exposes the registry over HTTP JSON. Recommendation responses
// are cached per (user, model, n) for a short TTL and the cache entries of a
// user are dropped when that user submits a rating.
type RestServer struct {
	Registry   *Registry
	HttpHost   string
	HttpPort   int
	WebService *restful.WebService

	recommendCache *ttlcache.Cache[string, []RecommendedItem]
}

// NewRestServer creates a REST server around a registry.
func NewRestServer(registry *Registry, host string, port int, cacheTTL time.Duration) *RestServer {
	return &RestServer{
		Registry:       registry,
		HttpHost:       host,
		HttpPort:       port,
		WebService:     new(restful.WebService),
		recommendCache: ttlcache.New(ttlcache.WithTTL[string, []RecommendedItem](cacheTTL)),
	}
}

// StartHttpServer starts the REST API server. It blocks until the listener
// fails.
func (s *RestServer) StartHttpServer() {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	http.Handle("/", container)
	http.Handle("/metrics", promhttp.Handler())
	go s.recommendCache.Start()
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort), nil)))
}

// LogFilter logs every request with its status code.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()))
}

// CreateWebService registers the routes.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Check the health of the server."))
	ws.Route(ws.GET("/models").To(s.getModels).
		Doc("List registered model names."))
	ws.Route(ws.GET("/recommendations/{user-id}").To(s.getRecommendations).
		Doc("Get recommendations for a user.").
		Param(ws.PathParameter("user-id", "id of the user").DataType("integer")).
		Param(ws.QueryParameter("model", "name of the model").DataType("string")).
		Param(ws.QueryParameter("n", "number of recommendations").DataType("integer")))
	ws.Route(ws.GET("/movies/{movie-id}").To(s.getMovie).
		Doc("Get a movie by id.").
		Param(ws.PathParameter("movie-id", "id of the movie").DataType("integer")))
	ws.Route(ws.GET("/movies/search/{query}").To(s.searchMovies).
		Doc("Search movies by title substring.").
		Param(ws.PathParameter("query", "substring to match").DataType("string")).
		Param(ws.QueryParameter("limit", "maximum number of results").DataType("integer")))
	ws.Route(ws.GET("/users/random").To(s.getRandomUsers).
		Doc("Sample user ids with replacement.").
		Param(ws.QueryParameter("count", "number of users").DataType("integer")))
	ws.Route(ws.GET("/users/next-id").To(s.getNextUserID).
		Doc("Get the next unused user id."))
	ws.Route(ws.GET("/ratings/{user-id}/{item-id}").To(s.getRating).
		Doc("Get a user's rating for an item.").
		Param(ws.PathParameter("user-id", "id of the user").DataType("integer")).
		Param(ws.PathParameter("item-id", "id of the item").DataType("integer")))
	ws.Route(ws.POST("/ratings").To(s.postRating).
		Doc("Insert or update a rating."))
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	Ok(response, HealthResponse{Status: "ok", Models: s.Registry.ModelNames()})
}

// ModelsResponse is the payload of GET /models.
type ModelsResponse struct {
	Models []string `json:"models"`
}

func (s *RestServer) getModels(_ *restful.Request, response *restful.Response) {
	Ok(response, ModelsResponse{Models: s.Registry.ModelNames()})
}

// RecommendationsResponse is the payload of GET /recommendations/{user-id}.
type RecommendationsResponse struct {
	UserID          int               `json:"userId"`
	Model           string            `json:"model"`
	Recommendations []RecommendedItem `json:"recommendations"`
}

func (s *RestServer) getRecommendations(request *restful.Request, response *restful.Response) {
	start := time.Now()
	userID, err := parsePathInt(request, "user-id")
	if err != nil {
		writeError(response, err)
		return
	}
	modelName := request.QueryParameter("model")
	if modelName == "" {
		modelName = "Popularity"
	}
	n, err := parseQueryInt(request, "n", 10)
	if err != nil {
		writeError(response, err)
		return
	}
	cacheKey := recommendCacheKey(userID, modelName, n)
	if entry := s.recommendCache.Get(cacheKey); entry != nil {
		Ok(response, RecommendationsResponse{
			UserID:          userID,
			Model:           modelName,
			Recommendations: entry.Value(),
		})
		return
	}
	recommendations, err := s.Registry.Recommend(request.Request.Context(), userID, modelName, n)
	if err != nil {
		writeError(response, err)
		return
	}
	s.recommendCache.Set(cacheKey, recommendations, ttlcache.DefaultTTL)
	RecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, RecommendationsResponse{
		UserID:          userID,
		Model:           modelName,
		Recommendations: recommendations,
	})
}

func recommendCacheKey(userID int, modelName string, n int) string {
	return fmt.Sprintf("%d/%s/%d", userID, modelName, n)
}

func (s *RestServer) getMovie(request *restful.Request, response *restful.Response) {
	itemID, err := parsePathInt(request, "movie-id")
	if err != nil {
		writeError(response, err)
		return
	}
	item, err := s.Registry.Movie(itemID)
	if err != nil {
		writeError(response, err)
		return
	}
	Ok(response, item)
}

// SearchResponse is the payload of GET /movies/search/{query}.
type SearchResponse struct {
	Results []dataset.Item `json:"results"`
}

func (s *RestServer) searchMovies(request *restful.Request, response *restful.Response) {
	limit, err := parseQueryInt(request, "limit", 20)
	if err != nil {
		writeError(response, err)
		return
	}
	results, err := s.Registry.SearchMovies(request.PathParameter("query"), limit)
	if err != nil {
		writeError(response, err)
		return
	}
	Ok(response, SearchResponse{Results: results})
}

// UsersResponse is the payload of GET /users/random.
type UsersResponse struct {
	Users []int `json:"users"`
}

func (s *RestServer) getRandomUsers(request *restful.Request, response *restful.Response) {
	count, err := parseQueryInt(request, "count", 1)
	if err != nil {
		writeError(response, err)
		return
	}
	users, err := s.Registry.RandomUsers(count)
	if err != nil {
		writeError(response, err)
		return
	}
	Ok(response, UsersResponse{Users: users})
}

// NextUserIDResponse is the payload of GET /users/next-id.
type NextUserIDResponse struct {
	NextUserID int `json:"nextUserId"`
}

func (s *RestServer) getNextUserID(_ *restful.Request, response *restful.Response) {
	nextUserID, err := s.Registry.NextUserID()
	if err != nil {
		writeError(response, err)
		return
	}
	Ok(response, NextUserIDResponse{NextUserID: nextUserID})
}

// RatingResponse is the payload of GET /ratings/{user-id}/{item-id}.
type RatingResponse struct {
	Rated     bool    `json:"rated"`
	Rating    float64 `json:"rating,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

func (s *RestServer) getRating(request *restful.Request, response *restful.Response) {
	userID, err := parsePathInt(request, "user-id")
	if err != nil {
		writeError(response, err)
		return
	}
	itemID, err := parsePathInt(request, "item-id")
	if err != nil {
		writeError(response, err)
		return
	}
	interaction, rated, err := s.Registry.UserRating(userID, itemID)
	if err != nil {
		writeError(response, err)
		return
	}
	if !rated {
		Ok(response, RatingResponse{Rated: false})
		return
	}
	Ok(response, RatingResponse{
		Rated:     true,
		Rating:    interaction.Weight,
		Timestamp: interaction.Timestamp,
	})
}

// RatingRequest is the body of POST /ratings.
type RatingRequest struct {
	UserID  int     `json:"userId"`
	MovieID int     `json:"movieId"`
	Rating  float64 `json:"rating"`
}

// RatingResult is the payload of POST /ratings.
type RatingResult struct {
	Success bool    `json:"success"`
	Action  string  `json:"action"`
	Rating  float64 `json:"rating"`
}

func (s *RestServer) postRating(request *restful.Request, response *restful.Response) {
	var body RatingRequest
	if err := request.ReadEntity(&body); err != nil {
		writeError(response, errors.BadRequestf("malformed rating body: %v", err))
		return
	}
	action, err := s.Registry.InsertRating(body.UserID, body.MovieID, body.Rating)
	if err != nil {
		writeError(response, err)
		return
	}
	RatingsIngestedTotal.Inc()
	s.invalidateUser(body.UserID)
	Ok(response, RatingResult{Success: true, Action: action, Rating: body.Rating})
}

// invalidateUser drops the user's cached recommendation responses so the next
// request observes the new live rating.
func (s *RestServer) invalidateUser(userID int) {
	prefix := strconv.Itoa(userID) + "/"
	for _, key := range s.recommendCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.recommendCache.Delete(key)
		}
	}
}

func parsePathInt(request *restful.Request, name string) (int, error) {
	value, err := strconv.Atoi(request.PathParameter(name))
	if err != nil {
		return 0, errors.BadRequestf("%s must be an integer", name)
	}
	return value, nil
}

func parseQueryInt(request *restful.Request, name string, fallback int) (int, error) {
	raw := request.QueryParameter(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.BadRequestf("%s must be a non-negative integer", name)
	}
	return value, nil
}

// Ok writes a JSON body with status 200.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes: bad requests to
// 400, unknown models/items to 404, an unattached dataset or a timed out
// request to 503, anything else to 500.
func writeError(response *restful.Response, err error) {
	var statusCode int
	switch {
	case errors.Is(err, errors.BadRequest):
		statusCode = http.StatusBadRequest
	case errors.Is(err, errors.NotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, errors.NotProvisioned), errors.Is(err, errors.Timeout):
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("request failed",
		zap.Int("status_code", statusCode), zap.Error(err))
	if err = response.WriteError(statusCode, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}
