package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/shared/logger"
	"yt-analytics/shared/monitoring"
	"yt-analytics/shared/storage"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type staticSource struct{ state *storage.State }

func (s staticSource) Current() *storage.State { return s.state }

func testDataset() models.Dataset {
	return models.Dataset{
		{VideoID: "a", Title: "Intro to Go", Description: "learn go fast", Views: 5000, Likes: 400, Comments: 100,
			TopKeyword: "go", PublishedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), AvgSentiment: models.Float64Ptr(0.4)},
		{VideoID: "b", Title: "Rust ownership", Views: 800, Likes: 10, Comments: 2,
			TopKeyword: "rust", PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{VideoID: "c", Title: "Advanced Go generics", Views: 12000, Likes: 300, Comments: 50,
			TopKeyword: "go", PublishedAt: time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC), AvgSentiment: models.Float64Ptr(-0.2)},
		{VideoID: "d", Title: "Zig comptime", Views: 1000, Likes: 90, Comments: 20,
			PublishedAt: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), AvgSentiment: models.Float64Ptr(0.9)},
	}
}

func testModel() *predictor.Model {
	return &predictor.Model{
		Version:   predictor.ModelVersion,
		Intercept: -500,
		Features:  models.FeatureNames,
		Weights:   []float64{1, 10, 5, 100},
		TrainedAt: testNow,
	}
}

func setupRouter(t *testing.T, state *storage.State) (*gin.Engine, *monitoring.Monitor) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	monitor := monitoring.NewMonitor(logger.NewNop())
	h := NewHandler(staticSource{state: state}, monitor, 10, "test")
	h.now = func() time.Time { return testNow }
	return NewRouter(h, monitor, logger.NewNop()), monitor
}

func get(t *testing.T, r http.Handler, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func videoIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	list, ok := body["videos"].([]any)
	require.True(t, ok, "videos field missing: %v", body)
	ids := make([]string, 0, len(list))
	for _, v := range list {
		ids = append(ids, v.(map[string]any)["video_id"].(string))
	}
	return ids
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{})
	w, body := get(t, r, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestStatus(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset(), Model: testModel(), LoadedAt: testNow})
	w, body := get(t, r, "/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), body["videos"])
	assert.Equal(t, true, body["model_loaded"])
}

func TestVideos(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset()})

	tests := []struct {
		name string
		url  string
		want []string
	}{
		{"default sorts by views", "/api/v1/videos", []string{"c", "a", "d", "b"}},
		{"top", "/api/v1/videos?top=2", []string{"c", "a"}},
		{"keyword", "/api/v1/videos?keyword=go", []string{"c", "a"}},
		{"keyword list", "/api/v1/videos?keyword=rust,go&sort=published", []string{"c", "a", "b"}},
		{"min views", "/api/v1/videos?min_views=1000&sort=", []string{"a", "c", "d"}},
		{"title search", "/api/v1/videos?q=GO", []string{"c", "a"}},
		{"title search keeps spaces", "/api/v1/videos?q=%20go%20", []string{"c"}},
		{"title search of a space", "/api/v1/videos?q=%20", []string{"c", "a", "d", "b"}},
		{"empty title search", "/api/v1/videos?q=", []string{"c", "a", "d", "b"}},
		{"date range end of day", "/api/v1/videos?from=2025-01-10&to=2025-03-01", []string{"a", "b"}},
		{"engagement", "/api/v1/videos?min_engagement=10", []string{"a", "d"}},
		{"no match", "/api/v1/videos?min_views=999999", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := get(t, r, tt.url)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, videoIDs(t, body))
		})
	}
}

func TestVideosBadParams(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset()})

	for _, url := range []string{
		"/api/v1/videos?min_views=-1",
		"/api/v1/videos?min_views=ten",
		"/api/v1/videos?min_engagement=120",
		"/api/v1/videos?from=yesterday",
		"/api/v1/videos?top=-3",
		"/api/v1/videos?sort=likes",
		"/api/v1/trending?to=2025-13-01",
	} {
		w, body := get(t, r, url)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
		assert.Contains(t, body, "error")
	}
}

func TestTrending(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset()})
	w, body := get(t, r, "/api/v1/trending?top=1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"d"}, videoIDs(t, body))
}

func TestTimeline(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset()})
	_, body := get(t, r, "/api/v1/timeline?keyword=go")
	assert.Equal(t, []string{"c", "a"}, videoIDs(t, body))
}

func TestSummaryEndpoints(t *testing.T) {
	r, monitor := setupRouter(t, &storage.State{Dataset: testDataset()})

	_, summary := get(t, r, "/api/v1/summary")
	assert.Equal(t, float64(4), summary["videos"])
	assert.Equal(t, float64(18800), summary["total_views"])

	_, kw := get(t, r, "/api/v1/keywords")
	keywords := kw["keywords"].([]any)
	require.Len(t, keywords, 2)
	assert.Equal(t, "go", keywords[0].(map[string]any)["term"])

	_, sentiment := get(t, r, "/api/v1/sentiment")
	assert.Len(t, sentiment["most_positive"], 3)
	assert.Len(t, sentiment["histogram"], histogramBins)

	_, words := get(t, r, "/api/v1/words?keyword=go")
	first := words["words"].([]any)[0].(map[string]any)
	assert.Equal(t, "go", first["term"])

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `yt_analytics_queries_total{endpoint="summary"} 1`)
	assert.True(t, monitor.IsHealthy())
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPredict(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset(), Model: testModel()})

	w := post(r, `{"duration_sec": 300, "likes": 20, "comments": 4, "avg_sentiment": 0.5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, -500+300+200+20+50, resp["predicted_views"], 1e-9)
	assert.Equal(t, float64(70), resp["predicted_views_display"])

	w = post(r, `{"duration_sec": 0, "likes": 0, "comments": 0, "avg_sentiment": 0}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(-500), resp["predicted_views"])
	assert.Equal(t, float64(0), resp["predicted_views_display"], "negative predictions display as zero")
}

func TestPredictInvalid(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Model: testModel()})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `not json`, http.StatusBadRequest},
		{"missing fields", `{"likes": 1}`, http.StatusBadRequest},
		{"negative likes", `{"duration_sec": 10, "likes": -1, "comments": 0, "avg_sentiment": 0}`, http.StatusBadRequest},
		{"sentiment out of range", `{"duration_sec": 10, "likes": 1, "comments": 0, "avg_sentiment": 1.5}`, http.StatusBadRequest},
		{"prediction overflows", `{"duration_sec": 0, "likes": 1e308, "comments": 0, "avg_sentiment": 0}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, tt.body)
			assert.Equal(t, tt.want, w.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestPredictWithoutModel(t *testing.T) {
	r, _ := setupRouter(t, &storage.State{Dataset: testDataset()})

	w := post(r, `{"duration_sec": 10, "likes": 1, "comments": 0, "avg_sentiment": 0}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, body := get(t, r, "/api/v1/videos")
	assert.Len(t, videoIDs(t, body), 4, "browsing works without a model")
}
