package api

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/internal/query"
	"yt-analytics/shared/monitoring"
	"yt-analytics/shared/storage"
)

const (
	mostPositiveTop = 5
	keywordTop      = 10
	wordTop         = 100
	histogramBins   = 20
)

// StateSource publishes the artifacts served by the API.
type StateSource interface {
	Current() *storage.State
}

// Handler serves read-only views of the published dataset and model.
type Handler struct {
	source  StateSource
	monitor *monitoring.Monitor
	topN    int
	version string
	now     func() time.Time
}

// NewHandler creates a handler. topN is the default result size.
func NewHandler(source StateSource, monitor *monitoring.Monitor, topN int, version string) *Handler {
	return &Handler{
		source:  source,
		monitor: monitor,
		topN:    topN,
		version: version,
		now:     time.Now,
	}
}

func (h *Handler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if !h.monitor.IsHealthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Status(c *gin.Context) {
	state := h.source.Current()
	body := gin.H{
		"summary":      h.monitor.GetStatusSummary(),
		"healthy":      h.monitor.IsHealthy(),
		"videos":       len(state.Dataset),
		"model_loaded": state.Model != nil,
	}
	if !state.LoadedAt.IsZero() {
		body["loaded_at"] = state.LoadedAt.Format(time.RFC3339)
	}
	if state.Model != nil {
		body["model_trained_at"] = state.Model.TrainedAt.Format(time.RFC3339)
		if state.Model.Evaluation != nil {
			body["model_r2"] = state.Model.Evaluation.R2
		}
	}
	c.JSON(http.StatusOK, body)
}

// filtered derives and filters the current dataset for the request.
func (h *Handler) filtered(c *gin.Context, defaultSort query.SortKey) ([]models.VideoView, query.Request, bool) {
	req, err := parseRequest(c, h.topN, defaultSort)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, req, false
	}
	req.AsOf = h.now()
	views := query.Filter(query.DeriveAll(h.source.Current().Dataset, req.AsOf), req.Criteria)
	return views, req, true
}

func (h *Handler) Videos(c *gin.Context) {
	h.monitor.RecordQuery("videos")
	req, err := parseRequest(c, h.topN, query.SortViews)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.AsOf = h.now()

	videos := query.Run(h.source.Current().Dataset, req)
	c.JSON(http.StatusOK, gin.H{"count": len(videos), "videos": videos})
}

func (h *Handler) Trending(c *gin.Context) {
	h.monitor.RecordQuery("trending")
	views, req, ok := h.filtered(c, query.SortViewsPerDay)
	if !ok {
		return
	}
	videos := query.TopByViewsPerDay(views, req.Top)
	c.JSON(http.StatusOK, gin.H{"count": len(videos), "videos": videos})
}

func (h *Handler) Timeline(c *gin.Context) {
	h.monitor.RecordQuery("timeline")
	views, _, ok := h.filtered(c, query.SortPublished)
	if !ok {
		return
	}
	videos := query.Timeline(views)
	c.JSON(http.StatusOK, gin.H{"count": len(videos), "videos": videos})
}

func (h *Handler) Summary(c *gin.Context) {
	h.monitor.RecordQuery("summary")
	views, _, ok := h.filtered(c, query.SortNone)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, query.Summarize(views))
}

func (h *Handler) Keywords(c *gin.Context) {
	h.monitor.RecordQuery("keywords")
	views, _, ok := h.filtered(c, query.SortNone)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": query.KeywordCounts(views, keywordTop)})
}

func (h *Handler) Sentiment(c *gin.Context) {
	h.monitor.RecordQuery("sentiment")
	views, _, ok := h.filtered(c, query.SortNone)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"most_positive": query.MostPositive(views, mostPositiveTop),
		"histogram":     query.SentimentHistogram(views, histogramBins),
	})
}

func (h *Handler) Words(c *gin.Context) {
	h.monitor.RecordQuery("words")
	views, _, ok := h.filtered(c, query.SortNone)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": query.WordFrequencies(views, wordTop)})
}

// predictRequest uses pointers so omitted fields can be told apart from zero.
type predictRequest struct {
	DurationSec  *float64 `json:"duration_sec"`
	Likes        *float64 `json:"likes"`
	Comments     *float64 `json:"comments"`
	AvgSentiment *float64 `json:"avg_sentiment"`
}

func (h *Handler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if req.DurationSec == nil || req.Likes == nil || req.Comments == nil || req.AvgSentiment == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_sec, likes, comments and avg_sentiment are required"})
		return
	}

	f := models.Features{
		DurationSec:  *req.DurationSec,
		Likes:        *req.Likes,
		Comments:     *req.Comments,
		AvgSentiment: *req.AvgSentiment,
	}
	if err := f.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := h.source.Current().Model
	if model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no trained model available"})
		return
	}

	pred := model.Predict(f)
	if math.IsInf(pred, 0) || math.IsNaN(pred) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "features are outside the range the model can predict"})
		return
	}
	h.monitor.RecordPrediction()
	c.JSON(http.StatusOK, gin.H{
		"predicted_views":         pred,
		"predicted_views_display": predictor.ClampViews(pred),
	})
}

