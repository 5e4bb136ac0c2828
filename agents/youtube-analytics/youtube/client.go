// Package youtube fetches search results, video payloads and comments from
// the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"yt-analytics/internal/models"
	"yt-analytics/shared/config"
	"yt-analytics/shared/logger"
	"yt-analytics/shared/retry"
)

const (
	// API page and batch limits.
	maxSearchPage   = 50
	maxVideoBatch   = 50
	maxCommentsPage = 100
)

type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
	retry   retry.Config
	log     logger.Logger
}

// NewClient authenticates with the API key when one is configured and with
// the stored OAuth token otherwise. Extra options are applied last.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, log logger.Logger, opts ...option.ClientOption) (*Client, error) {
	var auth []option.ClientOption
	if cfg.APIKey != "" {
		auth = append(auth, option.WithAPIKey(cfg.APIKey))
	} else {
		oauthConfig := newOAuthConfig(cfg)
		token, err := getToken(ctx, oauthConfig, cfg.TokenFile, os.Stderr, log)
		if err != nil {
			return nil, fmt.Errorf("failed to get OAuth token: %w", err)
		}
		tokenSource := &tokenSaver{
			config:    oauthConfig,
			token:     token,
			tokenFile: cfg.TokenFile,
			log:       log,
		}
		auth = append(auth, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	}

	service, err := youtube.NewService(ctx, append(auth, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return newClient(service, cfg.RequestsPerSecond, log), nil
}

func newClient(service *youtube.Service, requestsPerSecond float64, log logger.Logger) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = 4
	rc.InitialDelay = 500 * time.Millisecond
	rc.IsRetryable = isRetryable
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("Retrying YouTube API call",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
		retry:   rc,
		log:     log,
	}
}

// isRetryable retries throttling and server errors. Quota exhaustion is
// reported as 403 and is not retried.
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return retry.DefaultIsRetryable(err)
}

// call paces and retries one API request.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// SearchVideoIDs returns up to max video ids matching query, in result order.
func (c *Client) SearchVideoIDs(ctx context.Context, query string, max int) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	pageToken := ""

	for len(ids) < max {
		pageSize := min(max-len(ids), maxSearchPage)

		var resp *youtube.SearchListResponse
		err := c.call(ctx, func(ctx context.Context) error {
			call := c.service.Search.List([]string{"id"}).
				Q(query).
				Type("video").
				MaxResults(int64(pageSize)).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search videos: %w", err)
		}

		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" || seen[item.Id.VideoId] {
				continue
			}
			seen[item.Id.VideoId] = true
			ids = append(ids, item.Id.VideoId)
			if len(ids) == max {
				break
			}
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	c.log.Info("Search completed", logger.String("query", query), logger.Int("videos", len(ids)))
	return ids, nil
}

// FetchVideos returns the snippet, statistics and content details of ids,
// requested in batches of 50. Unknown ids are silently absent.
func (c *Client) FetchVideos(ctx context.Context, ids []string) ([]models.RawVideo, error) {
	var videos []models.RawVideo

	for i := 0; i < len(ids); i += maxVideoBatch {
		batch := ids[i:min(i+maxVideoBatch, len(ids))]

		var resp *youtube.VideoListResponse
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			resp, err = c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
				Id(strings.Join(batch, ",")).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get video details: %w", err)
		}

		for _, item := range resp.Items {
			raw, err := toRawVideo(item)
			if err != nil {
				return nil, fmt.Errorf("failed to convert video %s: %w", item.Id, err)
			}
			videos = append(videos, raw)
		}
	}

	return videos, nil
}

// toRawVideo goes through the API's own JSON form so the payload matches what
// videos.list returns on the wire.
func toRawVideo(v *youtube.Video) (models.RawVideo, error) {
	var raw models.RawVideo
	data, err := json.Marshal(v)
	if err != nil {
		return raw, err
	}
	err = json.Unmarshal(data, &raw)
	return raw, err
}

// FetchComments returns up to max top-level comment texts of a video. Videos
// with comments disabled yield no comments.
func (c *Client) FetchComments(ctx context.Context, videoID string, max int) ([]string, error) {
	comments := []string{}
	pageToken := ""

	for len(comments) < max {
		var resp *youtube.CommentThreadListResponse
		err := c.call(ctx, func(ctx context.Context) error {
			call := c.service.CommentThreads.List([]string{"snippet"}).
				VideoId(videoID).
				MaxResults(int64(min(max-len(comments), maxCommentsPage))).
				TextFormat("plainText").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			if commentsUnavailable(err) {
				c.log.Warn("Comments unavailable", logger.String("video_id", videoID), logger.Error(err))
				return comments, nil
			}
			return nil, fmt.Errorf("failed to get comments for %s: %w", videoID, err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			comments = append(comments, item.Snippet.TopLevelComment.Snippet.TextDisplay)
			if len(comments) == max {
				break
			}
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	return comments, nil
}

// commentsUnavailable matches disabled comments (403 commentsDisabled) and
// videos that disappeared between listing and fetching (404).
func commentsUnavailable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusNotFound {
		return true
	}
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if item.Reason == "commentsDisabled" || item.Reason == "forbidden" {
			return true
		}
	}
	return len(apiErr.Errors) == 0
}
