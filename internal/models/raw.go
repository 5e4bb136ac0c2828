package models

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// RawVideo is a video resource as the platform returns it from videos.list.
// Only the groups the pipeline reads are decoded.
type RawVideo struct {
	ID             string            `json:"id"`
	Snippet        RawSnippet        `json:"snippet"`
	Statistics     RawStatistics     `json:"statistics"`
	ContentDetails RawContentDetails `json:"contentDetails"`
}

type RawSnippet struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
}

type RawStatistics struct {
	ViewCount    Counter `json:"viewCount"`
	LikeCount    Counter `json:"likeCount"`
	CommentCount Counter `json:"commentCount"`
}

type RawContentDetails struct {
	Duration string `json:"duration"`
}

// Counter is a statistics value. The platform sends counts as decimal
// strings, hidden counts are omitted or null, and older dumps carry numbers.
// Decoding never fails: unusable input is flagged Invalid instead.
type Counter struct {
	Value   int64
	Present bool
	Invalid bool
}

func (c *Counter) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		*c = Counter{}
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*c = Counter{}
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
			*c = Counter{Invalid: true}
			return nil
		}
		n = int64(f)
	}
	if n < 0 {
		*c = Counter{Invalid: true}
		return nil
	}

	*c = Counter{Value: n, Present: true}
	return nil
}

func (c Counter) MarshalJSON() ([]byte, error) {
	if !c.Present {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(strconv.FormatInt(c.Value, 10))), nil
}
