package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"yt-analytics/internal/models"
	"yt-analytics/internal/query"
)

// parseRequest reads the shared filter, ranking and paging parameters.
func parseRequest(c *gin.Context, defaultTop int, defaultSort query.SortKey) (query.Request, error) {
	var req query.Request
	var err error

	if req.Criteria, err = parseCriteria(c); err != nil {
		return req, err
	}

	req.Top = defaultTop
	if s := c.Query("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return req, fmt.Errorf("top must be a non-negative integer, got %q", s)
		}
		req.Top = n
	}

	req.Sort = defaultSort
	if s, ok := c.GetQuery("sort"); ok {
		key, valid := query.ParseSortKey(s)
		if !valid {
			return req, fmt.Errorf("unknown sort %q", s)
		}
		req.Sort = key
	}
	return req, nil
}

func parseCriteria(c *gin.Context) (models.FilterCriteria, error) {
	var fc models.FilterCriteria
	var err error

	if s := c.Query("from"); s != "" {
		if fc.DateRange.From, err = query.ParseDateBound(s, false); err != nil {
			return fc, fmt.Errorf("from: %w", err)
		}
	}
	if s := c.Query("to"); s != "" {
		if fc.DateRange.To, err = query.ParseDateBound(s, true); err != nil {
			return fc, fmt.Errorf("to: %w", err)
		}
	}

	for _, v := range c.QueryArray("keyword") {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				fc.Keywords = append(fc.Keywords, k)
			}
		}
	}

	if fc.MinViews, err = nonNegativeInt(c, "min_views"); err != nil {
		return fc, err
	}
	if fc.MinLikes, err = nonNegativeInt(c, "min_likes"); err != nil {
		return fc, err
	}
	if s := c.Query("min_engagement"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 100 {
			return fc, fmt.Errorf("min_engagement must be a percentage in [0,100], got %q", s)
		}
		fc.MinEngagementPct = v
	}

	fc.TitleSubstring = c.Query("q")
	return fc, nil
}

func nonNegativeInt(c *gin.Context, name string) (int64, error) {
	s := c.Query(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return v, nil
}
