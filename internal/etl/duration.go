package etl

import (
	"math"
	"regexp"
	"strconv"
)

// isoDuration matches P[nW][nD][T[nH][nM][n[.f]S]]. Year and month
// designators have no fixed length in seconds and are rejected.
var isoDuration = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:[.,]\d+)?)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as "PT1H2M3S" or
// "P1DT30M" into whole seconds. Fractional seconds are truncated. The second
// return value is false when the input is not a usable duration.
func ParseISODuration(s string) (int64, bool) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	// "P" and "PT" alone carry no component.
	if m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "" {
		return 0, false
	}
	if len(s) > 1 && s[len(s)-1] == 'T' {
		return 0, false
	}

	units := []float64{7 * 86400, 86400, 3600, 60}
	var total float64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += float64(n) * unit
	}
	if m[5] != "" {
		secs, err := strconv.ParseFloat(normalizeDecimal(m[5]), 64)
		if err != nil {
			return 0, false
		}
		total += secs
	}

	if total > math.MaxInt64 {
		return 0, false
	}
	return int64(total), true
}

func normalizeDecimal(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == ',' {
			b[i] = '.'
		}
	}
	return string(b)
}
