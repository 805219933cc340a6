package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// SortKey orders a media listing.
type SortKey string

const (
	SortNone  SortKey = ""
	SortTitle SortKey = "title"
	SortDate  SortKey = "date"
)

// SortKeys lists the accepted --sort values.
var SortKeys = []string{string(SortTitle), string(SortDate)}

// ParseSortKey validates s; an empty string keeps the server's order.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortTitle, SortDate:
		return k, nil
	default:
		return SortNone, fmt.Errorf("%w: sort must be one of %s", shared.ErrInvalidFlag, strings.Join(SortKeys, ", "))
	}
}

// MediaQuery filters and orders a listing client-side.
//
// Facets match genre for music and category for videos and livestreams, case-insensitively;
// an item passes when it matches any facet. Items without a parseable date sort last either way.
type MediaQuery struct {
	Facets []string
	Sort   SortKey
	Desc   bool
}

// Music applies q to items and returns a new slice.
func (q MediaQuery) Music(items []models.Music) []models.Music {
	return apply(q, items,
		func(m models.Music) string { return m.Genre },
		func(m models.Music) string { return m.Title },
		func(m models.Music) time.Time { return firstDate(m.CreatedAt, m.ReleaseDate) },
	)
}

// Videos applies q to items and returns a new slice.
func (q MediaQuery) Videos(items []models.Video) []models.Video {
	return apply(q, items,
		func(v models.Video) string { return v.Category },
		func(v models.Video) string { return v.Title },
		func(v models.Video) time.Time { return firstDate(v.CreatedAt) },
	)
}

// Livestreams applies q to items and returns a new slice. Streams are dated by their schedule.
func (q MediaQuery) Livestreams(items []models.Livestream) []models.Livestream {
	return apply(q, items,
		func(s models.Livestream) string { return s.Category },
		func(s models.Livestream) string { return s.Title },
		func(s models.Livestream) time.Time {
			if s.ScheduledAt == nil {
				return time.Time{}
			}
			return *s.ScheduledAt
		},
	)
}

func apply[T any](q MediaQuery, items []T, facet, title func(T) string, date func(T) time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q.matches(facet(it)) {
			out = append(out, it)
		}
	}

	var compare func(a, b T) int
	switch q.Sort {
	case SortTitle:
		compare = func(a, b T) int {
			return cmp.Compare(strings.ToLower(title(a)), strings.ToLower(title(b)))
		}
	case SortDate:
		compare = func(a, b T) int {
			return date(a).Compare(date(b))
		}
	default:
		return out
	}

	slices.SortStableFunc(out, func(a, b T) int {
		if q.Sort == SortDate {
			// zero dates stay at the end regardless of direction
			da, db := date(a), date(b)
			if da.IsZero() != db.IsZero() {
				if da.IsZero() {
					return 1
				}
				return -1
			}
		}
		c := compare(a, b)
		if q.Desc {
			return -c
		}
		return c
	})
	return out
}

func (q MediaQuery) matches(value string) bool {
	if len(q.Facets) == 0 {
		return true
	}
	for _, f := range q.Facets {
		if strings.EqualFold(strings.TrimSpace(f), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

// firstDate parses the first value that is an RFC3339 timestamp or a plain date.
func firstDate(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
