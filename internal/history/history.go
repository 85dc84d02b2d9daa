package history

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/storage"
)

// DefaultWindow is used when a command gives no window.
const DefaultWindow = 24 * time.Hour

// Delta is the signed price movement of one title over a window: last
// observation minus first. Both bounds carry their timestamp and stock
// status so a drop to out-of-stock reads differently from a real discount.
// Titles with fewer than two points are excluded.
type Delta struct {
	Title       string
	Model       string
	First       decimal.Decimal
	Last        decimal.Decimal
	Diff        decimal.Decimal
	FirstTS     time.Time
	LastTS      time.Time
	FirstStatus normalize.Status
	LastStatus  normalize.Status
}

// Deltas computes per-title movements from history points, ordered by the
// largest absolute change first, then by title. Points within a title may
// arrive unsorted.
func Deltas(points map[string][]storage.HistoryPoint) []Delta {
	var out []Delta
	for title, pts := range points {
		if len(pts) < 2 {
			continue
		}
		sorted := make([]storage.HistoryPoint, len(pts))
		copy(sorted, pts)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].TS.Before(sorted[j].TS) })

		first, last := sorted[0], sorted[len(sorted)-1]
		out = append(out, Delta{
			Title:       title,
			Model:       last.Model,
			First:       first.SitePrice,
			Last:        last.SitePrice,
			Diff:        last.SitePrice.Sub(first.SitePrice),
			FirstTS:     first.TS,
			LastTS:      last.TS,
			FirstStatus: first.Status,
			LastStatus:  last.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Diff.Abs(), out[j].Diff.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

var windowRE = regexp.MustCompile(`^(\d+)\s*(h|d|ч|д)?$`)

// ParseWindow accepts Go durations ("24h", "90m"), bare digit forms with an
// hour or day suffix in either alphabet ("12ч", "7д", "7d"), and a bare
// number meaning seconds. Empty input falls back to DefaultWindow.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultWindow, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("window must be positive: %q", s)
		}
		return d, nil
	}
	m := windowRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("cannot parse window %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("cannot parse window %q", s)
	}
	switch m[2] {
	case "h", "ч":
		return time.Duration(n) * time.Hour, nil
	case "d", "д":
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return time.Duration(n) * time.Second, nil
	}
}

// Aggregator reads price history for reporting commands.
type Aggregator struct {
	store interface {
		storage.HistoryStore
		DailyRollup(ctx context.Context, title string, since time.Time) ([]storage.DailyStat, error)
	}
}

func NewAggregator(store *storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// DeltasSince loads history for the given titles over the window and reduces
// it to per-title movements. An empty titles slice means all titles.
func (a *Aggregator) DeltasSince(ctx context.Context, titles []string, window time.Duration) ([]Delta, error) {
	points, err := a.store.ListHistorySince(ctx, titles, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return Deltas(points), nil
}

// Rollup returns daily min/max/count stats for one title.
func (a *Aggregator) Rollup(ctx context.Context, title string, window time.Duration) ([]storage.DailyStat, error) {
	stats, err := a.store.DailyRollup(ctx, title, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("daily rollup: %w", err)
	}
	return stats, nil
}
