package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/storage"
)

func point(title string, offset time.Duration, price int64, status normalize.Status) storage.HistoryPoint {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return storage.HistoryPoint{
		Title:     title,
		Model:     "iPhone 16",
		TS:        base.Add(offset),
		SitePrice: decimal.NewFromInt(price),
		Status:    status,
	}
}

func TestDeltas(t *testing.T) {
	points := map[string][]storage.HistoryPoint{
		"a": { // unsorted on purpose
			point("a", time.Hour, 90000, normalize.StatusOutOfStock),
			point("a", 0, 92000, normalize.StatusInStock),
		},
		"b": {
			point("b", 0, 50000, normalize.StatusInStock),
			point("b", 2*time.Hour, 55000, normalize.StatusInStock),
		},
		"c": {point("c", 0, 70000, normalize.StatusInStock)}, // single point, excluded
	}

	deltas := Deltas(points)
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d: %+v", len(deltas), deltas)
	}

	// b moved +5000, a moved -2000; b sorts first on absolute change.
	if deltas[0].Title != "b" || !deltas[0].Diff.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("deltas[0] = %+v", deltas[0])
	}
	if deltas[1].Title != "a" || !deltas[1].Diff.Equal(decimal.NewFromInt(-2000)) {
		t.Errorf("deltas[1] = %+v", deltas[1])
	}
	if !deltas[1].First.Equal(decimal.NewFromInt(92000)) || !deltas[1].Last.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("points must be time-ordered before diffing: %+v", deltas[1])
	}

	// Each bound carries its own status and timestamp; a drop that coincides
	// with going out of stock is visible as such.
	if deltas[1].FirstStatus != normalize.StatusInStock || deltas[1].LastStatus != normalize.StatusOutOfStock {
		t.Errorf("delta statuses = %s → %s", deltas[1].FirstStatus, deltas[1].LastStatus)
	}
	if deltas[1].LastTS.Sub(deltas[1].FirstTS) != time.Hour {
		t.Errorf("delta timestamps = %s → %s", deltas[1].FirstTS, deltas[1].LastTS)
	}
}

func TestDeltasEmpty(t *testing.T) {
	if got := Deltas(nil); len(got) != 0 {
		t.Fatalf("expected no deltas, got %+v", got)
	}
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", DefaultWindow},
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"12ч", 12 * time.Hour},
		{"3д", 3 * 24 * time.Hour},
		{"3600", 3600 * time.Second},
		{" 7D ", 7 * 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := ParseWindow(c.in)
		if err != nil {
			t.Errorf("ParseWindow(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseWindow(%q) = %s, want %s", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"abc", "-5h", "0", "7x"} {
		if _, err := ParseWindow(bad); err == nil {
			t.Errorf("ParseWindow(%q) should fail", bad)
		}
	}
}
