package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/senoxone/qbshop/internal/history"
)

// Deltas prints per-title price movement over a window, largest change first.
func (a *App) Deltas(ctx context.Context, window time.Duration) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	deltas, err := history.NewAggregator(store).DeltasSince(ctx, nil, window)
	if err != nil {
		return err
	}
	if len(deltas) == 0 {
		fmt.Fprintln(os.Stdout, "no price changes in window")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Title\tFirst ₽\tLast ₽\tΔ ₽\tWhen\tStatus")
	for _, d := range deltas {
		if d.Diff.IsZero() {
			continue
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s → %s\t%s → %s\n",
			d.Title, d.First.StringFixed(0), d.Last.StringFixed(0), signedFixed(d),
			d.FirstTS.Format("01-02 15:04"), d.LastTS.Format("01-02 15:04"),
			d.FirstStatus, d.LastStatus)
	}
	return writer.Flush()
}

func signedFixed(d history.Delta) string {
	s := d.Diff.StringFixed(0)
	if d.Diff.IsPositive() {
		return "+" + s
	}
	return s
}

// Rollup prints daily min/max/count stats for one title.
func (a *App) Rollup(ctx context.Context, title string, window time.Duration) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := history.NewAggregator(store).Rollup(ctx, title, window)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(os.Stdout, "no history for title")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Day\tMin ₽\tMax ₽\tPoints")
	for _, s := range stats {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\n",
			s.Day.Format("2006-01-02"), s.MinPrice.StringFixed(0), s.MaxPrice.StringFixed(0), s.Points)
	}
	return writer.Flush()
}
