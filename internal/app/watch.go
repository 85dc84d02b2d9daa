package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/search"
	"github.com/senoxone/qbshop/internal/storage"
)

// AddWatch registers a new alert rule after validating its query and amount.
func (a *App) AddWatch(ctx context.Context, opts WatchOptions) (int64, error) {
	if search.Classify(opts.Query) == search.ClassGeneral {
		return 0, fmt.Errorf("%w: %s", search.ErrTooGeneral, search.Hint)
	}

	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount must be a positive number, got %q", opts.Amount)
	}

	w := storage.Watch{Query: opts.Query, Mode: opts.Mode, Enabled: true}
	switch opts.Mode {
	case storage.WatchModeBelow:
		w.Threshold = &amount
	case storage.WatchModeDrop:
		w.DropAmount = &amount
	default:
		return 0, fmt.Errorf("mode must be %q or %q, got %q",
			storage.WatchModeBelow, storage.WatchModeDrop, opts.Mode)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return 0, err
	}
	defer closeStore()

	return store.AddWatch(ctx, w)
}

// ListWatches prints all watch rules.
func (a *App) ListWatches(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	watches, err := store.ListWatches(ctx)
	if err != nil {
		return err
	}
	if len(watches) == 0 {
		fmt.Fprintln(os.Stdout, "no watches configured")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tQuery\tMode\tAmount\tLast best\tLast trigger\tEnabled")
	for _, w := range watches {
		amount := "-"
		switch w.Mode {
		case storage.WatchModeBelow:
			if w.Threshold != nil {
				amount = w.Threshold.StringFixed(0)
			}
		case storage.WatchModeDrop:
			if w.DropAmount != nil {
				amount = w.DropAmount.StringFixed(0)
			}
		}
		lastBest := "-"
		if w.LastBest != nil {
			lastBest = w.LastBest.StringFixed(0)
		}
		lastTrigger := "-"
		if w.LastTrigger != nil {
			lastTrigger = w.LastTrigger.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			w.ID, w.Query, w.Mode, amount, lastBest, lastTrigger, w.Enabled)
	}
	return writer.Flush()
}

// DeleteWatch removes a watch rule by id.
func (a *App) DeleteWatch(ctx context.Context, id int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return store.DeleteWatch(ctx, id)
}

// SetWatchEnabled toggles a watch rule without losing its state.
func (a *App) SetWatchEnabled(ctx context.Context, id int64, enabled bool) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return store.SetWatchEnabled(ctx, id, enabled)
}

// Alerts prints the most recent fired alerts from the outbox.
func (a *App) Alerts(ctx context.Context, limit int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	events, err := store.ListAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tWatch\tMessage")
	for _, e := range events {
		fmt.Fprintf(writer, "%s\t%d\t%s\n",
			e.TS.UTC().Format(time.RFC3339), e.WatchID, sanitizeInline(e.Message))
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
