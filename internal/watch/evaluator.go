package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/logging"
	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/search"
	"github.com/senoxone/qbshop/internal/storage"
)

// cooldownWindow suppresses repeat alerts for the same watch. State still
// advances during cooldown so a "drop" watch measures from the latest price.
const cooldownWindow = 30 * time.Minute

// Evaluator re-checks every enabled watch against the current offer set and
// appends fired alerts to the outbox.
type Evaluator struct {
	watches storage.WatchStore
	outbox  storage.OutboxStore
	logger  zerolog.Logger
	now     func() time.Time
}

func NewEvaluator(watches storage.WatchStore, outbox storage.OutboxStore, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		watches: watches,
		outbox:  outbox,
		logger:  logging.Component(logger, "watch"),
		now:     time.Now,
	}
}

// Run evaluates all enabled watches against offers. Per-watch failures are
// logged and skipped so one broken rule cannot stall the rest.
func (e *Evaluator) Run(ctx context.Context, offers []storage.Offer) error {
	watches, err := e.watches.ListWatches(ctx)
	if err != nil {
		return fmt.Errorf("list watches: %w", err)
	}

	for _, w := range watches {
		if !w.Enabled {
			continue
		}
		if err := e.evaluate(ctx, w, offers); err != nil {
			e.logger.Error().Err(err).Int64("watch_id", w.ID).Str("query", w.Query).
				Msg("watch evaluation failed")
		}
	}
	return nil
}

func (e *Evaluator) evaluate(ctx context.Context, w storage.Watch, offers []storage.Offer) error {
	matched := search.Match(offers, w.Query, normalize.AvailableStatuses)
	best := search.Best(matched)
	if best == nil {
		return nil
	}
	cur := best.ResalePrice
	now := e.now()

	inCooldown := w.LastTrigger != nil && now.Sub(*w.LastTrigger) < cooldownWindow

	fire := false
	switch w.Mode {
	case storage.WatchModeBelow:
		fire = w.Threshold != nil && cur.LessThanOrEqual(*w.Threshold)
	case storage.WatchModeDrop:
		fire = w.DropAmount != nil && w.LastBest != nil &&
			cur.LessThanOrEqual(w.LastBest.Sub(*w.DropAmount))
	default:
		return fmt.Errorf("unknown watch mode %q", w.Mode)
	}

	if !fire || inCooldown {
		return e.watches.UpdateWatchState(ctx, w.ID, cur, w.LastTrigger)
	}

	payload, err := json.Marshal(alertPayload{
		Query:     w.Query,
		Mode:      w.Mode,
		Title:     best.Title,
		Model:     best.Model,
		MemoryGB:  best.MemoryGB,
		Color:     best.ColorNative,
		SIM:       string(best.SIMDesc),
		Status:    string(best.Status),
		SitePrice: best.SitePrice.String(),
		Markup:    cur.Sub(best.SitePrice).String(),
		Resale:    cur.String(),
		URL:       best.URL,
	})
	if err != nil {
		return fmt.Errorf("encode alert payload: %w", err)
	}

	event := storage.AlertEvent{
		TS:      now,
		WatchID: w.ID,
		Message: alertMessage(w, *best, cur),
		Payload: payload,
	}
	if err := e.outbox.AppendAlert(ctx, event); err != nil {
		return fmt.Errorf("append alert: %w", err)
	}

	e.logger.Info().Int64("watch_id", w.ID).Str("query", w.Query).
		Str("resale", cur.String()).Msg("alert fired")

	return e.watches.UpdateWatchState(ctx, w.ID, cur, &now)
}

type alertPayload struct {
	Query     string `json:"query"`
	Mode      string `json:"mode"`
	Title     string `json:"title"`
	Model     string `json:"model"`
	MemoryGB  int    `json:"memory_gb"`
	Color     string `json:"color"`
	SIM       string `json:"sim"`
	Status    string `json:"status"`
	SitePrice string `json:"site_price"`
	Markup    string `json:"markup"`
	Resale    string `json:"resale"`
	URL       string `json:"url"`
}

func alertMessage(w storage.Watch, best storage.Offer, cur decimal.Decimal) string {
	switch w.Mode {
	case storage.WatchModeDrop:
		prev := "?"
		if w.LastBest != nil {
			prev = w.LastBest.StringFixed(0)
		}
		return fmt.Sprintf("%s: цена упала %s → %s ₽ (%s)",
			w.Query, prev, cur.StringFixed(0), best.Title)
	default:
		thr := "?"
		if w.Threshold != nil {
			thr = w.Threshold.StringFixed(0)
		}
		return fmt.Sprintf("%s: цена %s ₽ ≤ порога %s ₽ (%s)",
			w.Query, cur.StringFixed(0), thr, best.Title)
	}
}
