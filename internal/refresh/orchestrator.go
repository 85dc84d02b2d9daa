package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/catalog"
	"github.com/senoxone/qbshop/internal/fetcher"
	"github.com/senoxone/qbshop/internal/logging"
	"github.com/senoxone/qbshop/internal/markup"
	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/storage"
	"github.com/senoxone/qbshop/internal/watch"
)

// historyRetention bounds the append-only price history.
const historyRetention = 30 * 24 * time.Hour

// ErrZeroYield is returned when a cycle parses no offers and there is no
// stored snapshot to fall back on. With a snapshot present, an empty parse
// almost always means the site changed markup or served a block page, not
// that the catalog emptied, so the cycle only warns and keeps the snapshot.
var ErrZeroYield = errors.New("refresh yielded no offers and no snapshot exists")

// Options carries the crawl targets and politeness delays.
type Options struct {
	BaseURL     string
	CatalogURL  string
	TitlePrefix string
	PageDelay   time.Duration
	DetailDelay time.Duration
}

// Store is the slice of storage the refresh cycle needs.
type Store interface {
	ListOffers(ctx context.Context) ([]storage.Offer, error)
	UpsertOffers(ctx context.Context, offers []storage.Offer) error
	AppendHistory(ctx context.Context, points []storage.HistoryPoint) error
	DeleteHistoryBefore(ctx context.Context, olderThan time.Time) error
	AcquireLease(ctx context.Context, holder string) (release func(), err error)
}

var _ Store = (*storage.Store)(nil)

// Orchestrator runs one full refresh cycle: crawl every catalog page,
// normalize, price, persist, and evaluate watches.
type Orchestrator struct {
	fetcher   fetcher.Fetcher
	store     Store
	markup    *markup.Config
	evaluator *watch.Evaluator
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

func NewOrchestrator(f fetcher.Fetcher, store Store, mk *markup.Config, ev *watch.Evaluator, opts Options, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:   f,
		store:     store,
		markup:    mk,
		evaluator: ev,
		opts:      opts,
		logger:    logging.Component(logger, "refresh"),
		now:       time.Now,
	}
}

// Run executes one refresh cycle under the singleton lease and returns the
// number of offers persisted. A held lease surfaces as storage.LeaseHeldError.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	host, _ := os.Hostname()
	release, err := o.store.AcquireLease(ctx, fmt.Sprintf("%s:%d", host, os.Getpid()))
	if err != nil {
		return 0, err
	}
	defer release()

	start := o.now()

	raw, err := o.crawl(ctx)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		prev, err := o.store.ListOffers(ctx)
		if err != nil {
			return 0, err
		}
		if len(prev) == 0 {
			return 0, ErrZeroYield
		}
		o.logger.Warn().Int("cached", len(prev)).
			Msg("refresh yielded no offers, keeping previous snapshot")
		return 0, nil
	}

	offers, err := o.assemble(ctx, raw)
	if err != nil {
		return 0, err
	}

	if err := o.persist(ctx, offers); err != nil {
		return 0, err
	}

	if err := o.evaluator.Run(ctx, offers); err != nil {
		o.logger.Error().Err(err).Msg("watch evaluation failed")
	}

	o.logger.Info().Int("offers", len(offers)).
		Dur("elapsed", o.now().Sub(start)).Msg("refresh complete")
	return len(offers), nil
}

// crawl fetches page 1, detects pagination, and walks the remaining pages.
// Page 1 failing is fatal; later pages are skipped with a warning so a single
// flaky page cannot void the cycle.
func (o *Orchestrator) crawl(ctx context.Context) ([]catalog.RawOffer, error) {
	status, body, err := o.fetcher.Fetch(ctx, o.opts.CatalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog page 1: %w", err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("fetch catalog page 1: http %d", status)
	}

	raw := catalog.ParsePage(body, o.opts.TitlePrefix, o.opts.BaseURL)
	pages := catalog.DetectPages(body)
	o.logger.Debug().Int("pages", pages).Int("offers", len(raw)).Msg("catalog page 1 parsed")

	for page := 2; page <= pages; page++ {
		if err := sleepCtx(ctx, o.opts.PageDelay); err != nil {
			return nil, err
		}
		body, ok := o.fetchPage(ctx, page)
		if !ok {
			continue
		}
		got := catalog.ParsePage(body, o.opts.TitlePrefix, o.opts.BaseURL)
		o.logger.Debug().Int("page", page).Int("offers", len(got)).Msg("catalog page parsed")
		raw = append(raw, got...)
	}
	return raw, nil
}

// fetchPage tries the query-parameter pagination form first, then the path
// form some theme versions use.
func (o *Orchestrator) fetchPage(ctx context.Context, page int) (string, bool) {
	for _, pageURL := range []string{
		pageQueryURL(o.opts.CatalogURL, page),
		pagePathURL(o.opts.CatalogURL, page),
	} {
		status, body, err := o.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			o.logger.Warn().Err(err).Str("url", pageURL).Msg("catalog page fetch failed")
			continue
		}
		if status >= 400 {
			o.logger.Warn().Int("status", status).Str("url", pageURL).Msg("catalog page fetch failed")
			continue
		}
		return body, true
	}
	return "", false
}

// assemble dedupes raw cards (last one wins), merges forward the previous
// snapshot's image fields, and normalizes each card into a priced offer.
func (o *Orchestrator) assemble(ctx context.Context, raw []catalog.RawOffer) ([]storage.Offer, error) {
	byTitle := make(map[string]catalog.RawOffer, len(raw))
	order := make([]string, 0, len(raw))
	for _, r := range raw {
		if _, seen := byTitle[r.Title]; !seen {
			order = append(order, r.Title)
		}
		byTitle[r.Title] = r
	}

	prevOffers, err := o.store.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list previous offers: %w", err)
	}
	prev := make(map[string]storage.Offer, len(prevOffers))
	for _, p := range prevOffers {
		prev[p.Title] = p
	}

	now := o.now()
	offers := make([]storage.Offer, 0, len(order))
	for _, title := range order {
		r := byTitle[title]
		offer := o.normalizeOffer(r, now)

		if p, ok := prev[title]; ok {
			if offer.ImageURL == "" {
				offer.ImageURL = p.ImageURL
			}
			if offer.ImageURL == p.ImageURL {
				offer.ImageLocal = p.ImageLocal
				offer.ImageKey = p.ImageKey
			}
			// SIM details come from the product page; keep a
			// resolved value over re-deriving from the title.
			if p.SIMDesc != normalize.SIMUnknown && offer.SIMDesc == normalize.SIMUnknown {
				offer.SIMDesc = p.SIMDesc
				offer.SIMCount = p.SIMCount
			}
		}

		if offer.ImageURL == "" && offer.URL != "" {
			offer.ImageURL = o.detailImage(ctx, offer.URL)
		}

		offers = append(offers, offer)
	}
	return offers, nil
}

func (o *Orchestrator) normalizeOffer(r catalog.RawOffer, now time.Time) storage.Offer {
	model, mem := normalize.ParseModelMemory(r.Title)
	sim, count := normalize.SIMFromTitle(r.Title, r.URL)
	var simCount *int
	if count > 0 {
		simCount = &count
	}

	site := decimal.NewFromInt(r.Price)
	return storage.Offer{
		Title:       r.Title,
		URL:         r.URL,
		Model:       model,
		MemoryGB:    mem,
		ColorNative: normalize.ParseColorNative(r.Title),
		ColorEN:     normalize.ParseColorEN(r.Title),
		SIMDesc:     sim,
		SIMCount:    simCount,
		Status:      r.Status,
		SitePrice:   site,
		ResalePrice: site.Add(o.markup.Resolve(model)),
		Cashback:    r.Cashback,
		ImageURL:    r.ImageURL,
		UpdatedAt:   now,
	}
}

// detailImage fetches a product page for its og:image. Best effort only.
func (o *Orchestrator) detailImage(ctx context.Context, offerURL string) string {
	if err := sleepCtx(ctx, o.opts.DetailDelay); err != nil {
		return ""
	}
	status, body, err := o.fetcher.Fetch(ctx, offerURL)
	if err != nil || status >= 400 {
		o.logger.Debug().Err(err).Int("status", status).Str("url", offerURL).
			Msg("product page image fetch failed")
		return ""
	}
	return catalog.ImageFromProductPage(body, o.opts.BaseURL)
}

// persist appends one history point per offer, trims old history, then
// upserts the snapshot. History goes first so a failed upsert never loses an
// observation that was already priced.
func (o *Orchestrator) persist(ctx context.Context, offers []storage.Offer) error {
	now := o.now()
	points := make([]storage.HistoryPoint, len(offers))
	for i, offer := range offers {
		points[i] = storage.HistoryPoint{
			Title:     offer.Title,
			Model:     offer.Model,
			TS:        now,
			SitePrice: offer.SitePrice,
			Status:    offer.Status,
		}
	}
	if err := o.store.AppendHistory(ctx, points); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if err := o.store.DeleteHistoryBefore(ctx, now.Add(-historyRetention)); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	if err := o.store.UpsertOffers(ctx, offers); err != nil {
		return fmt.Errorf("upsert offers: %w", err)
	}
	return nil
}

func pageQueryURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

func pagePathURL(base string, page int) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/page/%d/", page)
	u.RawQuery = ""
	return u.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
