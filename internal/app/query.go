package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/senoxone/qbshop/internal/catalog"
	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/search"
	"github.com/senoxone/qbshop/internal/storage"
)

// simResolveLimit caps how many product pages one query may fetch to fill in
// missing SIM details.
const simResolveLimit = 20

// Query matches the stored snapshot against a free-text query and prints the
// ranked offers with the cheapest one called out. General queries are rejected
// with a hint instead of dumping the whole catalog.
func (a *App) Query(ctx context.Context, opts QueryOptions) error {
	if search.Classify(opts.Query) == search.ClassGeneral {
		return fmt.Errorf("%w: %s", search.ErrTooGeneral, search.Hint)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	offers, err := store.ListOffers(ctx)
	if err != nil {
		return err
	}

	matched := search.Match(offers, opts.Query, statusFilter(opts.AllStatuses))
	if len(matched) == 0 {
		fmt.Fprintln(os.Stdout, "ничего не найдено")
		return nil
	}

	a.resolveSIM(ctx, store, matched)

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	return renderOffers(os.Stdout, matched)
}

// statusFilter widens to every stock status only when explicitly asked;
// otherwise offers a buyer cannot act on stay hidden.
func statusFilter(allStatuses bool) map[normalize.Status]bool {
	if allStatuses {
		return nil
	}
	return normalize.AvailableStatuses
}

func renderOffers(w io.Writer, matched []storage.Offer) error {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Model\tGB\tColor\tSIM\tStatus\tSite ₽\tResale ₽")
	for _, offer := range matched {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			offer.Model,
			offer.MemoryGB,
			offer.ColorNative,
			offer.SIMDesc,
			offer.Status,
			offer.SitePrice.StringFixed(0),
			offer.ResalePrice.StringFixed(0),
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if best := search.Best(matched); best != nil {
		fmt.Fprintf(w, "\nлучшая цена: %s ₽ — %s\n", best.ResalePrice.StringFixed(0), best.Title)
	}
	return nil
}

// resolveSIM lazily fetches product pages for the top matches whose SIM
// configuration is still unknown, and persists what it learns so the next
// query is free. Failures are logged and skipped.
func (a *App) resolveSIM(ctx context.Context, store *storage.Store, matched []storage.Offer) {
	f := a.newFetcher()
	budget := simResolveLimit

	for i := range matched {
		if budget == 0 {
			return
		}
		offer := &matched[i]
		if offer.SIMDesc != normalize.SIMUnknown || offer.URL == "" {
			continue
		}
		budget--

		status, body, err := f.Fetch(ctx, offer.URL)
		if err != nil || status >= 400 {
			a.Logger.Debug().Err(err).Int("status", status).Str("url", offer.URL).
				Msg("sim detail fetch failed")
			continue
		}

		sim, count := catalog.SIMFromProductPage(body)
		if sim == normalize.SIMUnknown {
			continue
		}
		offer.SIMDesc = sim
		if count > 0 {
			offer.SIMCount = &count
		}

		if err := store.UpdateOfferSIM(ctx, offer.Title, sim, offer.SIMCount); err != nil {
			a.Logger.Warn().Err(err).Str("title", offer.Title).Msg("persist sim detail failed")
		}
	}
}
