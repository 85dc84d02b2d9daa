package watch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/storage"
)

type fakeWatchStore struct {
	watches []storage.Watch
	updates []stateUpdate
}

type stateUpdate struct {
	id          int64
	lastBest    decimal.Decimal
	lastTrigger *time.Time
}

func (f *fakeWatchStore) AddWatch(ctx context.Context, w storage.Watch) (int64, error) {
	f.watches = append(f.watches, w)
	return int64(len(f.watches)), nil
}

func (f *fakeWatchStore) ListWatches(ctx context.Context) ([]storage.Watch, error) {
	return f.watches, nil
}

func (f *fakeWatchStore) DeleteWatch(ctx context.Context, id int64) error { return nil }

func (f *fakeWatchStore) SetWatchEnabled(ctx context.Context, id int64, enabled bool) error {
	return nil
}

func (f *fakeWatchStore) UpdateWatchState(ctx context.Context, id int64, lastBest decimal.Decimal, lastTrigger *time.Time) error {
	f.updates = append(f.updates, stateUpdate{id: id, lastBest: lastBest, lastTrigger: lastTrigger})
	return nil
}

type fakeOutbox struct {
	events []storage.AlertEvent
}

func (f *fakeOutbox) AppendAlert(ctx context.Context, e storage.AlertEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutbox) ListAlerts(ctx context.Context, limit int) ([]storage.AlertEvent, error) {
	return f.events, nil
}

func testOffer(resale int64, status normalize.Status) storage.Offer {
	return storage.Offer{
		Title:       "iPhone 16 Pro Max 256 GB Desert Titanium",
		Model:       "iPhone 16 Pro Max",
		MemoryGB:    256,
		Status:      status,
		SitePrice:   decimal.NewFromInt(resale - 9000),
		ResalePrice: decimal.NewFromInt(resale),
	}
}

func newTestEvaluator(ws *fakeWatchStore, ob *fakeOutbox, now time.Time) *Evaluator {
	ev := NewEvaluator(ws, ob, zerolog.Nop())
	ev.now = func() time.Time { return now }
	return ev
}

func dec(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func TestBelowModeFiresAtOrUnderThreshold(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ws := &fakeWatchStore{watches: []storage.Watch{{
		ID: 1, Query: "айфон 16 про макс 256", Mode: storage.WatchModeBelow,
		Threshold: dec(100000), Enabled: true,
	}}}
	ob := &fakeOutbox{}

	ev := newTestEvaluator(ws, ob, now)
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(101000, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 0 {
		t.Fatalf("above threshold should not fire: %+v", ob.events)
	}

	if err := ev.Run(context.Background(), []storage.Offer{testOffer(100000, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 1 {
		t.Fatalf("at threshold should fire once, got %d", len(ob.events))
	}
	if ob.events[0].WatchID != 1 {
		t.Errorf("watch id = %d", ob.events[0].WatchID)
	}

	var payload map[string]any
	if err := json.Unmarshal(ob.events[0].Payload, &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if payload["resale"] != "100000" {
		t.Errorf("payload resale = %v", payload["resale"])
	}
	// testOffer prices the site 9000 under resale.
	if payload["markup"] != "9000" {
		t.Errorf("payload markup = %v", payload["markup"])
	}
	if payload["site_price"] != "91000" {
		t.Errorf("payload site_price = %v", payload["site_price"])
	}
}

func TestDropModeNeedsBaselineThenFires(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ws := &fakeWatchStore{watches: []storage.Watch{{
		ID: 2, Query: "iphone 16 pro max 256", Mode: storage.WatchModeDrop,
		DropAmount: dec(3000), Enabled: true,
	}}}
	ob := &fakeOutbox{}
	ev := newTestEvaluator(ws, ob, now)

	// No baseline yet: the first cycle only records state.
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(99000, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 0 {
		t.Fatal("first observation must not fire")
	}
	if len(ws.updates) != 1 || !ws.updates[0].lastBest.Equal(decimal.NewFromInt(99000)) {
		t.Fatalf("baseline not recorded: %+v", ws.updates)
	}
	ws.watches[0].LastBest = dec(99000)

	// A 1500 drop is inside the 3000 band.
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(97500, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 0 {
		t.Fatal("drop smaller than the band must not fire")
	}
	ws.watches[0].LastBest = dec(97500)

	// A 3000 drop from the recorded best fires.
	ev.now = func() time.Time { return now.Add(time.Hour) }
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(94500, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 1 {
		t.Fatalf("expected one alert, got %d", len(ob.events))
	}
	last := ws.updates[len(ws.updates)-1]
	if last.lastTrigger == nil || !last.lastTrigger.Equal(now.Add(time.Hour)) {
		t.Fatalf("trigger time not recorded: %+v", last)
	}
}

func TestCooldownSuppressesButAdvancesState(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	trigger := now.Add(-10 * time.Minute)
	ws := &fakeWatchStore{watches: []storage.Watch{{
		ID: 3, Query: "iphone 16 pro max 256", Mode: storage.WatchModeBelow,
		Threshold: dec(100000), LastBest: dec(99000), LastTrigger: &trigger, Enabled: true,
	}}}
	ob := &fakeOutbox{}
	ev := newTestEvaluator(ws, ob, now)

	if err := ev.Run(context.Background(), []storage.Offer{testOffer(98000, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 0 {
		t.Fatal("alert inside cooldown must be suppressed")
	}
	if len(ws.updates) != 1 {
		t.Fatalf("state must still advance during cooldown: %+v", ws.updates)
	}
	upd := ws.updates[0]
	if !upd.lastBest.Equal(decimal.NewFromInt(98000)) {
		t.Errorf("lastBest = %s", upd.lastBest)
	}
	if upd.lastTrigger == nil || !upd.lastTrigger.Equal(trigger) {
		t.Errorf("lastTrigger must be preserved, got %+v", upd.lastTrigger)
	}

	// Past the cooldown the same condition fires again.
	ev.now = func() time.Time { return now.Add(25 * time.Minute) }
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(98000, normalize.StatusInStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 1 {
		t.Fatalf("expected one alert after cooldown, got %d", len(ob.events))
	}
}

func TestDisabledAndUnavailableAreIgnored(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ws := &fakeWatchStore{watches: []storage.Watch{
		{ID: 4, Query: "iphone 16 pro max 256", Mode: storage.WatchModeBelow, Threshold: dec(200000), Enabled: false},
		{ID: 5, Query: "iphone 16 pro max 256", Mode: storage.WatchModeBelow, Threshold: dec(200000), Enabled: true},
	}}
	ob := &fakeOutbox{}
	ev := newTestEvaluator(ws, ob, now)

	// Only out-of-stock offers match: nothing to evaluate against.
	if err := ev.Run(context.Background(), []storage.Offer{testOffer(100000, normalize.StatusOutOfStock)}); err != nil {
		t.Fatal(err)
	}
	if len(ob.events) != 0 || len(ws.updates) != 0 {
		t.Fatalf("no events or updates expected: %+v %+v", ob.events, ws.updates)
	}
}
