package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
)

// Offer is one normalized, priced catalog listing. The listing title is the
// unique key; rows are superseded by refresh cycles, never deleted.
type Offer struct {
	Title       string
	URL         string
	Model       string
	MemoryGB    int
	ColorNative string
	ColorEN     string
	SIMDesc     normalize.SIM
	SIMCount    *int
	Status      normalize.Status
	SitePrice   decimal.Decimal
	ResalePrice decimal.Decimal
	Cashback    string
	ImageURL    string
	ImageLocal  string
	ImageKey    string
	UpdatedAt   time.Time
}

// HistoryPoint is one append-only price observation. One row is written per
// offer per refresh cycle regardless of change.
type HistoryPoint struct {
	Title     string
	Model     string
	TS        time.Time
	SitePrice decimal.Decimal
	Status    normalize.Status
}

// Watch modes.
const (
	WatchModeBelow = "lt"
	WatchModeDrop  = "drop"
)

// Watch is a persisted alert rule re-evaluated after every refresh.
type Watch struct {
	ID          int64
	Query       string
	Mode        string
	Threshold   *decimal.Decimal
	DropAmount  *decimal.Decimal
	LastBest    *decimal.Decimal
	LastTrigger *time.Time
	Enabled     bool
	CreatedAt   time.Time
}

// AlertEvent is one fired alert in the durable outbox, awaiting an external
// delivery mechanism.
type AlertEvent struct {
	ID      int64
	TS      time.Time
	WatchID int64
	Message string
	Payload json.RawMessage
}

// DailyStat is one calendar day of a title's price history.
type DailyStat struct {
	Day      time.Time
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Points   int
}
