package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertOfferSQL = `INSERT INTO offers (
        title,
        url,
        model,
        memory_gb,
        color_native,
        color_en,
        sim_desc,
        sim_count,
        stock_status,
        site_price,
        resale_price,
        cashback,
        image_url,
        image_local,
        image_key,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
    )
    ON CONFLICT (title) DO UPDATE
    SET
        url          = EXCLUDED.url,
        model        = EXCLUDED.model,
        memory_gb    = EXCLUDED.memory_gb,
        color_native = EXCLUDED.color_native,
        color_en     = EXCLUDED.color_en,
        sim_desc     = EXCLUDED.sim_desc,
        sim_count    = EXCLUDED.sim_count,
        stock_status = EXCLUDED.stock_status,
        site_price   = EXCLUDED.site_price,
        resale_price = EXCLUDED.resale_price,
        cashback     = EXCLUDED.cashback,
        image_url    = EXCLUDED.image_url,
        image_local  = EXCLUDED.image_local,
        image_key    = EXCLUDED.image_key,
        updated_at   = EXCLUDED.updated_at;`

	listOffersSQL = `SELECT
        title, url, model, memory_gb, color_native, color_en,
        sim_desc, sim_count, stock_status, site_price, resale_price,
        cashback, image_url, image_local, image_key, updated_at
    FROM offers
    ORDER BY title;`

	updateOfferSIMSQL = `UPDATE offers SET sim_desc = $2, sim_count = $3 WHERE title = $1;`

	insertHistorySQL = `INSERT INTO price_history (title, model, ts, site_price, stock_status)
    VALUES ($1,$2,$3,$4,$5);`

	deleteHistoryBeforeSQL = `DELETE FROM price_history WHERE ts < $1;`

	listHistorySinceSQL = `SELECT title, COALESCE(model, ''), ts, site_price, stock_status
    FROM price_history
    WHERE title = ANY($1)
      AND ts >= $2
    ORDER BY ts;`

	listAllHistorySinceSQL = `SELECT title, COALESCE(model, ''), ts, site_price, stock_status
    FROM price_history
    WHERE ts >= $1
    ORDER BY ts;`

	// ts::date buckets by the session timezone. Set TimeZone in the DSN
	// (e.g. "...&TimeZone=Europe/Moscow") when local calendar days matter;
	// the default session runs on the server's setting.
	dailyRollupSQL = `SELECT
        ts::date AS day,
        MIN(site_price) AS min_price,
        MAX(site_price) AS max_price,
        COUNT(*) AS points
    FROM price_history
    WHERE title = $1
      AND ts >= $2
    GROUP BY day
    ORDER BY day DESC;`

	insertWatchSQL = `INSERT INTO watches (query, mode, threshold, drop_amount, is_enabled, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id;`

	listWatchesSQL = `SELECT id, query, mode, threshold, drop_amount, last_best, last_trigger_ts, is_enabled, created_at
    FROM watches
    ORDER BY id DESC;`

	deleteWatchSQL = `DELETE FROM watches WHERE id = $1;`

	setWatchEnabledSQL = `UPDATE watches SET is_enabled = $2 WHERE id = $1;`

	updateWatchStateSQL = `UPDATE watches SET last_best = $2, last_trigger_ts = $3 WHERE id = $1;`

	insertAlertSQL = `INSERT INTO alert_outbox (ts, watch_id, message, payload)
    VALUES ($1,$2,$3,$4);`

	listAlertsSQL = `SELECT id, ts, watch_id, message, COALESCE(payload, 'null'::jsonb)
    FROM alert_outbox
    ORDER BY id DESC
    LIMIT $1;`
)

// OfferStore defines operations over the current catalog snapshot.
type OfferStore interface {
	UpsertOffers(ctx context.Context, offers []Offer) error
	ListOffers(ctx context.Context) ([]Offer, error)
	UpdateOfferSIM(ctx context.Context, title string, sim normalize.SIM, count *int) error
}

// HistoryStore defines operations over the append-only price history.
type HistoryStore interface {
	AppendHistory(ctx context.Context, points []HistoryPoint) error
	DeleteHistoryBefore(ctx context.Context, olderThan time.Time) error
	ListHistorySince(ctx context.Context, titles []string, since time.Time) (map[string][]HistoryPoint, error)
	DailyRollup(ctx context.Context, title string, since time.Time) ([]DailyStat, error)
}

// WatchStore defines watch rule persistence.
type WatchStore interface {
	AddWatch(ctx context.Context, w Watch) (int64, error)
	ListWatches(ctx context.Context) ([]Watch, error)
	DeleteWatch(ctx context.Context, id int64) error
	SetWatchEnabled(ctx context.Context, id int64, enabled bool) error
	UpdateWatchState(ctx context.Context, id int64, lastBest decimal.Decimal, lastTrigger *time.Time) error
}

// OutboxStore defines the append-only alert outbox.
type OutboxStore interface {
	AppendAlert(ctx context.Context, event AlertEvent) error
	ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error)
}

// Leaser hands out the single-flight refresh lease.
type Leaser interface {
	AcquireLease(ctx context.Context, holder string) (release func(), err error)
}

// Store aggregates access to offers, history, watches, and the outbox.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertOffers persists a refresh cycle's offers in one batch.
func (s *Store) UpsertOffers(ctx context.Context, offers []Offer) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, o := range offers {
		var simCount interface{}
		if o.SIMCount != nil {
			simCount = *o.SIMCount
		}
		batch.Queue(upsertOfferSQL,
			o.Title,
			o.URL,
			o.Model,
			o.MemoryGB,
			o.ColorNative,
			o.ColorEN,
			string(o.SIMDesc),
			simCount,
			string(o.Status),
			o.SitePrice.String(),
			o.ResalePrice.String(),
			o.Cashback,
			o.ImageURL,
			o.ImageLocal,
			o.ImageKey,
			o.UpdatedAt,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range offers {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert offer: %w", execErr)
		}
	}
	return nil
}

// ListOffers returns the current catalog snapshot.
func (s *Store) ListOffers(ctx context.Context) ([]Offer, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listOffersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list offers: %w", queryErr)
	}
	defer rows.Close()

	offers := make([]Offer, 0)
	for rows.Next() {
		offer, scanErr := scanOffer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		offers = append(offers, offer)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return offers, nil
}

// UpdateOfferSIM records a lazily resolved SIM classification.
func (s *Store) UpdateOfferSIM(ctx context.Context, title string, sim normalize.SIM, count *int) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var simCount interface{}
	if count != nil {
		simCount = *count
	}
	if _, execErr := pool.Exec(ctx, updateOfferSIMSQL, title, string(sim), simCount); execErr != nil {
		return fmt.Errorf("update offer sim: %w", execErr)
	}
	return nil
}

// AppendHistory writes one cycle's history points.
func (s *Store) AppendHistory(ctx context.Context, points []HistoryPoint) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(insertHistorySQL, p.Title, p.Model, p.TS, p.SitePrice.String(), string(p.Status))
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range points {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("append history: %w", execErr)
		}
	}
	return nil
}

// DeleteHistoryBefore prunes history outside the retention window.
func (s *Store) DeleteHistoryBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteHistoryBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete history before: %w", execErr)
	}
	return nil
}

// ListHistorySince returns ascending history per title. An empty titles slice
// selects every title.
func (s *Store) ListHistorySince(ctx context.Context, titles []string, since time.Time) (map[string][]HistoryPoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	var queryErr error
	if len(titles) == 0 {
		rows, queryErr = pool.Query(ctx, listAllHistorySinceSQL, since)
	} else {
		rows, queryErr = pool.Query(ctx, listHistorySinceSQL, titles, since)
	}
	if queryErr != nil {
		return nil, fmt.Errorf("list history: %w", queryErr)
	}
	defer rows.Close()

	out := make(map[string][]HistoryPoint)
	for rows.Next() {
		var (
			p        HistoryPoint
			priceStr string
			status   string
		)
		if err := rows.Scan(&p.Title, &p.Model, &p.TS, &priceStr, &status); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse history price: %w", convErr)
		}
		p.SitePrice = price
		p.Status = normalize.Status(status)
		out[p.Title] = append(out[p.Title], p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// DailyRollup groups a title's history by calendar day, most recent first.
func (s *Store) DailyRollup(ctx context.Context, title string, since time.Time) ([]DailyStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, dailyRollupSQL, title, since)
	if queryErr != nil {
		return nil, fmt.Errorf("daily rollup: %w", queryErr)
	}
	defer rows.Close()

	stats := make([]DailyStat, 0)
	for rows.Next() {
		var (
			stat   DailyStat
			minStr string
			maxStr string
		)
		if err := rows.Scan(&stat.Day, &minStr, &maxStr, &stat.Points); err != nil {
			return nil, err
		}
		var convErr error
		stat.MinPrice, convErr = decimal.NewFromString(minStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse min price: %w", convErr)
		}
		stat.MaxPrice, convErr = decimal.NewFromString(maxStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse max price: %w", convErr)
		}
		stats = append(stats, stat)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

// AddWatch persists a new watch and returns its id.
func (s *Store) AddWatch(ctx context.Context, w Watch) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertWatchSQL,
		w.Query,
		w.Mode,
		decimalOrNil(w.Threshold),
		decimalOrNil(w.DropAmount),
		w.Enabled,
		createdAt,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert watch: %w", scanErr)
	}
	return id, nil
}

// ListWatches returns all watches, newest first.
func (s *Store) ListWatches(ctx context.Context) ([]Watch, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listWatchesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list watches: %w", queryErr)
	}
	defer rows.Close()

	watches := make([]Watch, 0)
	for rows.Next() {
		w, scanErr := scanWatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		watches = append(watches, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return watches, nil
}

// DeleteWatch removes a watch.
func (s *Store) DeleteWatch(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteWatchSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete watch: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetWatchEnabled toggles a watch.
func (s *Store) SetWatchEnabled(ctx context.Context, id int64, enabled bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, setWatchEnabledSQL, id, enabled)
	if execErr != nil {
		return fmt.Errorf("set watch enabled: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateWatchState advances a watch's best-price bookkeeping.
func (s *Store) UpdateWatchState(ctx context.Context, id int64, lastBest decimal.Decimal, lastTrigger *time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var trigger interface{}
	if lastTrigger != nil {
		trigger = *lastTrigger
	}
	if _, execErr := pool.Exec(ctx, updateWatchStateSQL, id, lastBest.String(), trigger); execErr != nil {
		return fmt.Errorf("update watch state: %w", execErr)
	}
	return nil
}

// AppendAlert writes one fired alert to the outbox.
func (s *Store) AppendAlert(ctx context.Context, event AlertEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	ts := event.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if _, execErr := pool.Exec(ctx, insertAlertSQL, ts, event.WatchID, event.Message, []byte(event.Payload)); execErr != nil {
		return fmt.Errorf("append alert: %w", execErr)
	}
	return nil
}

// ListAlerts returns the most recent outbox entries.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertEvent, 0, limit)
	for rows.Next() {
		var event AlertEvent
		if err := rows.Scan(&event.ID, &event.TS, &event.WatchID, &event.Message, &event.Payload); err != nil {
			return nil, err
		}
		alerts = append(alerts, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanOffer(rows pgx.Rows) (Offer, error) {
	var (
		offer     Offer
		simDesc   string
		simCount  sql.NullInt64
		status    string
		siteStr   string
		resaleStr string
		cashback  sql.NullString
		imageURL  sql.NullString
		imageLoc  sql.NullString
		imageKey  sql.NullString
	)

	if err := rows.Scan(
		&offer.Title,
		&offer.URL,
		&offer.Model,
		&offer.MemoryGB,
		&offer.ColorNative,
		&offer.ColorEN,
		&simDesc,
		&simCount,
		&status,
		&siteStr,
		&resaleStr,
		&cashback,
		&imageURL,
		&imageLoc,
		&imageKey,
		&offer.UpdatedAt,
	); err != nil {
		return Offer{}, err
	}

	site, err := decimal.NewFromString(siteStr)
	if err != nil {
		return Offer{}, fmt.Errorf("parse site price: %w", err)
	}
	resale, err := decimal.NewFromString(resaleStr)
	if err != nil {
		return Offer{}, fmt.Errorf("parse resale price: %w", err)
	}

	offer.SIMDesc = normalize.SIM(simDesc)
	offer.Status = normalize.Status(status)
	offer.SitePrice = site
	offer.ResalePrice = resale
	if simCount.Valid {
		value := int(simCount.Int64)
		offer.SIMCount = &value
	}
	offer.Cashback = cashback.String
	offer.ImageURL = imageURL.String
	offer.ImageLocal = imageLoc.String
	offer.ImageKey = imageKey.String

	return offer, nil
}

func scanWatch(rows pgx.Rows) (Watch, error) {
	var (
		w            Watch
		thresholdStr sql.NullString
		dropStr      sql.NullString
		lastBestStr  sql.NullString
		lastTrigger  sql.NullTime
	)

	if err := rows.Scan(
		&w.ID,
		&w.Query,
		&w.Mode,
		&thresholdStr,
		&dropStr,
		&lastBestStr,
		&lastTrigger,
		&w.Enabled,
		&w.CreatedAt,
	); err != nil {
		return Watch{}, err
	}

	var convErr error
	if w.Threshold, convErr = nullDecimal(thresholdStr); convErr != nil {
		return Watch{}, fmt.Errorf("parse threshold: %w", convErr)
	}
	if w.DropAmount, convErr = nullDecimal(dropStr); convErr != nil {
		return Watch{}, fmt.Errorf("parse drop amount: %w", convErr)
	}
	if w.LastBest, convErr = nullDecimal(lastBestStr); convErr != nil {
		return Watch{}, fmt.Errorf("parse last best: %w", convErr)
	}
	if lastTrigger.Valid {
		value := lastTrigger.Time
		w.LastTrigger = &value
	}

	return w, nil
}

func nullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalOrNil(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
