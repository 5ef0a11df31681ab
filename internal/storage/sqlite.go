package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/parser"
	"github.com/sajowo/price-watch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func makeProductID(name string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		return "item-" + uuid.NewString()[:8]
	}
	return slug
}

// CreateProduct inserts a product and its initial store entries. The ID is
// derived from the name when unset; a uuid suffix resolves slug collisions.
func (s *SQLite) CreateProduct(ctx context.Context, p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if p.ID == "" {
		p.ID = makeProductID(p.Name)
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM products WHERE id = ?`, p.ID,
		).Scan(&n); err != nil {
			return fmt.Errorf("check product id: %w", err)
		}
		if n > 0 {
			p.ID = p.ID + "-" + uuid.NewString()[:4]
		}
	}

	now := time.Now().UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO products (id, name, sku_hint, variant_hint, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.SKUHint, p.VariantHint, now,
	); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, now)

	for i := range p.Entries {
		e := &p.Entries[i]
		e.ProductID = p.ID
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetProduct returns a product with its store entries.
func (s *SQLite) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, sku_hint, variant_hint, created_at FROM products WHERE id = ?`, id,
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	p.Entries, err = s.listEntries(ctx, `WHERE product_id = ?`, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns all products, each with its store entries.
func (s *SQLite) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sku_hint, variant_hint, created_at FROM products ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		products[i].Entries, err = s.listEntries(ctx, `WHERE product_id = ?`, products[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return products, nil
}

// DeleteProduct removes a product, its entries, and their history.
func (s *SQLite) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE entry_id IN (SELECT id FROM store_entries WHERE product_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM store_entries WHERE product_id = ?`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// AddEntry inserts a store entry, deriving its name and parser strategy from
// the URL when unset.
func (s *SQLite) AddEntry(ctx context.Context, e *model.StoreEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertEntry(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *model.StoreEntry) error {
	if e.Parser == "" {
		e.Parser = parser.Select(e.URL)
	}
	if e.Name == "" {
		e.Name = parser.DisplayName(e.URL)
	}
	if e.Currency == "" {
		e.Currency = "PLN"
	}
	if e.Availability == "" {
		e.Availability = model.Unknown
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO store_entries (product_id, url, name, parser, currency, availability)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ProductID, e.URL, e.Name, string(e.Parser), e.Currency, string(e.Availability),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// GetEntry returns a single store entry by its ID.
func (s *SQLite) GetEntry(ctx context.Context, id int64) (*model.StoreEntry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+`WHERE id = ?`, id)
	return scanEntry(row)
}

// UpdateEntryURL changes an entry's URL, re-deriving its parser strategy so
// the assignment never goes stale. An empty newName re-derives the display
// name from the new host.
func (s *SQLite) UpdateEntryURL(ctx context.Context, id int64, newURL, newName string) error {
	if newName == "" {
		newName = parser.DisplayName(newURL)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE store_entries SET url = ?, name = ?, parser = ? WHERE id = ?`,
		newURL, newName, string(parser.Select(newURL)), id,
	)
	if err != nil {
		return fmt.Errorf("update entry url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteEntry removes a store entry and its history.
func (s *SQLite) DeleteEntry(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE entry_id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM store_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// ListAllEntries returns every store entry across all products.
func (s *SQLite) ListAllEntries(ctx context.Context) ([]model.StoreEntry, error) {
	return s.listEntries(ctx, ``)
}

// ApplyObservation appends a history record and updates the entry's snapshot
// in one transaction. A failed observation keeps the previous price and
// availability and only records the error; the history record still gets a
// null-price row so failures stay visible in the series.
func (s *SQLite) ApplyObservation(ctx context.Context, entryID int64, obs model.Observation, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := at.UTC().Format(timeLayout)

	var priceStr *string
	if obs.Price != nil {
		v := obs.Price.String()
		priceStr = &v
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (entry_id, observed_at, price, availability) VALUES (?, ?, ?, ?)`,
		entryID, ts, priceStr, string(obs.Availability),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if obs.Failed() {
		msg := obs.Err.Error()
		if _, err := tx.ExecContext(ctx,
			`UPDATE store_entries SET last_error = ?, last_checked_at = ? WHERE id = ?`,
			msg, ts, entryID,
		); err != nil {
			return fmt.Errorf("record entry failure: %w", err)
		}
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE store_entries
		 SET last_price = ?, currency = ?, availability = ?,
		     variant_confirmed = ?, sku_confirmed = ?, last_error = NULL, last_checked_at = ?
		 WHERE id = ?`,
		priceStr, obs.Currency, string(obs.Availability),
		boolToInt(obs.VariantConfirmed), boolToInt(obs.SKUConfirmed), ts, entryID,
	); err != nil {
		return fmt.Errorf("update entry snapshot: %w", err)
	}
	return tx.Commit()
}

// ListHistory returns an entry's observations at or after since, oldest first.
func (s *SQLite) ListHistory(ctx context.Context, entryID int64, since time.Time) ([]model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, observed_at, price, availability FROM history
		 WHERE entry_id = ? AND observed_at >= ?
		 ORDER BY observed_at, id`,
		entryID, since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.HistoryRecord
	for rows.Next() {
		var r model.HistoryRecord
		var ts, avail string
		var priceStr sql.NullString
		if err := rows.Scan(&r.EntryID, &ts, &priceStr, &avail); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.ObservedAt, _ = time.Parse(timeLayout, ts)
		r.Availability = model.Availability(avail)
		if priceStr.Valid {
			if d, err := decimal.NewFromString(priceStr.String); err == nil {
				r.Price = &d
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestPrices returns an entry's most recent successful observations, newest
// first. Two records are enough to show the last price movement.
func (s *SQLite) LatestPrices(ctx context.Context, entryID int64, n int) ([]model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, observed_at, price, availability FROM history
		 WHERE entry_id = ? AND price IS NOT NULL
		 ORDER BY observed_at DESC, id DESC LIMIT ?`,
		entryID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.HistoryRecord
	for rows.Next() {
		var r model.HistoryRecord
		var ts, avail, priceStr string
		if err := rows.Scan(&r.EntryID, &ts, &priceStr, &avail); err != nil {
			return nil, fmt.Errorf("scan latest price: %w", err)
		}
		r.ObservedAt, _ = time.Parse(timeLayout, ts)
		r.Availability = model.Availability(avail)
		if d, err := decimal.NewFromString(priceStr); err == nil {
			r.Price = &d
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const selectEntry = `SELECT id, product_id, url, name, parser, last_price, currency, availability,
	variant_confirmed, sku_confirmed, last_error, last_checked_at FROM store_entries `

func (s *SQLite) listEntries(ctx context.Context, where string, args ...any) ([]model.StoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.StoreEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var created string
	if err := row.Scan(&p.ID, &p.Name, &p.SKUHint, &p.VariantHint, &created); err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}

func scanEntry(row scannable) (*model.StoreEntry, error) {
	var e model.StoreEntry
	var parserStr, availStr string
	var variantConfirmed, skuConfirmed int
	var lastPrice, lastError, lastChecked sql.NullString

	err := row.Scan(&e.ID, &e.ProductID, &e.URL, &e.Name, &parserStr, &lastPrice, &e.Currency,
		&availStr, &variantConfirmed, &skuConfirmed, &lastError, &lastChecked)
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	e.Parser = model.ParserKind(parserStr)
	e.Availability = model.Availability(availStr)
	e.VariantConfirmed = variantConfirmed == 1
	e.SKUConfirmed = skuConfirmed == 1
	if lastPrice.Valid {
		if d, err := decimal.NewFromString(lastPrice.String); err == nil {
			e.LastPrice = &d
		}
	}
	if lastError.Valid {
		e.LastError = &lastError.String
	}
	if lastChecked.Valid {
		t, _ := time.Parse(timeLayout, lastChecked.String)
		e.LastCheckedAt = &t
	}
	return &e, nil
}
