// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vinnzy/stockreco/internal/models"
)

// SQLiteStore persists recommendation runs and review outcomes to SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Recommendations, one row per (as_of, symbol) evaluation
	CREATE TABLE IF NOT EXISTS option_recos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		as_of TEXT NOT NULL,
		symbol TEXT NOT NULL,
		bias TEXT NOT NULL,
		action TEXT NOT NULL,
		side TEXT,
		expiry TEXT,
		strike REAL,
		entry_price REAL,
		sl_premium REAL,
		confidence REAL NOT NULL,
		dte INTEGER,
		iv REAL,
		sell_by TEXT,
		breakeven REAL,
		rationale TEXT,
		diagnostics TEXT,
		targets TEXT,
		range_trade TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(as_of, symbol)
	);

	-- Reviewer rejections, one row per refused recommendation
	CREATE TABLE IF NOT EXISTS review_rejections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		as_of TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT,
		strike REAL,
		expiry TEXT,
		reason TEXT NOT NULL,
		effective_mode TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recos_as_of ON option_recos(as_of);
	CREATE INDEX IF NOT EXISTS idx_recos_symbol ON option_recos(symbol);
	CREATE INDEX IF NOT EXISTS idx_rejections_as_of ON review_rejections(as_of);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRecommendations upserts a batch of recommendations for one as-of date.
func (s *SQLiteStore) SaveRecommendations(ctx context.Context, recos []models.OptionReco) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO option_recos
			(as_of, symbol, bias, action, side, expiry, strike, entry_price,
			 sl_premium, confidence, dte, iv, sell_by, breakeven, rationale,
			 diagnostics, targets, range_trade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(as_of, symbol) DO UPDATE SET
			bias=excluded.bias, action=excluded.action, side=excluded.side,
			expiry=excluded.expiry, strike=excluded.strike,
			entry_price=excluded.entry_price, sl_premium=excluded.sl_premium,
			confidence=excluded.confidence, dte=excluded.dte, iv=excluded.iv,
			sell_by=excluded.sell_by, breakeven=excluded.breakeven,
			rationale=excluded.rationale, diagnostics=excluded.diagnostics,
			targets=excluded.targets, range_trade=excluded.range_trade
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range recos {
		rationale, err := json.Marshal(r.Rationale)
		if err != nil {
			return fmt.Errorf("encode rationale for %s: %w", r.Symbol, err)
		}
		diag, err := json.Marshal(r.Diag)
		if err != nil {
			return fmt.Errorf("encode diagnostics for %s: %w", r.Symbol, err)
		}
		targets, err := json.Marshal(r.Targets)
		if err != nil {
			return fmt.Errorf("encode targets for %s: %w", r.Symbol, err)
		}

		var rangeTrade any
		if r.RangeTrade != nil {
			b, err := json.Marshal(r.RangeTrade)
			if err != nil {
				return fmt.Errorf("encode range trade for %s: %w", r.Symbol, err)
			}
			rangeTrade = string(b)
		}
		var iv any
		if r.IV != nil {
			iv = *r.IV
		}

		if _, err := stmt.ExecContext(ctx,
			r.AsOfDate, r.Symbol, string(r.Bias), string(r.Action), string(r.Side),
			r.ExpiryDate, r.Strike, r.EntryPrice, r.StopLoss, r.Confidence,
			r.DTE, iv, r.SellByDate, r.Breakeven,
			string(rationale), string(diag), string(targets), rangeTrade,
		); err != nil {
			return fmt.Errorf("insert recommendation %s: %w", r.Symbol, err)
		}
	}

	return tx.Commit()
}

// SaveReview persists the rejections from one review run.
func (s *SQLiteStore) SaveReview(ctx context.Context, asOf string, result models.ReviewResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review_rejections (as_of, symbol, side, strike, expiry, reason, effective_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rej := range result.Rejected {
		if _, err := stmt.ExecContext(ctx,
			asOf, rej.Symbol, string(rej.Side), rej.Strike, rej.Expiry,
			rej.Reason, string(result.EffectiveMode),
		); err != nil {
			return fmt.Errorf("insert rejection %s: %w", rej.Symbol, err)
		}
	}

	return tx.Commit()
}

// ListRecommendations returns all stored recommendations for one as-of date.
func (s *SQLiteStore) ListRecommendations(ctx context.Context, asOf string) ([]models.OptionReco, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT as_of, symbol, bias, action, side, expiry, strike, entry_price,
		       sl_premium, confidence, dte, iv, sell_by, breakeven, rationale,
		       diagnostics, targets, range_trade
		FROM option_recos WHERE as_of = ? ORDER BY symbol
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recos []models.OptionReco
	for rows.Next() {
		var r models.OptionReco
		var side, expiry, sellBy, rationale, diag, targets sql.NullString
		var rangeTrade sql.NullString
		var iv sql.NullFloat64

		if err := rows.Scan(
			&r.AsOfDate, &r.Symbol, &r.Bias, &r.Action, &side, &expiry,
			&r.Strike, &r.EntryPrice, &r.StopLoss, &r.Confidence, &r.DTE,
			&iv, &sellBy, &r.Breakeven, &rationale, &diag, &targets, &rangeTrade,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}

		r.Side = models.Side(side.String)
		r.ExpiryDate = expiry.String
		r.SellByDate = sellBy.String
		if iv.Valid {
			r.IV = models.FloatPtr(iv.Float64)
		}
		if rationale.Valid {
			_ = json.Unmarshal([]byte(rationale.String), &r.Rationale)
		}
		if diag.Valid {
			_ = json.Unmarshal([]byte(diag.String), &r.Diag)
		}
		if targets.Valid {
			_ = json.Unmarshal([]byte(targets.String), &r.Targets)
		}
		if rangeTrade.Valid && rangeTrade.String != "" {
			var rt models.RangeSuggestion
			if json.Unmarshal([]byte(rangeTrade.String), &rt) == nil {
				r.RangeTrade = &rt
			}
		}
		recos = append(recos, r)
	}
	return recos, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
