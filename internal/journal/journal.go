// Package journal persists dispatched whale-trap signals to SQLite for audit.
package journal

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"whale-trap-scanner/internal/model"
)

// Journal is an append-only audit log of sent alerts.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the signal journal database.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		policy      TEXT NOT NULL,
		price       REAL NOT NULL,
		candle_time DATETIME NOT NULL,
		conditions  TEXT,
		message     TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_candle_time ON signals(candle_time);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened signal journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Record persists a sent signal.
func (j *Journal) Record(sig *model.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	conds, _ := json.Marshal(sig.Conditions)
	_, err := j.db.Exec(
		`INSERT INTO signals (symbol, policy, price, candle_time, conditions, message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sig.Symbol,
		sig.Policy,
		sig.Price,
		sig.Time.UTC().Format(time.RFC3339),
		string(conds),
		sig.Message,
	)
	return err
}

// SignalRecord represents a row from the signals table.
type SignalRecord struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Policy     string  `json:"policy"`
	Price      float64 `json:"price"`
	CandleTime string  `json:"candle_time"`
	Conditions string  `json:"conditions"`
	Message    string  `json:"message"`
}

// Recent returns the last N signals, newest first.
func (j *Journal) Recent(limit int) ([]SignalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, symbol, policy, price, candle_time, conditions, message
		 FROM signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var r SignalRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Policy, &r.Price,
			&r.CandleTime, &r.Conditions, &r.Message); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error { return j.db.Close() }

// recentSource is the read side of the journal, as seen by the HTTP handler.
type recentSource interface {
	Recent(limit int) ([]SignalRecord, error)
}

// Handler returns an HTTP handler serving the newest journal rows as JSON.
// The ops server mounts it at /signals/recent; ?limit= caps the row count.
func (j *Journal) Handler() http.Handler { return recentHandler{src: j} }

type recentHandler struct {
	src recentSource
}

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

func (h recentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := h.src.Recent(limit)
	if err != nil {
		log.Printf("[journal] recent query failed: %v", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []SignalRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
