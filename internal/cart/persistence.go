package cart

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"voicecart/internal/logging"

	_ "modernc.org/sqlite"
)

// PersistedItem is the serialized form of a line item. Name and price are
// carried for diagnostics only; the catalog is authoritative on restore.
type PersistedItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  int     `json:"quantity"`
}

// Persister is the cart persistence boundary: a key-value blob read at
// session start and written on every mutation. Corrupt or missing data
// must be reported as an empty item list or an error the Store treats
// as "start empty" - never as fatal.
type Persister interface {
	Load() ([]PersistedItem, error)
	Save(items []PersistedItem) error
	Close() error
}

const cartBlobKey = "cart"

// SQLitePersister stores the cart blob in a single-row key-value table.
type SQLitePersister struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLitePersister opens (or creates) the cart database at the given path.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLitePersister")
	defer timer.Stop()

	logging.Store("Opening cart database at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cart_state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLitePersister{db: db, dbPath: path}, nil
}

// Load reads the persisted line items. A missing row or an unparseable
// blob yields an empty list: the caller starts with an empty cart.
func (p *SQLitePersister) Load() ([]PersistedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var blob []byte
	err := p.db.QueryRow("SELECT value FROM cart_state WHERE key = ?", cartBlobKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart blob: %w", err)
	}

	var items []PersistedItem
	if err := json.Unmarshal(blob, &items); err != nil {
		logging.Get(logging.CategoryStore).Warn("Cart blob corrupt, treating as empty: %v", err)
		return nil, nil
	}
	logging.StoreDebug("Loaded cart blob: %d items", len(items))
	return items, nil
}

// Save replaces the cart blob.
func (p *SQLitePersister) Save(items []PersistedItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	_, err = p.db.Exec(`
		INSERT INTO cart_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		cartBlobKey, blob)
	if err != nil {
		return fmt.Errorf("failed to write cart blob: %w", err)
	}
	logging.StoreDebug("Persisted cart blob: %d items", len(items))
	return nil
}

// Close closes the database.
func (p *SQLitePersister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.Close()
}
