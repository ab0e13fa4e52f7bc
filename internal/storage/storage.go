package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no snapshot has been saved for a key.
var ErrNoSnapshot = errors.New("no cached snapshot")

// CacheFile is the database file name inside the data directory.
const CacheFile = "cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	count      INTEGER NOT NULL,
	fetched_at TEXT NOT NULL
)`

// Snapshot is the last successful fetch for one query.
type Snapshot struct {
	Key       string
	Payload   []byte // JSON encoded hits
	Count     int
	FetchedAt time.Time
}

// Storage handles persistence of fetch snapshots
type Storage struct {
	dataDir string
	db      *sql.DB
}

// New opens (or creates) the snapshot cache in dataDir
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dataDir, CacheFile))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	return &Storage{dataDir: dataDir, db: db}, nil
}

// Dir returns the resolved data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

// Close releases the database.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot stores snap, replacing any earlier snapshot with the same key.
func (s *Storage) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots (key, payload, count, fetched_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, count = excluded.count, fetched_at = excluded.fetched_at`,
		snap.Key, snap.Payload, snap.Count, snap.FetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for key, or ErrNoSnapshot.
func (s *Storage) LoadSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	var (
		snap      = Snapshot{Key: key}
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, count, fetched_at FROM snapshots WHERE key = ?`, key,
	).Scan(&snap.Payload, &snap.Count, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %q", ErrNoSnapshot, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot time: %w", err)
	}
	return &snap, nil
}
