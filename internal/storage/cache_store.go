package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"

	"featuremap/internal/inventory"
)

const fingerprintKey = "registry_fingerprint"

// CachedState is a persisted resolution run. Buckets map a resolver
// description to glob-or-path -> feature name.
type CachedState struct {
	Fingerprint string
	Stamps      map[string]inventory.Stamp
	Buckets     map[string]map[string]string
}

// CacheStore reads and writes CachedState. Bucket payloads are JSON
// compressed with zstd.
type CacheStore struct {
	db      *DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCacheStore wraps an open database.
func NewCacheStore(db *DB) (*CacheStore, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &CacheStore{db: db, encoder: encoder, decoder: decoder}, nil
}

// Close releases the codecs and the database.
func (s *CacheStore) Close() error {
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.db.Close()
}

// Load returns the persisted state, or false when nothing was saved yet.
func (s *CacheStore) Load() (*CachedState, bool, error) {
	var fingerprint string
	err := s.db.QueryRow("SELECT value FROM cache_meta WHERE key = ?", fingerprintKey).Scan(&fingerprint)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	state := &CachedState{
		Fingerprint: fingerprint,
		Stamps:      make(map[string]inventory.Stamp),
		Buckets:     make(map[string]map[string]string),
	}

	rows, err := s.db.Query("SELECT path, size, mtime_ns FROM file_stamps")
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file stamps: %w", err)
	}
	for rows.Next() {
		var path string
		var stamp inventory.Stamp
		if err := rows.Scan(&path, &stamp.Size, &stamp.ModTime); err != nil {
			_ = rows.Close()
			return nil, false, err
		}
		state.Stamps[path] = stamp
	}
	if err := rows.Close(); err != nil {
		return nil, false, err
	}

	rows, err = s.db.Query("SELECT description, payload FROM resolver_buckets")
	if err != nil {
		return nil, false, fmt.Errorf("failed to read resolver buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var desc string
		var payload []byte
		if err := rows.Scan(&desc, &payload); err != nil {
			return nil, false, err
		}
		bucket, err := s.decodeBucket(payload)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt bucket %q: %w", desc, err)
		}
		state.Buckets[desc] = bucket
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// Save replaces the persisted state.
func (s *CacheStore) Save(state *CachedState) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"cache_meta", "file_stamps", "resolver_buckets"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		if _, err := tx.Exec("INSERT INTO cache_meta (key, value) VALUES (?, ?)", fingerprintKey, state.Fingerprint); err != nil {
			return err
		}

		stampStmt, err := tx.Prepare("INSERT INTO file_stamps (path, size, mtime_ns) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stampStmt.Close() }()
		for _, path := range sortedKeys(state.Stamps) {
			stamp := state.Stamps[path]
			if _, err := stampStmt.Exec(path, stamp.Size, stamp.ModTime); err != nil {
				return fmt.Errorf("failed to store stamp for %s: %w", path, err)
			}
		}

		for _, desc := range sortedKeys(state.Buckets) {
			payload, err := s.encodeBucket(state.Buckets[desc])
			if err != nil {
				return err
			}
			if _, err := tx.Exec("INSERT INTO resolver_buckets (description, payload) VALUES (?, ?)", desc, payload); err != nil {
				return fmt.Errorf("failed to store bucket %q: %w", desc, err)
			}
		}
		return nil
	})
}

// Clear forgets the persisted resolution state. History is kept.
func (s *CacheStore) Clear() error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"cache_meta", "file_stamps", "resolver_buckets"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return err
			}
		}
		return nil
	})
}

// DB exposes the underlying database for the history queries.
func (s *CacheStore) DB() *DB {
	return s.db
}

func (s *CacheStore) encodeBucket(bucket map[string]string) ([]byte, error) {
	raw, err := json.Marshal(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bucket: %w", err)
	}
	return s.encoder.EncodeAll(raw, nil), nil
}

func (s *CacheStore) decodeBucket(payload []byte) (map[string]string, error) {
	raw, err := s.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	bucket := make(map[string]string)
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
