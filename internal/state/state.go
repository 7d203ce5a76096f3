package state

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.callsync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket    = []byte("app")
	syncedBucket = []byte("synced")
	lastSyncKey  = []byte("last_sync")
)

// State wraps a bbolt database holding the synced identity-key set and
// the last successful sync time. The synced set only grows; nothing but
// Clear removes a key, which keeps repeated sync runs idempotent.
type State struct {
	db *bolt.DB
}

// Load opens the state database at the given path, defaulting to
// ~/.callsync/state.db when path is empty, and creates it if it does
// not exist.
func Load(path string) (*State, error) {
	if path == "" {
		return LoadAt(dbPath())
	}

	return LoadAt(path)
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. A corrupt database file is logged, discarded, and
// recreated empty: losing sync history only causes re-uploads, which
// the identity key dedupes server-side, whereas refusing to start
// blocks all syncing. Lock-timeout errors still surface.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("opening state db: %w", err)
		}

		log.Printf("WARNING: state db at %s is unreadable (%v); starting with empty sync history", path, err)

		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("removing corrupt state db: %w", rmErr)
		}

		db, err = openDB(path)
		if err != nil {
			return nil, fmt.Errorf("recreating state db: %w", err)
		}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(appBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(syncedBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

func openDB(path string) (*bolt.DB, error) {
	return bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// IsSynced reports whether the given identity key has been uploaded.
func (s *State) IsSynced(key string) bool {
	var synced bool

	_ = s.db.View(func(tx *bolt.Tx) error {
		synced = tx.Bucket(syncedBucket).Get([]byte(key)) != nil

		return nil
	})

	return synced
}

// SyncedKeys returns the full set of synced identity keys. The scanner
// uses this to flag inventory items without one lookup per file.
func (s *State) SyncedKeys() (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(syncedBucket).ForEach(func(k, _ []byte) error {
			keys[string(k)] = struct{}{}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading synced keys: %w", err)
	}

	return keys, nil
}

// SyncedCount returns the number of synced identity keys.
func (s *State) SyncedCount() int {
	count := 0

	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(syncedBucket).Stats().KeyN

		return nil
	})

	return count
}

// MarkSynced unions the given identity keys into the synced set in a
// single transaction. Idempotent: keys already present keep their
// original marked-at time.
func (s *State) MarkSynced(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	now := []byte(time.Now().Format(time.RFC3339))

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(syncedBucket)

		for _, key := range keys {
			if b.Get([]byte(key)) != nil {
				continue
			}

			if err := b.Put([]byte(key), now); err != nil {
				return err
			}
		}

		return nil
	})
}

// LastSync returns the time of the last committed sync run, and whether
// one has happened at all.
func (s *State) LastSync() (time.Time, bool) {
	var (
		t  time.Time
		ok bool
	)

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(lastSyncKey)
		if v == nil {
			return nil
		}

		parsed, err := time.Parse(time.RFC3339, string(v))
		if err != nil {
			// Unparseable value degrades to "never synced".
			return nil
		}

		t = parsed
		ok = true

		return nil
	})

	return t, ok
}

// SetLastSync records the time of a committed sync run.
func (s *State) SetLastSync(t time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(lastSyncKey, []byte(t.Format(time.RFC3339)))
	})
}

// Clear resets the synced set and the last-sync time. Only invoked by
// explicit user action; every recording becomes eligible for re-upload.
func (s *State) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(syncedBucket); err != nil {
			return err
		}

		if _, err := tx.CreateBucket(syncedBucket); err != nil {
			return err
		}

		return tx.Bucket(appBucket).Delete(lastSyncKey)
	})
}

func dbPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// Fail loudly rather than silently writing the sync history to
		// the current directory where it would be lost on the next run
		// from a different working directory.
		fmt.Fprintf(os.Stderr, "fatal: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}

	return filepath.Join(dir, ".callsync", "state.db")
}
