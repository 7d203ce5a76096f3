package recording

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Scanner enumerates a recordings directory and produces the inventory
// for one scan pass. It owns the resulting File values until the next
// pass replaces them; it never writes to the sync-state store.
type Scanner struct {
	dir    string
	logger *slog.Logger

	// probe resolves audio duration. Swappable in tests so scanning
	// does not depend on crafted audio fixtures.
	probe func(path string) int64
}

// NewScanner creates a scanner for the given directory.
func NewScanner(dir string, logger *slog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		logger: logger,
		probe:  ProbeDuration,
	}
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan enumerates the directory non-recursively, parses and probes every
// audio file, and flags each against the given synced identity keys.
// A failure on one entry excludes that entry and the scan continues;
// only failure to list the directory itself is an error.
//
// Results are ordered by capture time descending. Files whose name
// yields no timestamp keep their enumeration order at the end of the
// comparison, deliberately untouched.
func (s *Scanner) Scan(syncedKeys map[string]struct{}) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing recordings directory: %w", err)
	}

	files := make([]File, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := norm.NFC.String(entry.Name())
		if !IsAudioFile(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("stat failed during scan",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)

			continue
		}

		path := filepath.Join(s.dir, entry.Name())

		f := File{
			FileName:       name,
			Path:           path,
			Meta:           Parse(name),
			SizeBytes:      info.Size(),
			DurationMillis: s.probe(path),
		}
		f.IdentityKey = IdentityKey(name, f.SizeBytes, f.Timestamp)
		_, f.Synced = syncedKeys[f.IdentityKey]

		files = append(files, f)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CapturedAt.IsZero() || files[j].CapturedAt.IsZero() {
			return false
		}

		return files[i].CapturedAt.After(files[j].CapturedAt)
	})

	synced := 0
	for i := range files {
		if files[i].Synced {
			synced++
		}
	}

	s.logger.Info("scan complete",
		slog.Int("recordings", len(files)),
		slog.Int("synced", synced),
		slog.Int("entries", len(entries)),
	)

	return files, nil
}
