package recording

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/rsheth/callsync/internal/errors"
	"github.com/rsheth/callsync/internal/state"
	"golang.org/x/sync/errgroup"
)

// remoteAPI is the subset of Client the orchestrator needs. Extracted
// for testability.
type remoteAPI interface {
	FetchCallLogs(ctx context.Context, userID, limit, offset int) ([]CallLogRecord, error)
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// SyncerConfig holds the orchestration parameters. Toggles and limits
// arrive here explicitly; the orchestrator keeps no ambient state.
type SyncerConfig struct {
	// UserID identifies the uploading account. Zero aborts every run
	// before any work starts.
	UserID int

	// FetchLimit is how many call-log candidates one run pulls.
	FetchLimit int

	// Concurrency bounds uploads in flight within a batch.
	Concurrency int
}

// Syncer drives one orchestration run: fetch candidates once, upload
// every unsynced recording in bounded batches, then commit the
// accumulated identity keys to the store in a single union.
type Syncer struct {
	cfg    SyncerConfig
	api    remoteAPI
	store  *state.State
	logger *slog.Logger

	// busy rejects a run while another is in flight. A concurrent
	// request is refused, not queued.
	busy atomic.Bool
}

// NewSyncer creates an orchestrator. Zero FetchLimit and Concurrency
// fall back to 200 and 10.
func NewSyncer(cfg SyncerConfig, api remoteAPI, store *state.State, logger *slog.Logger) *Syncer {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 200
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	return &Syncer{
		cfg:    cfg,
		api:    api,
		store:  store,
		logger: logger,
	}
}

// runOutcome accumulates per-file results across upload goroutines.
// Set-union accumulation is commutative, so the committed key set is
// independent of batch completion order.
type runOutcome struct {
	mu        sync.Mutex
	keys      []string
	succeeded int
	failed    int
	matched   int
}

func (o *runOutcome) success(key string, matched bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.keys = append(o.keys, key)
	o.succeeded++

	if matched {
		o.matched++
	}
}

func (o *runOutcome) failure() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.failed++
}

// SyncUnsynced uploads every inventory file not yet in the sync-state
// store and reports the aggregate outcome. Individual upload failures
// are non-fatal: the file stays unsynced and is retried on the next
// run. The store is committed once per run, after the last batch.
//
// Returns ErrSyncInProgress while another run is in flight and
// ErrMissingIdentity when no user id is configured.
func (s *Syncer) SyncUnsynced(ctx context.Context, inventory []File) (*Report, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, apperrors.ErrSyncInProgress
	}
	defer s.busy.Store(false)

	if s.cfg.UserID == 0 {
		return nil, apperrors.ErrMissingIdentity
	}

	// One candidate fetch per run. A failed fetch degrades to an empty
	// candidate set: recordings still upload, just without a call-log
	// link.
	candidates, err := s.api.FetchCallLogs(ctx, s.cfg.UserID, s.cfg.FetchLimit, 0)
	if err != nil {
		s.logger.Warn("call log fetch failed, syncing unlinked",
			slog.String("error", err.Error()),
		)

		candidates = nil
	}

	report := &Report{Total: len(inventory)}

	var pending []*File

	for i := range inventory {
		if s.store.IsSynced(inventory[i].IdentityKey) {
			inventory[i].Synced = true
			report.Skipped++

			continue
		}

		pending = append(pending, &inventory[i])
	}

	s.logger.Info("sync run starting",
		slog.Int("pending", len(pending)),
		slog.Int("skipped", report.Skipped),
		slog.Int("candidates", len(candidates)),
	)

	outcome := &runOutcome{}
	runErr := s.uploadBatches(ctx, pending, candidates, outcome)

	report.Succeeded = outcome.succeeded
	report.Failed = outcome.failed
	report.Matched = outcome.matched

	// Commit whatever succeeded even when the run was cut short; the
	// remaining files are picked up by the next run.
	if err := s.store.MarkSynced(outcome.keys); err != nil {
		return report, fmt.Errorf("committing synced keys: %w", err)
	}

	if err := s.store.SetLastSync(time.Now()); err != nil {
		return report, fmt.Errorf("recording last sync time: %w", err)
	}

	if runErr != nil {
		return report, runErr
	}

	s.logger.Info("sync run complete",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("matched", report.Matched),
	)

	return report, nil
}

// uploadBatches fans each batch out to at most Concurrency goroutines
// and joins the whole batch before starting the next one, bounding open
// file handles and in-flight requests while overlapping network latency.
func (s *Syncer) uploadBatches(ctx context.Context, pending []*File, candidates []CallLogRecord, outcome *runOutcome) error {
	for start := 0; start < len(pending); start += s.cfg.Concurrency {
		batch := pending[start:min(start+s.cfg.Concurrency, len(pending))]

		g := &errgroup.Group{}

		for _, f := range batch {
			f := f
			g.Go(func() error {
				return s.uploadOne(ctx, f, candidates, outcome)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// uploadOne uploads a single recording. Per-file failures are absorbed
// into the outcome; only context cancellation propagates.
func (s *Syncer) uploadOne(ctx context.Context, f *File, candidates []CallLogRecord, outcome *runOutcome) error {
	match := FindMatch(*f, candidates)

	data, err := os.ReadFile(f.Path)
	if err != nil {
		s.logger.Warn("reading recording",
			slog.String("file", f.FileName),
			slog.String("error", err.Error()),
		)
		outcome.failure()

		return nil
	}

	req := UploadRequest{
		PhoneNumber:    f.DisplayPhoneNumber,
		RawPhoneNumber: f.RawPhoneNumber,
		Timestamp:      f.Timestamp,
		Date:           f.DisplayDate,
		Time:           f.DisplayTime,
		CallType:       f.CallType.String(),
		FileName:       f.FileName,
		FileSize:       f.SizeBytes,
		Duration:       FormatDuration(f.DurationMillis),
		DurationMillis: f.DurationMillis,
		FileData:       base64.StdEncoding.EncodeToString(data),
		FileIdentifier: f.IdentityKey,
		UserID:         s.cfg.UserID,
	}
	if match != nil {
		req.CallLogID = match.ID
	}

	res, err := s.api.Upload(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("upload failed",
			slog.String("file", f.FileName),
			slog.String("error", err.Error()),
		)
		outcome.failure()

		return nil
	}

	if !res.Success {
		s.logger.Warn("upload rejected",
			slog.String("file", f.FileName),
			slog.String("message", res.Message),
		)
		outcome.failure()

		return nil
	}

	f.Synced = true
	if res.Matched {
		f.MatchedCallLogID = res.CallLogID
	}

	outcome.success(f.IdentityKey, res.Matched)

	return nil
}
