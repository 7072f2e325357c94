package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/shulebook/shulebook/internal/identity"
	"github.com/shulebook/shulebook/internal/profile"
	"github.com/shulebook/shulebook/internal/seed"
	"github.com/shulebook/shulebook/pkg/logger"
	"github.com/shulebook/shulebook/pkg/metrics"
)

// Options tunes a synchronization run. Zero values fall back to defaults.
type Options struct {
	// Workers bounds concurrent identity-store reconciliations.
	Workers int
	// MaxBatchOps caps staged writes per profile batch; the run chunks into
	// further batches past it.
	MaxBatchOps int
	// RetryAttempts bounds retries of transient store failures per call.
	RetryAttempts int
	// RetryBackoff is the base of the exponential backoff between retries.
	RetryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxBatchOps <= 0 {
		o.MaxBatchOps = profile.DefaultMaxBatchOps
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	} else if o.RetryAttempts == 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	return o
}

// Synchronizer reconciles the seed list against the identity store and stages
// matching profile documents, committing them in atomic batches. Stores are
// injected so runs are testable against doubles.
type Synchronizer struct {
	src      seed.Source
	ids      identity.Store
	profiles profile.Store
	opts     Options
}

func New(src seed.Source, ids identity.Store, profiles profile.Store, opts Options) *Synchronizer {
	return &Synchronizer{src: src, ids: ids, profiles: profiles, opts: opts.withDefaults()}
}

// Run executes one full synchronization. Per-entry failures are collected in
// the report and never abort the run; only malformed seed input or external
// cancellation returns a non-nil error. Identity-store effects that landed
// before a cancellation stay in place (the provider has no rollback), but no
// further entries are reconciled and uncommitted batches are not committed.
func (s *Synchronizer) Run(ctx context.Context) (*Report, error) {
	started := time.Now()

	data, err := s.src.Load()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
		Users:     make([]UserResult, len(data.Users)),
	}
	st := newStager(s.profiles, s.opts.MaxBatchOps)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, u := range data.Users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				rep.Users[i] = UserResult{ID: u.ID, Email: u.Email, Outcome: OutcomeFailed, Error: err.Error()}
				return err
			}
			rep.Users[i] = s.reconcile(gctx, st, u)
			return nil
		})
	}
	runErr := g.Wait()

	if runErr == nil {
		runErr = s.stageDataset(st, rep, data.Dataset)
	}

	s.commit(ctx, st, rep, runErr)

	rep.FinishedAt = time.Now().UTC()
	rep.finalize()
	s.observe(rep)
	s.logResults(rep)
	return rep, runErr
}

// reconcile runs steps 1-4 of the per-entry algorithm: validate, create or
// update the identity, set claims, stage the profile write.
func (s *Synchronizer) reconcile(ctx context.Context, st *stager, u seed.User) UserResult {
	res := UserResult{ID: u.ID, Email: u.Email}

	if err := u.Validate(); err != nil {
		res.Outcome = OutcomeSkipped
		res.Error = err.Error()
		return res
	}

	outcome := OutcomeUpdated
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.ids.FindByID(ctx, u.ID)
		return err
	})
	switch {
	case errors.Is(err, identity.ErrNotFound):
		outcome = OutcomeCreated
		err = s.withRetry(ctx, func(ctx context.Context) error {
			_, err := s.ids.Create(ctx, u.ID, u.Email, u.Password, u.DisplayName)
			return err
		})
	case err == nil:
		err = s.withRetry(ctx, func(ctx context.Context) error {
			_, err := s.ids.Update(ctx, u.ID, u.Email, u.Password, u.DisplayName)
			return err
		})
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	// Claims are best-effort: a failure here is recorded but the profile
	// write below is still staged.
	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.ids.SetClaims(ctx, u.ID, u.Claims())
	}); err != nil {
		res.ClaimsError = err.Error()
	}

	if err := st.Set("users", u.ID, u.ProfileFields(), u.ID); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	res.Outcome = outcome
	return res
}

func (s *Synchronizer) stageDataset(st *stager, rep *Report, ds seed.Dataset) error {
	for _, c := range ds.Collections() {
		for _, r := range c.Records {
			if err := st.Set(c.Collection, r.ID, r.Fields, ""); err != nil {
				return err
			}
			rep.DatasetRecords++
		}
	}
	return nil
}

// commit applies all staged batches. A failed batch does not stop the rest;
// each is an independent atomic unit. When the run was cancelled the staged
// batches are reported as failed without touching the store.
func (s *Synchronizer) commit(ctx context.Context, st *stager, rep *Report, runErr error) {
	for i, sb := range st.flush() {
		br := BatchResult{Index: i, Ops: sb.ops, Users: sb.users}
		if runErr != nil {
			br.Error = "not committed: " + runErr.Error()
			rep.Batches = append(rep.Batches, br)
			continue
		}
		err := s.withRetry(ctx, func(ctx context.Context) error {
			return sb.batch.Commit(ctx)
		})
		if err != nil {
			br.Error = err.Error()
		}
		rep.Batches = append(rep.Batches, br)
	}
}

// withRetry retries transient identity/profile failures with exponential
// backoff and jitter; taxonomy errors (not-found, duplicate email, commit
// refused) surface immediately.
func (s *Synchronizer) withRetry(ctx context.Context, op func(context.Context) error) error {
	b := retry.NewExponential(s.opts.RetryBackoff)
	b = retry.WithJitter(s.opts.RetryBackoff/4, b)
	b = retry.WithMaxRetries(uint64(s.opts.RetryAttempts), b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && (identity.IsTransient(err) || profile.IsTransient(err)) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Synchronizer) observe(rep *Report) {
	metrics.IdentitiesReconciled.WithLabelValues(string(OutcomeCreated)).Add(float64(rep.Created))
	metrics.IdentitiesReconciled.WithLabelValues(string(OutcomeUpdated)).Add(float64(rep.Updated))
	metrics.IdentitiesReconciled.WithLabelValues(string(OutcomeSkipped)).Add(float64(rep.Skipped))
	metrics.IdentitiesReconciled.WithLabelValues(string(OutcomeFailed)).Add(float64(rep.Failed))
	metrics.BatchesCommitted.Add(float64(rep.BatchesCommitted))
	metrics.BatchesFailed.Add(float64(rep.BatchesFailed))
	metrics.RunDuration.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
}

// logResults prints per-user progress lines in seed input order, then the
// summary, so the log reads as an audit trail of the input list.
func (s *Synchronizer) logResults(rep *Report) {
	for _, u := range rep.Users {
		switch {
		case u.Outcome == OutcomeCreated || u.Outcome == OutcomeUpdated:
			if u.ClaimsError != "" {
				logger.Warnf("sync: %s %s (%s), claims failed: %s", u.Outcome, u.ID, u.Email, u.ClaimsError)
			} else {
				logger.Infof("sync: %s %s (%s)", u.Outcome, u.ID, u.Email)
			}
		default:
			logger.Warnf("sync: %s %s (%s): %s", u.Outcome, u.ID, u.Email, u.Error)
		}
	}
	for _, b := range rep.Batches {
		if b.Error != "" {
			logger.Errorf("sync: batch %d (%d ops) failed: %s; affected users: %v", b.Index, b.Ops, b.Error, b.Users)
		}
	}
	logger.Infof("sync: run %s done: %s", rep.RunID, rep.Summary())
}

// stager serializes staging into the shared batch chain, rotating to a fresh
// batch when the per-batch operation cap is reached.
type stager struct {
	mu    sync.Mutex
	store profile.Store
	max   int
	cur   *stagedBatch
	done  []*stagedBatch
}

type stagedBatch struct {
	batch profile.Batch
	users []string
	ops   int
}

func newStager(store profile.Store, max int) *stager {
	return &stager{store: store, max: max}
}

func (st *stager) Set(collection, id string, fields map[string]interface{}, user string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cur == nil || st.cur.ops >= st.max {
		st.rotate()
	}
	err := st.cur.batch.Set(collection, id, fields)
	if errors.Is(err, profile.ErrBatchFull) {
		// the store's own cap is tighter than ours
		st.rotate()
		err = st.cur.batch.Set(collection, id, fields)
	}
	if err != nil {
		return err
	}
	st.cur.ops++
	if user != "" {
		st.cur.users = append(st.cur.users, user)
	}
	return nil
}

func (st *stager) rotate() {
	if st.cur != nil {
		st.done = append(st.done, st.cur)
	}
	st.cur = &stagedBatch{batch: st.store.NewBatch()}
}

func (st *stager) flush() []*stagedBatch {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cur != nil {
		st.done = append(st.done, st.cur)
		st.cur = nil
	}
	return st.done
}
