package sync

import (
	"fmt"
	"time"
)

// Outcome classifies what happened to one seed entry.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkipped marks entries that failed validation; no store call was
	// made for them.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed marks entries whose identity reconciliation failed; their
	// profile write was not staged.
	OutcomeFailed Outcome = "failed"
)

// UserResult is the per-entry audit record, reported in seed input order.
type UserResult struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
	// ClaimsError is set when SetClaims failed but the profile write was
	// still staged (claims are best-effort relative to profile consistency).
	ClaimsError string `json:"claimsError,omitempty"`
}

// BatchResult records one profile batch commit attempt.
type BatchResult struct {
	Index int `json:"index"`
	Ops   int `json:"ops"`
	// Users lists the seed ids whose profile writes rode in this batch, so a
	// failed commit can name everyone it affected.
	Users []string `json:"users,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Report summarizes a full synchronization run.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Users   []UserResult  `json:"users"`
	Batches []BatchResult `json:"batches"`

	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	ClaimsFailures   int `json:"claimsFailures"`
	BatchesCommitted int `json:"batchesCommitted"`
	BatchesFailed    int `json:"batchesFailed"`
	DatasetRecords   int `json:"datasetRecords"`
}

// finalize fills the aggregate counts from the per-entry and per-batch results.
func (r *Report) finalize() {
	r.Created, r.Updated, r.Skipped, r.Failed, r.ClaimsFailures = 0, 0, 0, 0, 0
	for _, u := range r.Users {
		switch u.Outcome {
		case OutcomeCreated:
			r.Created++
		case OutcomeUpdated:
			r.Updated++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
		}
		if u.ClaimsError != "" {
			r.ClaimsFailures++
		}
	}
	r.BatchesCommitted, r.BatchesFailed = 0, 0
	for _, b := range r.Batches {
		if b.Error == "" {
			r.BatchesCommitted++
		} else {
			r.BatchesFailed++
		}
	}
}

// Ok reports whether the run completed with every entry reconciled and every
// batch committed.
func (r *Report) Ok() bool {
	return r.Skipped == 0 && r.Failed == 0 && r.ClaimsFailures == 0 && r.BatchesFailed == 0
}

// Summary renders the one-line closing count for logs and the CLI.
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"identities: %d created, %d updated, %d skipped, %d failed; claims failures: %d; batches: %d committed, %d failed; dataset records: %d",
		r.Created, r.Updated, r.Skipped, r.Failed, r.ClaimsFailures, r.BatchesCommitted, r.BatchesFailed, r.DatasetRecords,
	)
}
