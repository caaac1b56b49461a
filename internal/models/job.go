// internal/models/job.go
package models

import "time"

// Job lifecycle: queued -> running -> done/failed.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// LookupJob tracks one submitted lookup and its lifecycle. Callers poll it
// by ID; the worker flips its status and links the case and snapshot when
// the scrape completes.
type LookupJob struct {
	ID         string    `json:"id" db:"id"`
	ClientName string    `json:"clientName,omitempty" db:"client_name"`
	CourtLabel string    `json:"courtLabel" db:"court_label"`
	GAKNumber  string    `json:"gakNumber" db:"gak_number"`
	GAKYear    int       `json:"gakYear" db:"gak_year"`
	Status     string    `json:"status" db:"status"`
	ErrorText  string    `json:"errorText,omitempty" db:"error_text"`
	CaseID     *int64    `json:"caseId,omitempty" db:"case_id"`
	SnapshotID *int64    `json:"snapshotId,omitempty" db:"snapshot_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// IsTerminal reports whether the job reached a final state.
func (j *LookupJob) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
