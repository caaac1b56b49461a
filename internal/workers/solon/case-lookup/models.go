// internal/workers/solon/case-lookup/models.go
package caselookup

type Input struct {
	JobID       string `json:"jobId"`
	ClientName  string `json:"clientName,omitempty"`
	CourtLabel  string `json:"courtLabel"`
	CaseNumber  string `json:"caseNumber"`
	CaseYear    int    `json:"caseYear"`
	NotifyEmail string `json:"notifyEmail,omitempty"`
}

type Output struct {
	JobID           string            `json:"jobId,omitempty"`
	Status          string            `json:"status"`
	Matched         bool              `json:"matched"`
	Cached          bool              `json:"cached"`
	CourtLabel      string            `json:"courtLabel"`
	DocketReference string            `json:"docketReference"`
	CaseID          int64             `json:"caseId,omitempty"`
	SnapshotID      int64             `json:"snapshotId,omitempty"`
	Fields          map[string]string `json:"fields"`
	CompletedAt     string            `json:"completedAt"` // ISO 8601
}

// snapshotPayload is the cached form of a completed lookup, stored in
// Redis under the docket key and reused within the snapshot TTL.
type snapshotPayload struct {
	CaseID     int64             `json:"caseId,omitempty"`
	SnapshotID int64             `json:"snapshotId,omitempty"`
	Matched    bool              `json:"matched"`
	Fields     map[string]string `json:"fields"`
	ScrapedAt  string            `json:"scrapedAt"`
	Version    string            `json:"version"`
}
