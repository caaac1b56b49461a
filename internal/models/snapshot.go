package models

import "time"

// CaseSnapshot is one versioned scrape result for a case: the canonical
// fields as JSON plus provenance, kept for auditing and for the snapshot
// reuse window.
type CaseSnapshot struct {
	ID             int64             `json:"id" db:"id"`
	CaseID         int64             `json:"caseId" db:"case_id"`
	Data           map[string]string `json:"data" db:"data"`
	ScrapedAt      time.Time         `json:"scrapedAt" db:"scraped_at"`
	ScraperVersion string            `json:"scraperVersion" db:"scraper_version"`
}
