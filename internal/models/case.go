package models

import (
	"strconv"
	"time"
)

// Case is a civil case identified by (court, general docket number, year).
type Case struct {
	ID           int64     `json:"id" db:"id"`
	CourtID      int64     `json:"courtId" db:"court_id"`
	GAKNumber    string    `json:"gakNumber" db:"gak_number"`
	GAKYear      int       `json:"gakYear" db:"gak_year"`
	Procedure    string    `json:"procedure,omitempty" db:"procedure"`
	Subject      string    `json:"subject,omitempty" db:"subject"`
	DocumentType string    `json:"documentType,omitempty" db:"document_type"`
	EAKNumber    string    `json:"eakNumber,omitempty" db:"eak_number"`
	EAKYear      int       `json:"eakYear,omitempty" db:"eak_year"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// DocketReference renders the case key the way the portal does.
func (c *Case) DocketReference() string {
	return c.GAKNumber + "/" + strconv.Itoa(c.GAKYear)
}
