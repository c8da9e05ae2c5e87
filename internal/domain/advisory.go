package domain

import (
	"strings"
	"time"
)

// RegionRuleSet maps document-derived region headings to their rule
// bodies. Keys are verbatim heading text, not canonical region names.
// Regions preserves first-seen document order so that similarity
// matching enumerates regions deterministically.
type RegionRuleSet struct {
	Regions []string
	Bodies  map[string]string
}

// NewRegionRuleSet returns an empty rule set.
func NewRegionRuleSet() *RegionRuleSet {
	return &RegionRuleSet{Bodies: make(map[string]string)}
}

// Put stores a rule body for a region. A repeated heading overwrites
// the body (last write wins) but keeps its original position.
func (s *RegionRuleSet) Put(region, body string) {
	if _, ok := s.Bodies[region]; !ok {
		s.Regions = append(s.Regions, region)
	}
	s.Bodies[region] = body
}

// Get returns the rule body for a region and whether it exists.
func (s *RegionRuleSet) Get(region string) (string, bool) {
	body, ok := s.Bodies[region]
	return body, ok
}

// Len returns the number of regions in the set.
func (s *RegionRuleSet) Len() int {
	return len(s.Regions)
}

// BranchContact is the escalation contact scraped from the text window
// following a branch name in the rule document. All fields are
// optional; a contact without an email cannot receive dispatches.
type BranchContact struct {
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	SLA   string `json:"sla,omitempty"`
	Email string `json:"email,omitempty"`
}

// Usable reports whether the contact can receive an advisory mail.
func (c *BranchContact) Usable() bool {
	return c.Email != ""
}

// IsZero reports whether nothing was extracted for the contact.
func (c *BranchContact) IsZero() bool {
	return c.Name == "" && c.Role == "" && c.SLA == "" && c.Email == ""
}

// AdvisoryRecord is the terminal artifact of the advisory path:
// generated (or failure-marker) text plus the branch and matched
// region it was produced for. No further mutation after creation.
type AdvisoryRecord struct {
	ID              string    `json:"id"`
	Branch          string    `json:"branch"`
	MatchedRegion   string    `json:"matchedRegion"`
	AdvisoryContent string    `json:"advisoryContent"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AdvisoryErrorMarker prefixes advisory content produced when the text
// generator failed. Downstream code persists and displays the content
// unconditionally, so the failure must be readable, not thrown.
const AdvisoryErrorMarker = "[advisory-error]"

// Failed reports whether the advisory carries a failure marker instead
// of generated text.
func (a *AdvisoryRecord) Failed() bool {
	return strings.HasPrefix(a.AdvisoryContent, AdvisoryErrorMarker)
}

// AdvisoryEvent is the bus payload published when an advisory is
// generated. It carries everything the dispatch worker needs so the
// worker never re-reads the run.
type AdvisoryEvent struct {
	AdvisoryID   string         `json:"advisoryId"`
	Branch       string         `json:"branch"`
	Content      string         `json:"content"`
	FraudTypes   map[string]int `json:"fraudTypes"`
	AnomalyCount int            `json:"anomalyCount"`
	TotalCount   int            `json:"totalCount"`
	Contact      BranchContact  `json:"contact"`
}

// MailMessage is the composed message contract handed to the mail
// transport. Body layout is greeting + advisory content + role/SLA
// footer + signature, assembled by the dispatch worker.
type MailMessage struct {
	Recipient string
	Subject   string
	Body      string
}
