package ruledoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

const contactDoc = `MAHARASHTRA
Report all UPI fraud within 24 hours.

Branch Escalation Contacts

Mumbai Central branch escalation:
Name: A. Rao
Role: Regional Fraud Officer
SLA: 4 hours
Reach at a.rao@bank.example.com for urgent cases.

Pune West branch escalation:
Name: S. Iyer
role: Branch Compliance Lead
sla: 8 hours
Contact s.iyer@bank.example.com during business hours.
`

func TestExtractContact(t *testing.T) {
	doc := ParseBlocks(contactDoc)

	contact, err := ExtractContact(doc, "Mumbai Central", 600)
	if err != nil {
		t.Fatalf("ExtractContact failed: %v", err)
	}

	if contact.Name != "A. Rao" {
		t.Errorf("Name = %q, want A. Rao", contact.Name)
	}
	if contact.Role != "Regional Fraud Officer" {
		t.Errorf("Role = %q", contact.Role)
	}
	if contact.SLA != "4 hours" {
		t.Errorf("SLA = %q", contact.SLA)
	}
	if contact.Email != "a.rao@bank.example.com" {
		t.Errorf("Email = %q", contact.Email)
	}
	if !contact.Usable() {
		t.Error("contact with email should be usable")
	}
}

func TestExtractContactCaseInsensitiveTokens(t *testing.T) {
	doc := ParseBlocks(contactDoc)

	contact, err := ExtractContact(doc, "Pune West", 600)
	if err != nil {
		t.Fatalf("ExtractContact failed: %v", err)
	}
	if contact.Role != "Branch Compliance Lead" {
		t.Errorf("lower-case role: token should still match, got %q", contact.Role)
	}
	if contact.SLA != "8 hours" {
		t.Errorf("lower-case sla: token should still match, got %q", contact.SLA)
	}
}

func TestExtractContactWindowBounds(t *testing.T) {
	doc := ParseBlocks(contactDoc)

	// A window too small to reach the email line: fields inside the
	// window still extract, the email does not.
	contact, err := ExtractContact(doc, "Mumbai Central", 60)
	if err != nil {
		t.Fatalf("ExtractContact failed: %v", err)
	}
	if contact.Name != "A. Rao" {
		t.Errorf("Name inside window should extract, got %q", contact.Name)
	}
	if contact.Email != "" {
		t.Errorf("email beyond window should not extract, got %q", contact.Email)
	}
	if contact.Usable() {
		t.Error("contact without email must not be usable")
	}
}

func TestExtractContactFirstOccurrenceOnly(t *testing.T) {
	doc := ParseBlocks("Mumbai Central appears first with no contact.\n" +
		strings.Repeat("filler line\n", 80) +
		"\nMumbai Central branch escalation:\nName: Late Entry\n")

	contact, err := ExtractContact(doc, "Mumbai Central", 100)
	if err != nil {
		t.Fatalf("ExtractContact failed: %v", err)
	}
	if contact.Name != "" {
		t.Errorf("window anchors at the first occurrence; got Name %q", contact.Name)
	}
}

func TestExtractContactFirstFieldValueWins(t *testing.T) {
	// The Mumbai window is wide enough to reach Pune West's fields; the
	// first value per field must hold.
	doc := ParseBlocks(contactDoc)

	contact, err := ExtractContact(doc, "Mumbai Central", 600)
	if err != nil {
		t.Fatalf("ExtractContact failed: %v", err)
	}
	if contact.Name != "A. Rao" {
		t.Errorf("a later name: line must not overwrite the first, got %q", contact.Name)
	}
	if contact.Email != "a.rao@bank.example.com" {
		t.Errorf("a later email must not overwrite the first, got %q", contact.Email)
	}
}

func TestExtractContactBranchAbsent(t *testing.T) {
	doc := ParseBlocks(contactDoc)

	contact, err := ExtractContact(doc, "Nonexistent Branch", 600)
	if !errors.Is(err, domain.ErrDocumentIncomplete) {
		t.Errorf("expected ErrDocumentIncomplete, got %v", err)
	}
	if !contact.IsZero() {
		t.Errorf("expected zero contact, got %+v", contact)
	}
}

func TestExtractContactEmptyBranchName(t *testing.T) {
	doc := ParseBlocks(contactDoc)
	if _, err := ExtractContact(doc, "", 600); !errors.Is(err, domain.ErrDocumentIncomplete) {
		t.Errorf("expected ErrDocumentIncomplete for empty branch, got %v", err)
	}
}

func TestFirstEmailToken(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Reach at a.rao@bank.example.com for urgent cases.", "a.rao@bank.example.com"},
		{"Contact (s.iyer@bank.example.com) anytime", "s.iyer@bank.example.com"},
		{"No address here", ""},
		{"malformed @ token", ""},
	}
	for _, tt := range tests {
		if got := firstEmailToken(tt.line); got != tt.want {
			t.Errorf("firstEmailToken(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
