package ruledoc

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ExtractContact scans the document for the escalation contact of a
// branch. It finds the first occurrence of branchName as a substring,
// takes a fixed window of characters from that position, and scans the
// window's lines for name:/role:/sla: tokens (case-insensitive, split
// on the first colon) and for an email-shaped token. A repeated field
// token inside the window keeps its first value, so a window running
// past the branch's section cannot pick up the next branch's fields.
// A branch that never appears yields a zero-value contact with
// ErrDocumentIncomplete; callers degrade, they do not fail.
func ExtractContact(doc *Document, branchName string, window int) (domain.BranchContact, error) {
	var contact domain.BranchContact
	if branchName == "" {
		return contact, domain.ErrDocumentIncomplete
	}
	if window <= 0 {
		window = DefaultContactWindow
	}

	text := doc.Text()
	idx := strings.Index(text, branchName)
	if idx < 0 {
		return contact, domain.ErrDocumentIncomplete
	}

	end := idx + window
	if end > len(text) {
		end = len(text)
	}
	snippet := text[idx:end]

	for _, line := range strings.Split(snippet, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		if strings.Contains(lower, "name:") && contact.Name == "" {
			contact.Name = valueAfterColon(line)
		}
		if strings.Contains(lower, "role:") && contact.Role == "" {
			contact.Role = valueAfterColon(line)
		}
		if strings.Contains(lower, "sla:") && contact.SLA == "" {
			contact.SLA = valueAfterColon(line)
		}
		if contact.Email == "" && strings.Contains(line, "@") {
			contact.Email = firstEmailToken(line)
		}
	}

	return contact, nil
}

func valueAfterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// firstEmailToken returns the first whitespace-separated token that
// looks like an email: contains both "@" and ".". A heuristic, not a
// validator.
func firstEmailToken(line string) string {
	for _, w := range strings.Fields(line) {
		if strings.Contains(w, "@") && strings.Contains(w, ".") {
			return strings.Trim(w, ",;<>()")
		}
	}
	return ""
}
