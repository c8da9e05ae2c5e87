// Package ruledoc extracts region rules and branch contacts from an
// unstructured rule document. Both extractions are deliberately lossy
// heuristics over free text, kept isolated so they can be replaced
// with a structured schema without touching the pipeline.
package ruledoc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultContactWindow is the number of characters scanned after the
// first occurrence of a branch name when extracting a contact.
const DefaultContactWindow = 600

// Document is block-structured extractable text: the output of an
// upstream text extractor (PDF or otherwise), blocks in reading order.
type Document struct {
	Blocks []string
}

// LoadDocument reads a plain-text rule document from path. Blocks are
// separated by blank lines.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule document %s: %w", path, err)
	}
	return ParseBlocks(string(data)), nil
}

// ParseBlocks splits raw extracted text into blocks on blank lines.
func ParseBlocks(text string) *Document {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	for _, b := range strings.Split(normalized, "\n\n") {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}
	return &Document{Blocks: blocks}
}

// Text concatenates all blocks for window scanning.
func (d *Document) Text() string {
	return strings.Join(d.Blocks, "\n")
}

// Fingerprint identifies the document content for caching.
func (d *Document) Fingerprint() string {
	h := sha256.Sum256([]byte(d.Text()))
	return hex.EncodeToString(h[:])
}

// Parse walks the document's blocks in reading order and segments them
// into a region rule set. A line that is entirely upper-case or
// title-case starts a new region; subsequent non-heading, non-empty
// lines accumulate into that region's body, newline-joined. Lines
// before the first heading are discarded. A repeated heading resets
// its body (last write wins). A document with no heading-shaped lines
// yields an empty rule set together with ErrDocumentIncomplete, which
// callers treat as a degraded state, not a failure.
func Parse(doc *Document) (*domain.RegionRuleSet, string, error) {
	rules := domain.NewRegionRuleSet()
	raw := doc.Text()

	currentRegion := ""
	var currentBody []string
	flush := func() {
		if currentRegion != "" {
			rules.Put(currentRegion, strings.Join(currentBody, "\n"))
		}
	}

	for _, block := range doc.Blocks {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if isHeading(line) {
				flush()
				currentRegion = line
				currentBody = nil
				continue
			}
			if currentRegion != "" {
				currentBody = append(currentBody, line)
			}
		}
	}
	flush()

	if rules.Len() == 0 {
		return rules, raw, domain.ErrDocumentIncomplete
	}
	return rules, raw, nil
}

// isHeading classifies a line as a region heading: entirely upper-case,
// or title-case (every word starts with an upper-case letter). A word
// must start with a letter, so a line led by a number ("24 Hour Fraud
// Desk") reads as body text. This is heuristic and order-dependent; it
// does not validate against any canonical region list.
func isHeading(line string) bool {
	return isUpper(line) || isTitle(line)
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isTitle(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		first := []rune(w)[0]
		if !unicode.IsLetter(first) {
			return false
		}
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range []rune(w)[1:] {
			if unicode.IsLetter(r) && unicode.IsUpper(r) {
				return false
			}
		}
	}
	return true
}
