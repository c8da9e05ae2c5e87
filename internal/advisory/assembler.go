// Package advisory composes structured fraud facts into prompts for
// the text generator and wraps the results into advisory artifacts.
package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/aggregate"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Assembler builds branch advisories from classified records, matched
// region rules and the resolved contact. The text generator is
// injected so tests can substitute a double.
type Assembler struct {
	generator domain.TextGenerator
}

// NewAssembler creates an assembler around a text generator.
func NewAssembler(generator domain.TextGenerator) *Assembler {
	return &Assembler{generator: generator}
}

// Input carries the structured facts for one branch advisory.
type Input struct {
	Branch        string
	Records       []domain.ClassifiedRecord
	Rules         *domain.RegionRuleSet
	MatchedRegion string
	Contact       domain.BranchContact
}

// Assemble produces the advisory record for a branch. Generation
// failures and empty generator output degrade to an error-marker
// advisory body; no fault propagates past this boundary, because
// downstream code persists and displays the content unconditionally.
func (a *Assembler) Assemble(ctx context.Context, in Input) *domain.AdvisoryRecord {
	rec := &domain.AdvisoryRecord{
		ID:            uuid.New().String(),
		Branch:        in.Branch,
		MatchedRegion: in.MatchedRegion,
		CreatedAt:     time.Now().UTC(),
	}

	prompt := a.buildPrompt(in)

	content, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		rec.AdvisoryContent = fmt.Sprintf("%s failed to generate advisory for branch %s: %v",
			domain.AdvisoryErrorMarker, in.Branch, err)
		return rec
	}
	if strings.TrimSpace(content) == "" {
		rec.AdvisoryContent = fmt.Sprintf("%s text generator returned empty advisory for branch %s",
			domain.AdvisoryErrorMarker, in.Branch)
		return rec
	}

	rec.AdvisoryContent = content
	return rec
}

// buildPrompt packages per-branch counts, the matched region's rules
// and the contact block into the generator request.
func (a *Assembler) buildPrompt(in Input) string {
	branchRecords := aggregate.FilterLocation(in.Records, in.Branch)
	total := len(branchRecords)
	fraudCounts := aggregate.FraudTypeCounts(branchRecords)

	matchedRules := "No specific rules found for this location."
	if in.Rules != nil {
		if body, ok := in.Rules.Get(in.MatchedRegion); ok && body != "" {
			matchedRules = body
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a compliance communication officer.\n")
	fmt.Fprintf(&b, "Write a formal email advisory for the %s branch.\n\n", in.Branch)
	fmt.Fprintf(&b, "Include:\n")
	fmt.Fprintf(&b, "- Total transaction count reviewed: %d\n", total)
	fmt.Fprintf(&b, "- Fraud types and counts: %s\n", formatCounts(fraudCounts))
	fmt.Fprintf(&b, "- Policy rules from the matched region %s:\n%s\n\n", in.MatchedRegion, matchedRules)
	fmt.Fprintf(&b, "Structure:\n")
	fmt.Fprintf(&b, "1. Greeting\n2. Summary of findings\n3. Recommended actions\n")
	fmt.Fprintf(&b, "4. Contact details: %s (%s, SLA %s)\n",
		orNA(in.Contact.Name), orNA(in.Contact.Role), orNA(in.Contact.SLA))
	fmt.Fprintf(&b, "5. Signature block \"Fraud Intelligence System\"\n\n")
	fmt.Fprintf(&b, "Tone: business-formal, clear, and directive. ")
	fmt.Fprintf(&b, "Do not include special characters like * or # in the generated content.\n")
	return b.String()
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, c := range aggregate.TopN(counts, 0) {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Key, c.Count))
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
