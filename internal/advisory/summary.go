package advisory

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/aggregate"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Summarizer produces region and device fraud summaries through the
// text generator. Zero fraud records short-circuit to a fixed message
// without invoking the generator.
type Summarizer struct {
	generator domain.TextGenerator
}

// NewSummarizer creates a summarizer around a text generator.
func NewSummarizer(generator domain.TextGenerator) *Summarizer {
	return &Summarizer{generator: generator}
}

// RegionSummary generates an executive fraud summary for one region.
func (s *Summarizer) RegionSummary(ctx context.Context, region string, records []domain.ClassifiedRecord) (string, error) {
	var fraud []domain.ClassifiedRecord
	for i := range records {
		if records[i].PredictedFraud == 1 && records[i].Region == region {
			fraud = append(fraud, records[i])
		}
	}
	if len(fraud) == 0 {
		return fmt.Sprintf("No fraudulent activities detected in the %s region.", region), nil
	}

	topBranches := aggregate.TopN(aggregate.Summarize(fraud), 3)
	fraudTypes := aggregate.FraudTypeCounts(fraud)
	topDevices := aggregate.TopN(aggregate.DeviceCounts(fraud), 3)

	var b strings.Builder
	fmt.Fprintf(&b, "Generate an executive summary for fraud activity in the %s region.\n", region)
	fmt.Fprintf(&b, "Based on the following data:\n\n")
	fmt.Fprintf(&b, "1. Top branches with highest fraud counts: %s\n", formatTop(topBranches))
	fmt.Fprintf(&b, "2. Prevalent fraud types: %s\n", formatCounts(fraudTypes))
	fmt.Fprintf(&b, "3. Top devices used for fraudulent transactions: %s\n", formatTop(topDevices))
	fmt.Fprintf(&b, "4. Concrete examples of fraudulent transactions:\n%s\n", formatExamples(fraud, 3))
	fmt.Fprintf(&b, "\nProvide a concise summary covering key trends, highlight the riskiest branches, ")
	fmt.Fprintf(&b, "and suggest potential areas for investigation. The tone should be formal and advisory.\n")

	text, err := s.generator.Generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("region summary generation: %w", err)
	}
	return text, nil
}

// DeviceSummary generates a device risk summary over the fraudulent
// records of a run.
func (s *Summarizer) DeviceSummary(ctx context.Context, records []domain.ClassifiedRecord) (string, error) {
	fraud := aggregate.FilterFraud(records)
	if len(fraud) == 0 {
		return "No fraudulent activities detected to analyze device patterns.", nil
	}

	distribution := aggregate.DeviceCounts(fraud)
	txnByDevice := aggregate.TxnTypesByDevice(fraud, 2)

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following device fraud data for a financial region.\n\n")
	fmt.Fprintf(&b, "1. Total fraud counts by device type: %s\n", formatCounts(distribution))
	fmt.Fprintf(&b, "2. Top transaction types observed per device:\n")
	for _, c := range aggregate.TopN(distribution, 0) {
		fmt.Fprintf(&b, "   %s: %s\n", c.Key, formatTop(txnByDevice[c.Key]))
	}
	fmt.Fprintf(&b, "3. Example fraudulent transactions:\n%s\n", formatExamples(fraud, 5))
	fmt.Fprintf(&b, "\nGenerate a short, structured device risk summary identifying the most exploited ")
	fmt.Fprintf(&b, "devices, apparent vulnerability patterns, and actionable mitigations for the ")
	fmt.Fprintf(&b, "security team. The tone should be advisory and technical.\n")

	text, err := s.generator.Generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("device summary generation: %w", err)
	}
	return text, nil
}

func formatTop(counts []aggregate.Count) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Key, c.Count))
	}
	return strings.Join(parts, ", ")
}

func formatExamples(records []domain.ClassifiedRecord, n int) string {
	if n > len(records) {
		n = len(records)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		r := &records[i]
		fmt.Fprintf(&b, "   %s | %s | %.2f | %s | %s | %s\n",
			r.TransactionID, r.Timestamp, r.Amount, r.TxnType, r.DeviceType, r.Location)
	}
	return strings.TrimRight(b.String(), "\n")
}
