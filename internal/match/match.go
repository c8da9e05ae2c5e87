// Package match resolves a free-form location string to the best
// region key of a rule set.
package match

import (
	"math"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Result is the outcome of a region match.
type Result struct {
	Region     string  `json:"region"`
	Similarity float64 `json:"similarity"`
	Exact      bool    `json:"exact"`
}

// Match finds the region of the rule set best matching location.
// Exact keys win outright with similarity 1. Otherwise region names
// are treated as short documents in a TF-IDF vector space together
// with the query, and the region with maximum cosine similarity wins;
// the first maximum in rule-set order breaks ties. When the rule set
// is non-empty this always returns some region, even at near-zero
// similarity; callers can inspect Similarity to log weak matches. An
// empty rule set has no possible match.
func Match(location string, rules *domain.RegionRuleSet) (Result, error) {
	if rules == nil || rules.Len() == 0 {
		return Result{}, domain.ErrDocumentIncomplete
	}

	if _, ok := rules.Get(location); ok {
		return Result{Region: location, Similarity: 1, Exact: true}, nil
	}

	corpus := make([]string, 0, rules.Len()+1)
	corpus = append(corpus, rules.Regions...)
	corpus = append(corpus, location)

	vectors := tfidfVectors(corpus)
	query := vectors[len(vectors)-1]

	best := 0
	bestSim := math.Inf(-1)
	for i := 0; i < rules.Len(); i++ {
		if sim := cosine(vectors[i], query); sim > bestSim {
			best = i
			bestSim = sim
		}
	}

	if bestSim < 0 || math.IsNaN(bestSim) {
		bestSim = 0
	}
	return Result{Region: rules.Regions[best], Similarity: bestSim}, nil
}

// tfidfVectors builds term-frequency/inverse-document-frequency
// vectors for the corpus. Terms are lower-cased alphanumeric tokens;
// IDF uses smoothed document frequency so single-document terms still
// carry weight.
func tfidfVectors(corpus []string) []map[string]float64 {
	tokenized := make([][]string, len(corpus))
	docFreq := make(map[string]int)
	for i, doc := range corpus {
		tokens := tokenize(doc)
		tokenized[i] = tokens
		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	n := float64(len(corpus))
	vectors := make([]map[string]float64, len(corpus))
	for i, tokens := range tokenized {
		tf := make(map[string]float64)
		for _, t := range tokens {
			tf[t]++
		}
		vec := make(map[string]float64, len(tf))
		for t, f := range tf {
			idf := math.Log((1+n)/(1+float64(docFreq[t]))) + 1
			vec[t] = f * idf
		}
		vectors[i] = vec
	}
	return vectors
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for t, va := range a {
		normA += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
