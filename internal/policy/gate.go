// Package policy provides the CEL-based advisory dispatch gate.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Gate decides whether a generated advisory is dispatched to its
// branch contact. The expression is compiled once at construction;
// parse errors surface at load time, not dispatch time.
type Gate struct {
	program cel.Program
}

// Input holds the branch facts visible to the policy expression.
type Input struct {
	Branch       string
	FraudCount   int
	AnomalyCount int
	TotalCount   int
	TopFraudType string
	Failed       bool
}

// NewGate compiles a dispatch policy expression. An empty expression
// yields a gate that allows every advisory.
func NewGate(expression string) (*Gate, error) {
	if expression == "" {
		return &Gate{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("branch", cel.StringType),
		cel.Variable("fraud_count", cel.IntType),
		cel.Variable("anomaly_count", cel.IntType),
		cel.Variable("total_count", cel.IntType),
		cel.Variable("top_fraud_type", cel.StringType),
		cel.Variable("failed", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile dispatch policy: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("dispatch policy must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch policy program: %w", err)
	}

	return &Gate{program: program}, nil
}

// Allow evaluates the policy for one advisory. Advisories carrying a
// failure marker are never dispatched regardless of the expression.
func (g *Gate) Allow(in Input) (bool, error) {
	if in.Failed {
		return false, nil
	}
	if g.program == nil {
		return true, nil
	}

	out, _, err := g.program.Eval(map[string]any{
		"branch":         in.Branch,
		"fraud_count":    in.FraudCount,
		"anomaly_count":  in.AnomalyCount,
		"total_count":    in.TotalCount,
		"top_fraud_type": in.TopFraudType,
		"failed":         in.Failed,
	})
	if err != nil {
		return false, fmt.Errorf("dispatch policy evaluation: %w", err)
	}

	allowed, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("dispatch policy returned non-bool %v", out)
	}
	return bool(allowed), nil
}

// InputFor derives the gate input from a branch's advisory and counts.
func InputFor(adv *domain.AdvisoryRecord, fraudTypes map[string]int, anomalyCount, totalCount int) Input {
	top := ""
	topCount := 0
	for t, n := range fraudTypes {
		if n > topCount || (n == topCount && (top == "" || t < top)) {
			top = t
			topCount = n
		}
	}
	fraudCount := 0
	for _, n := range fraudTypes {
		fraudCount += n
	}
	return Input{
		Branch:       adv.Branch,
		FraudCount:   fraudCount,
		AnomalyCount: anomalyCount,
		TotalCount:   totalCount,
		TopFraudType: top,
		Failed:       adv.Failed(),
	}
}
