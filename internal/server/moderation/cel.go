package moderation

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

const (
	maxExpressionLength = 4096
	costLimit           = 100000
)

var (
	// ErrExpressionCheck is returned when a rule fails parsing or type checking.
	ErrExpressionCheck = errors.New("rule expression check failed")
	// ErrEvaluation is returned when a rule fails at evaluation time.
	ErrEvaluation = errors.New("rule evaluation failed")
)

// newEnv declares the variables visible to rule expressions.
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("slug", cel.StringType),
		cel.Variable("displayName", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("text", cel.StringType),
		cel.Variable("paths", cel.ListType(cel.StringType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
}

type program struct {
	source string
	prg    cel.Program
}

func compile(env *cel.Env, expr string) (*program, error) {
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("%w: expression length %d exceeds maximum of %d",
			ErrExpressionCheck, len(expr), maxExpressionLength)
	}

	parsed, issues := env.Parse(expr)
	if issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrExpressionCheck, expr, issues.Err())
	}
	checked, issues := env.Check(parsed)
	if issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrExpressionCheck, expr, issues.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q must evaluate to bool, got %s",
			ErrExpressionCheck, expr, checked.OutputType())
	}

	prg, err := env.Program(checked, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program for %q: %w", expr, err)
	}
	return &program{source: expr, prg: prg}, nil
}

func (p *program) evalBool(vars map[string]any) (bool, error) {
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %s", ErrEvaluation, p.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q: expected bool, got %T", ErrEvaluation, p.source, out.Value())
	}
	return b, nil
}
