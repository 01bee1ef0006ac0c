// Package guard evaluates CEL access-compliance rules against a tool call's
// user context before dispatch. Rules come from configuration; with no
// rules, the guard allows everything.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Knowledge-Gate/kbgate/internal/config"
)

// maxExpressionLength bounds rule condition size.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit, preventing cost-exhaustion
// from pathological expressions.
const maxCostBudget = 100_000

// evalTimeout bounds a single rule evaluation.
const evalTimeout = 5 * time.Second

// DeniedError reports a deny decision along with the rule that matched.
type DeniedError struct {
	Rule string
	Tool string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied for tool %q by rule %q", e.Tool, e.Rule)
}

type compiledRule struct {
	name    string
	allow   bool
	program cel.Program
}

// Guard holds the compiled rule set. Safe for concurrent use; cel.Program
// evaluation is thread-safe.
type Guard struct {
	rules []compiledRule
}

// New compiles the configured rules. Conditions see two variables:
// tool (the resolved tool name) and user (the opaque user context mapping,
// empty when the event carried none).
func New(rules []config.AccessRuleConfig) (*Guard, error) {
	if len(rules) == 0 {
		return &Guard{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("tool", cel.StringType),
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard environment: %w", err)
	}

	g := &Guard{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if len(r.Condition) > maxExpressionLength {
			return nil, fmt.Errorf("rule %q: condition exceeds %d characters", r.Name, maxExpressionLength)
		}

		ast, issues := env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: compilation failed: %w", r.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %q: condition must evaluate to bool, got %s", r.Name, ast.OutputType())
		}

		prg, err := env.Program(ast,
			cel.EvalOptions(cel.OptOptimize),
			cel.CostLimit(maxCostBudget),
		)
		if err != nil {
			return nil, fmt.Errorf("rule %q: program creation failed: %w", r.Name, err)
		}

		g.rules = append(g.rules, compiledRule{
			name:    r.Name,
			allow:   r.Action == "allow",
			program: prg,
		})
	}
	return g, nil
}

// Enabled reports whether any rules are configured.
func (g *Guard) Enabled() bool { return len(g.rules) > 0 }

// Check evaluates the rules in order; the first matching condition decides.
// No match means allow. A rule evaluation error fails closed (deny) since
// an unevaluable condition cannot prove compliance.
func (g *Guard) Check(ctx context.Context, toolName string, userContext map[string]any) error {
	if len(g.rules) == 0 {
		return nil
	}
	if userContext == nil {
		userContext = map[string]any{}
	}

	activation := map[string]any{
		"tool": toolName,
		"user": userContext,
	}

	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	for _, r := range g.rules {
		out, _, err := r.program.ContextEval(ctx, activation)
		if err != nil {
			return &DeniedError{Rule: r.name, Tool: toolName}
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		if r.allow {
			return nil
		}
		return &DeniedError{Rule: r.name, Tool: toolName}
	}
	return nil
}
