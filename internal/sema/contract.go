package sema

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/source"
)

// checkEnsures validates ensure predicates: every path value must
// root-resolve to `output` or a declared parameter.
func (c *Checker) checkEnsures(kind, name string, params []hir.Param, ensures []ast.EnsureClause, span source.Span) {
	if len(ensures) == 0 {
		return
	}

	allowed := map[string]bool{"output": true}
	for _, param := range params {
		allowed[param.Name] = true
	}

	for i := range ensures {
		c.checkPredicateRoot(&ensures[i].Left, allowed, kind, name, "ensures", span)
		c.checkPredicateRoot(&ensures[i].Right, allowed, kind, name, "ensures", span)
	}
}

func (c *Checker) checkPredicateRoot(value *ast.PredicateValue, allowed map[string]bool, kind, name, context string, span source.Span) {
	if value.Kind != ast.PredValuePath {
		return
	}
	root := value.Root()
	if root == "" {
		return
	}
	if !allowed[root] {
		c.warn(diag.SemaEnsuresBadRoot, span,
			context+" in "+kind+" '"+name+"' references unknown symbol '"+root+"'")
	}
}

// checkFailure validates the failure policy's action vocabulary:
// retry(strategy, key=value...), fallback("name"), abort("reason"),
// compensate().
func (c *Checker) checkFailure(fn *hir.Function) {
	if fn.Failure == nil {
		return
	}

	for _, rule := range fn.Failure.Rules {
		if isBlank(rule.Condition) {
			c.warn(diag.SemaFailureBadAction, fn.Span,
				"function '"+fn.Name+"' has failure rule with empty condition")
		}
		c.checkFailureAction(fn.Name, "function", &rule.Action, fn.Span)
	}
}

func (c *Checker) checkFailureAction(owner, kind string, action *ast.FailureAction, span source.Span) {
	switch action.Name {
	case "retry":
		if len(action.Args) == 0 {
			c.error(diag.SemaFailureBadAction, span,
				kind+" '"+owner+"' uses failure action 'retry' without strategy argument")
			return
		}
		if action.Args[0].Key != "" {
			c.error(diag.SemaFailureBadAction, span,
				kind+" '"+owner+"' uses failure action 'retry' with invalid first argument")
		}
		seenKeys := make(map[string]bool)
		for _, arg := range action.Args[1:] {
			if arg.Key == "" {
				c.error(diag.SemaFailureBadAction, span,
					kind+" '"+owner+"' uses failure action 'retry' with positional argument after strategy")
				continue
			}
			if seenKeys[arg.Key] {
				c.warn(diag.SemaFailureBadAction, span,
					kind+" '"+owner+"' repeats retry argument '"+arg.Key+"'")
			}
			seenKeys[arg.Key] = true
			if arg.Key == "max" && arg.Value.Kind != ast.FailureValueNumber {
				c.error(diag.SemaFailureBadAction, span,
					kind+" '"+owner+"' uses retry argument 'max' with non-number value")
			}
		}

	case "fallback", "abort":
		if len(action.Args) != 1 {
			c.error(diag.SemaFailureBadAction, span,
				kind+" '"+owner+"' uses failure action '"+action.Name+"' with invalid argument count")
			return
		}
		arg := action.Args[0]
		if arg.Key != "" || arg.Value.Kind != ast.FailureValueString {
			c.error(diag.SemaFailureBadAction, span,
				kind+" '"+owner+"' uses failure action '"+action.Name+"' with invalid argument type")
		}

	case "compensate":
		if len(action.Args) > 0 {
			c.warn(diag.SemaFailureBadAction, span,
				kind+" '"+owner+"' uses failure action 'compensate' with arguments; arguments are ignored")
		}

	default:
		c.error(diag.SemaFailureBadAction, span,
			kind+" '"+owner+"' uses unknown failure action '"+action.Name+"'")
	}
}

// checkEvidence validates an evidence block: trace is required and
// non-empty; empty or repeated metrics warn.
func (c *Checker) checkEvidence(kind, name string, evidence *ast.EvidenceSpec, span source.Span) {
	if evidence == nil {
		return
	}

	switch {
	case evidence.Trace == nil:
		c.error(diag.SemaEvidenceBadBlock, span,
			kind+" '"+name+"' evidence block requires trace")
	case isBlank(*evidence.Trace):
		c.error(diag.SemaEvidenceBadBlock, span,
			kind+" '"+name+"' declares empty evidence trace")
	}

	if len(evidence.Metrics) == 0 {
		c.warn(diag.SemaEvidenceBadBlock, span,
			kind+" '"+name+"' evidence block has empty metrics")
		return
	}

	seen := make(map[string]bool, len(evidence.Metrics))
	for _, metric := range evidence.Metrics {
		if seen[metric] {
			c.warn(diag.SemaEvidenceBadBlock, span,
				kind+" '"+name+"' evidence block repeats metric '"+metric+"'")
		}
		seen[metric] = true
	}
}
