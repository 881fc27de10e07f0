package sema

import (
	"sort"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
)

func (c *Checker) checkAgents() {
	declared := make(map[string]bool)
	for i := range c.program.Agents {
		a := &c.program.Agents[i]
		if declared[a.Name] {
			c.error(diag.SemaDuplicateDecl, a.Span,
				"duplicate agent declaration '"+a.Name+"'")
		}
		declared[a.Name] = true
		c.checkAgent(a)
	}
}

func (c *Checker) checkAgent(a *hir.Agent) {
	c.checkIntent("agent", a.Name, a.Intent, a.Span)

	if len(a.StateRules) == 0 {
		c.error(diag.FlowStateNoRules, a.Span,
			"agent '"+a.Name+"' declares no state transitions")
	}

	seenEdges := make(map[string]bool)
	for _, rule := range a.StateRules {
		if len(rule.To) == 0 {
			c.error(diag.FlowStateNoRules, a.Span,
				"agent '"+a.Name+"' has state rule '"+rule.From+"' with no target state")
		}
		for _, target := range rule.To {
			edge := rule.From + "->" + target
			if seenEdges[edge] {
				c.warn(diag.FlowStateRepeatedEdge, a.Span,
					"agent '"+a.Name+"' repeats state transition '"+edge+"'")
			}
			seenEdges[edge] = true
		}
	}

	analysis := c.analyzeStateReachability(a)
	knownStates := collectStateSymbols(a)

	c.checkToolPolicy(a)

	if a.Policy.MaxIterations == "0" {
		c.error(diag.FlowPolicyZeroIterations, a.Span,
			"agent '"+a.Name+"' sets max_iterations to 0")
	}

	if len(a.Loop.Stages) == 0 {
		c.error(diag.FlowLoopNoStages, a.Span, "agent '"+a.Name+"' loop has no stages")
	}
	seenStages := make(map[string]bool, len(a.Loop.Stages))
	for _, stage := range a.Loop.Stages {
		if seenStages[stage] {
			c.warn(diag.FlowLoopRepeatedStage, a.Span,
				"agent '"+a.Name+"' loop repeats stage '"+stage+"'")
		}
		seenStages[stage] = true
	}

	c.checkAgentTermination(a, analysis, knownStates)

	c.checkRequiresList(a.Requires, "agent", a.Name, a.Span)

	allowed := agentPredicateRoots(a, knownStates)
	c.checkAgentPredicate(a, &a.Loop.StopWhen, allowed, "agent loop stop condition")
	if a.Policy.HumanInLoopWhen != nil {
		c.checkAgentPredicate(a, a.Policy.HumanInLoopWhen, allowed, "agent policy human_in_loop condition")
	}
	for i := range a.Ensures {
		c.checkAgentPredicate(a, &a.Ensures[i], allowed, "agent ensures")
	}

	c.checkEvidence("agent", a.Name, a.Evidence, a.Span)
}

// checkToolPolicy reports allow/deny conflicts as errors plus a
// deny-takes-precedence warning.
func (c *Checker) checkToolPolicy(a *hir.Agent) {
	allow := make(map[string]bool, len(a.Policy.AllowTools))
	for _, tool := range a.Policy.AllowTools {
		allow[tool] = true
	}

	var overlap []string
	seen := make(map[string]bool)
	for _, tool := range a.Policy.DenyTools {
		if allow[tool] && !seen[tool] {
			overlap = append(overlap, tool)
			seen[tool] = true
		}
	}
	sort.Strings(overlap)

	for _, tool := range overlap {
		c.error(diag.FlowPolicyToolConflict, a.Span,
			"agent '"+a.Name+"' policy conflicts on tool '"+tool+"': both allow and deny")
	}
	if len(overlap) > 0 {
		c.warn(diag.FlowPolicyDenyPrecedence, a.Span,
			"agent '"+a.Name+"' policy deny takes precedence over allow for tools: "+
				strings.Join(overlap, ", "))
	}
}

// stateAnalysis is the reachable portion of an agent's state graph.
type stateAnalysis struct {
	reachable          map[string]bool
	reachableTerminals map[string]bool
	adjacency          map[string][]string // reachable states only, sorted targets
}

// analyzeStateReachability builds the state graph (expanding the `any`
// wildcard onto every declared state), computes reachability from the
// initial state, and warns about unreachable states. The initial state is
// INIT when declared, otherwise the first non-wildcard `from`.
func (c *Checker) analyzeStateReachability(a *hir.Agent) *stateAnalysis {
	if len(a.StateRules) == 0 {
		return nil
	}

	states := make(map[string]bool)
	direct := make(map[string][]string)
	var anyTargets []string

	for _, rule := range a.StateRules {
		if rule.From != "any" {
			states[rule.From] = true
			direct[rule.From] = append(direct[rule.From], rule.To...)
		}
		for _, target := range rule.To {
			states[target] = true
			if rule.From == "any" {
				anyTargets = append(anyTargets, target)
			}
		}
	}

	adjacency := make(map[string][]string, len(states))
	for state := range states {
		targetSet := make(map[string]bool)
		for _, target := range direct[state] {
			targetSet[target] = true
		}
		for _, target := range anyTargets {
			targetSet[target] = true
		}
		targets := make([]string, 0, len(targetSet))
		for target := range targetSet {
			targets = append(targets, target)
		}
		sort.Strings(targets)
		adjacency[state] = targets
	}

	var initial string
	if states["INIT"] {
		initial = "INIT"
	} else {
		for _, rule := range a.StateRules {
			if rule.From != "any" {
				initial = rule.From
				break
			}
		}
	}
	if initial == "" {
		c.warn(diag.FlowStateUnreachable, a.Span,
			"agent '"+a.Name+"' has no concrete initial state for reachability analysis")
		return nil
	}

	reachable := map[string]bool{initial: true}
	queue := []string{initial}
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		for _, target := range adjacency[state] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	var unreachable []string
	for state := range states {
		if !reachable[state] {
			unreachable = append(unreachable, state)
		}
	}
	sort.Strings(unreachable)
	if len(unreachable) > 0 {
		c.warn(diag.FlowStateUnreachable, a.Span,
			"agent '"+a.Name+"' has unreachable states: "+strings.Join(unreachable, ", "))
	}

	analysis := &stateAnalysis{
		reachable:          reachable,
		reachableTerminals: make(map[string]bool),
		adjacency:          make(map[string][]string),
	}
	for state := range reachable {
		var targets []string
		for _, target := range adjacency[state] {
			if reachable[target] {
				targets = append(targets, target)
			}
		}
		analysis.adjacency[state] = targets
		if len(adjacency[state]) == 0 {
			analysis.reachableTerminals[state] = true
		}
	}
	return analysis
}

func collectStateSymbols(a *hir.Agent) map[string]bool {
	symbols := make(map[string]bool)
	for _, rule := range a.StateRules {
		if rule.From != "any" {
			symbols[rule.From] = true
		}
		for _, target := range rule.To {
			symbols[target] = true
		}
	}
	return symbols
}

// stopStateTarget extracts the target state name from a direct
// `state == X` (or symmetric) stop predicate.
func stopStateTarget(predicate *ast.EnsureClause) (string, bool) {
	if predicate.Op != ast.PredEq {
		return "", false
	}

	isState := func(v ast.PredicateValue) bool {
		return v.Kind == ast.PredValuePath && len(v.Segments) == 1 && v.Segments[0] == "state"
	}
	symbol := func(v ast.PredicateValue) (string, bool) {
		switch v.Kind {
		case ast.PredValueString:
			return v.Value, true
		case ast.PredValuePath:
			if len(v.Segments) == 1 {
				return v.Segments[0], true
			}
		}
		return "", false
	}

	if isState(predicate.Left) {
		return symbol(predicate.Right)
	}
	if isState(predicate.Right) {
		return symbol(predicate.Left)
	}
	return "", false
}

// tarjanSCC computes strongly connected components of the reachable state
// graph with deterministic (sorted) iteration order.
func tarjanSCC(adjacency map[string][]string) [][]string {
	nodes := make([]string, 0, len(adjacency))
	for node := range adjacency {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	index := 0
	indices := make(map[string]int, len(nodes))
	lowlinks := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	var components [][]string

	var connect func(node string)
	connect = func(node string) {
		indices[node] = index
		lowlinks[node] = index
		index++
		stack = append(stack, node)
		onStack[node] = true

		for _, neighbor := range adjacency[node] {
			if _, visited := indices[neighbor]; !visited {
				connect(neighbor)
				if lowlinks[neighbor] < lowlinks[node] {
					lowlinks[node] = lowlinks[neighbor]
				}
			} else if onStack[neighbor] {
				if indices[neighbor] < lowlinks[node] {
					lowlinks[node] = indices[neighbor]
				}
			}
		}

		if lowlinks[node] == indices[node] {
			var component []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				component = append(component, top)
				if top == node {
					break
				}
			}
			sort.Strings(component)
			components = append(components, component)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			connect(node)
		}
	}
	return components
}

// closedCycles returns the non-trivial SCCs (or self-loops) with no edge
// leaving the component, sorted for deterministic reporting.
func closedCycles(analysis *stateAnalysis) [][]string {
	var closed [][]string
	for _, component := range tarjanSCC(analysis.adjacency) {
		hasCycle := len(component) > 1
		if !hasCycle {
			for _, target := range analysis.adjacency[component[0]] {
				if target == component[0] {
					hasCycle = true
					break
				}
			}
		}
		if !hasCycle {
			continue
		}

		inComponent := make(map[string]bool, len(component))
		for _, state := range component {
			inComponent[state] = true
		}
		hasExit := false
		for _, state := range component {
			for _, target := range analysis.adjacency[state] {
				if !inComponent[target] {
					hasExit = true
					break
				}
			}
		}
		if !hasExit {
			closed = append(closed, component)
		}
	}

	sort.Slice(closed, func(i, j int) bool {
		return strings.Join(closed[i], ",") < strings.Join(closed[j], ",")
	})
	return closed
}

// checkAgentTermination enforces the liveness obligations: every accepted
// agent has max_iterations, a reachable terminal state, a reachable stop
// state, or at least one warning.
func (c *Checker) checkAgentTermination(a *hir.Agent, analysis *stateAnalysis, knownStates map[string]bool) {
	stopState, hasStopState := stopStateTarget(&a.Loop.StopWhen)

	reachableStop := false
	if hasStopState && analysis != nil {
		switch {
		case !knownStates[stopState]:
			c.warn(diag.FlowStopUnknownState, a.Span,
				"agent '"+a.Name+"' stop condition targets unknown state '"+stopState+"'")
		case !analysis.reachable[stopState]:
			c.warn(diag.FlowStopUnreachableState, a.Span,
				"agent '"+a.Name+"' stop condition targets unreachable state '"+stopState+"'")
		default:
			reachableStop = true
		}
	}

	if a.Policy.MaxIterations != "" {
		return
	}

	hasReachableTerminal := analysis != nil && len(analysis.reachableTerminals) > 0

	var uncovered [][]string
	if analysis != nil {
		uncovered = closedCycles(analysis)
	}
	if reachableStop {
		filtered := uncovered[:0]
		for _, cycle := range uncovered {
			covered := false
			for _, state := range cycle {
				if state == stopState {
					covered = true
					break
				}
			}
			if !covered {
				filtered = append(filtered, cycle)
			}
		}
		uncovered = filtered
	}

	if len(uncovered) > 0 {
		c.warn(diag.FlowClosedCycle, a.Span,
			"agent '"+a.Name+"' has reachable closed state cycle without exit: "+
				strings.Join(uncovered[0], ", "))
	}

	if !reachableStop && !hasReachableTerminal {
		qualifier := "stop condition is not a direct state equality"
		if hasStopState {
			qualifier = "stop condition does not reach a reachable terminal state"
		}
		c.warn(diag.FlowMayNotTerminate, a.Span,
			"agent '"+a.Name+"' may not terminate: "+qualifier+" and no max_iterations guard")
	}
}

func agentPredicateRoots(a *hir.Agent, knownStates map[string]bool) map[string]bool {
	allowed := map[string]bool{"state": true, "output": true}
	for state := range knownStates {
		allowed[state] = true
	}
	for _, param := range a.Params {
		allowed[param.Name] = true
	}
	return allowed
}

func (c *Checker) checkAgentPredicate(a *hir.Agent, clause *ast.EnsureClause, allowed map[string]bool, context string) {
	check := func(value *ast.PredicateValue) {
		if value.Kind != ast.PredValuePath {
			return
		}
		root := value.Root()
		if root != "" && !allowed[root] {
			c.warn(diag.FlowPredicateUnknownRoot, a.Span,
				context+" in agent '"+a.Name+"' references unknown symbol '"+root+"'")
		}
	}
	check(&clause.Left)
	check(&clause.Right)
}
