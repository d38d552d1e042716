package agent

import (
	"context"
	"sort"
	"time"

	"github.com/petasbytes/deepagent/internal/telemetry"
)

// SubAgent describes a child agent a parent may delegate to. Zero Model,
// Tools and MaxIterations inherit the parent's model, the parent's own tools
// and DefaultMaxIterations.
type SubAgent struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Instructions  string   `yaml:"instructions" json:"instructions"`
	Tools         []string `yaml:"tools" json:"tools,omitempty"`
	Model         string   `yaml:"model" json:"model,omitempty"`
	MaxIterations int      `yaml:"max_iterations" json:"max_iterations,omitempty"`
	Verbose       bool     `yaml:"verbose" json:"verbose,omitempty"`
}

// GeneralPurposeName names the built-in subagent enabled by
// WithGeneralPurposeSubagent.
const GeneralPurposeName = "general-purpose"

const generalPurposeDescription = "General-purpose agent for researching complex questions and executing multi-step tasks. " +
	"It has the same instructions and tools as you; use it to work on a self-contained part of the task."

func generalPurposeSubagent(instructions string, verbose bool) SubAgent {
	return SubAgent{
		Name:         GeneralPurposeName,
		Description:  generalPurposeDescription,
		Instructions: instructions,
		Verbose:      verbose,
	}
}

// spawn builds the child for spec, bound to the parent's session.
func (a *Agent) spawn(spec SubAgent) (*Agent, error) {
	toolNames := spec.Tools
	if len(toolNames) == 0 {
		toolNames = a.toolNames
	}
	model := spec.Model
	if model == "" {
		model = a.opts.Model
	}
	maxIter := spec.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	return newAgent(a.client, a.registry, Options{
		Name:          spec.Name,
		Instructions:  subagentInstructions(spec, a.opts.Name),
		Model:         model,
		Tools:         append([]string(nil), toolNames...),
		MaxIterations: maxIter,
		TokenBudget:   a.opts.TokenBudget,
		MaxTokens:     a.opts.MaxTokens,
		Session:       a.session,
		Logger:        a.logger.With().Str("parent", a.opts.Name).Logger(),
		Metrics:       a.metrics,
		Telemetry:     a.emitter,
		Verbose:       spec.Verbose,
	}, true)
}

// delegate runs the named subagent synchronously on the shared session. The
// seed prompt is attributed to this agent. The child's answer is not recorded
// here; the child appends its own text while it runs. An unknown name is
// logged and leaves the transcript untouched.
func (a *Agent) delegate(ctx context.Context, name, prompt string) error {
	spec, ok := a.subagents[name]
	if !ok {
		err := &UnknownSubagentError{Name: name, Available: a.subagentNames()}
		a.logger.Warn().Err(err).Str("subagent", name).Msg("delegation skipped")
		a.metrics.ObserveDelegation(name, "unknown")
		a.emitter.Emit("delegation", telemetry.Correlate(ctx, map[string]any{
			"agent":    a.opts.Name,
			"subagent": name,
			"outcome":  "unknown",
		}))
		return nil
	}

	child, err := a.spawn(spec)
	if err != nil {
		return err
	}

	a.progress().Str("subagent", name).Msg("delegating")
	start := time.Now()
	res, err := child.run(ctx, a.opts.Name, prompt)

	outcome := string(res.Status)
	if err != nil {
		outcome = "error"
	}
	a.metrics.ObserveDelegation(name, outcome)
	a.emitter.Emit("delegation", telemetry.Correlate(ctx, map[string]any{
		"agent":       a.opts.Name,
		"subagent":    name,
		"outcome":     outcome,
		"iterations":  res.Iterations,
		"duration_ms": time.Since(start).Milliseconds(),
		"output_size": len(res.Output),
	}))
	if err != nil {
		return err
	}
	a.progress().
		Str("subagent", name).
		Str("status", string(res.Status)).
		Int("iterations", res.Iterations).
		Msg("delegation finished")
	return nil
}

func (a *Agent) subagentNames() []string {
	names := make([]string, 0, len(a.subagents))
	for n := range a.subagents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
