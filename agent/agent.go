package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/inference"
	"github.com/petasbytes/deepagent/internal/metrics"
	"github.com/petasbytes/deepagent/internal/safety"
	"github.com/petasbytes/deepagent/internal/telemetry"
	"github.com/petasbytes/deepagent/internal/windowing"
	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/tools"
)

// Status is the terminal state of an invocation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusExhausted Status = "exhausted"
)

// Result is what Invoke returns. Output is the complete_task payload or the
// last text the agent produced; it is empty when a top-level agent exhausts
// its iteration cap.
type Result struct {
	Status     Status
	Output     string
	Iterations int
}

// Agent drives the model/tool loop over one session. An Agent is not safe for
// concurrent Invoke calls; run separate agents on separate sessions instead.
type Agent struct {
	client     inference.Client
	registry   *tools.Registry
	opts       Options
	toolNames  []string
	subagents  map[string]SubAgent
	session    *memory.Session
	isSubagent bool

	logger  zerolog.Logger
	emitter telemetry.Emitter
	metrics *metrics.Collectors
}

// New builds a top-level agent. The registry supplies the tools named in
// Options.Tools; the agent never sees registry entries it was not given.
func New(client inference.Client, registry *tools.Registry, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Name:          DefaultName,
		MaxIterations: DefaultMaxIterations,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return newAgent(client, registry, opts, false)
}

func newAgent(client inference.Client, registry *tools.Registry, opts Options, isSubagent bool) (*Agent, error) {
	if client == nil {
		return nil, errors.New("agent: nil inference client")
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Name == memory.SpeakerUser || opts.Name == memory.SpeakerToolCaller {
		return nil, fmt.Errorf("agent: name %q is reserved", opts.Name)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Session == nil {
		opts.Session = memory.NewSession(memory.NewInMemoryStore())
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Nop{}
	}

	a := &Agent{
		client:     client,
		registry:   registry,
		opts:       opts,
		subagents:  make(map[string]SubAgent, len(opts.SubAgents)),
		session:    opts.Session,
		isSubagent: isSubagent,
		logger:     opts.Logger.With().Str("agent", opts.Name).Logger(),
		emitter:    opts.Telemetry,
		metrics:    opts.Metrics,
	}

	seen := make(map[string]bool, len(opts.Tools))
	for _, name := range opts.Tools {
		if seen[name] {
			continue
		}
		seen[name] = true
		if name == CompleteTaskName || name == InvokeSubagentName {
			a.logger.Warn().Str("tool", name).Msg("sentinel tools are managed by the loop; ignoring")
			continue
		}
		if _, err := registry.Describe(name); err != nil {
			a.logger.Warn().Str("tool", name).Msg("tool not registered; skipping")
			continue
		}
		a.toolNames = append(a.toolNames, name)
	}

	if isSubagent && len(opts.SubAgents) > 0 {
		return nil, fmt.Errorf("agent %s: subagents cannot delegate", opts.Name)
	}
	for _, s := range opts.SubAgents {
		if s.Name == "" {
			return nil, fmt.Errorf("agent %s: subagent with empty name", opts.Name)
		}
		if s.Name == memory.SpeakerUser || s.Name == memory.SpeakerToolCaller {
			return nil, fmt.Errorf("agent %s: subagent name %q is reserved", opts.Name, s.Name)
		}
		if _, dup := a.subagents[s.Name]; dup {
			return nil, fmt.Errorf("agent %s: duplicate subagent %q", opts.Name, s.Name)
		}
		a.subagents[s.Name] = s
	}
	if opts.GeneralPurpose && !isSubagent {
		if _, ok := a.subagents[GeneralPurposeName]; !ok {
			gp := generalPurposeSubagent(opts.Instructions, opts.Verbose)
			a.subagents[GeneralPurposeName] = gp
			a.opts.SubAgents = append([]SubAgent{gp}, opts.SubAgents...)
		}
	}
	return a, nil
}

// Name returns the speaker identity the agent appends under.
func (a *Agent) Name() string { return a.opts.Name }

// Session returns the conversation the agent writes to.
func (a *Agent) Session() *memory.Session { return a.session }

// Tools returns the registry tools available to the agent, in configured order.
func (a *Agent) Tools() []string { return append([]string(nil), a.toolNames...) }

// Invoke seeds the session with task under the user identity and runs the
// loop to a terminal state. Only transport failures, store failures, an
// over-budget window and context cancellation are returned as errors.
func (a *Agent) Invoke(ctx context.Context, task string) (Result, error) {
	return a.run(ctx, memory.SpeakerUser, task)
}

func (a *Agent) run(ctx context.Context, seedSpeaker, seed string) (Result, error) {
	ctx = telemetry.WithSessionID(ctx, a.session.ID())
	start := time.Now()

	a.progress().
		Str("session", a.session.ID()).
		Bool("subagent", a.isSubagent).
		Int("max_iterations", a.opts.MaxIterations).
		Msg("invoke started")

	if err := a.appendTurn(ctx, seedSpeaker, seed, map[string]any{"seed": true}); err != nil {
		return Result{}, err
	}

	res, err := a.loop(ctx)

	status := string(res.Status)
	if err != nil {
		status = "error"
		a.logger.Error().Err(err).Int("iteration", res.Iterations).Msg("invoke failed")
	} else {
		a.progress().
			Str("status", status).
			Int("iterations", res.Iterations).
			Dur("elapsed", time.Since(start)).
			Msg("invoke finished")
	}
	a.metrics.ObserveInvoke(a.opts.Name, status, res.Iterations)
	return res, err
}

func (a *Agent) loop(ctx context.Context) (Result, error) {
	var lastText string
	for iter := 1; iter <= a.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{Iterations: iter - 1, Output: lastText}, fmt.Errorf("agent %s: %w", a.opts.Name, err)
		}
		turnCtx := telemetry.WithTurnID(ctx, fmt.Sprintf("turn-%d", time.Now().UnixNano()))

		resp, err := a.step(turnCtx, iter)
		if err != nil {
			return Result{Iterations: iter, Output: lastText}, fmt.Errorf("agent %s: %w", a.opts.Name, err)
		}

		sawToolUse := false
		for _, item := range resp.Content {
			switch item.Type {
			case inference.ContentText:
				if item.Text == "" {
					continue
				}
				if err := a.appendTurn(turnCtx, a.opts.Name, item.Text, nil); err != nil {
					return Result{Iterations: iter, Output: lastText}, err
				}
				lastText = item.Text

			case inference.ContentToolUse:
				sawToolUse = true
				done, output, err := a.handleToolUse(turnCtx, item, iter)
				if err != nil {
					return Result{Iterations: iter, Output: lastText}, err
				}
				if done {
					return Result{Status: StatusCompleted, Output: output, Iterations: iter}, nil
				}
			}
		}

		if !sawToolUse {
			return Result{Status: StatusCompleted, Output: lastText, Iterations: iter}, nil
		}
	}

	if a.isSubagent {
		return Result{Status: StatusExhausted, Output: lastText, Iterations: a.opts.MaxIterations}, nil
	}
	a.logger.Warn().Int("max_iterations", a.opts.MaxIterations).Msg("iteration cap reached without completion")
	return Result{Status: StatusExhausted, Iterations: a.opts.MaxIterations}, nil
}

// step renders the transcript, applies the token window and makes one
// inference call.
func (a *Agent) step(ctx context.Context, iter int) (*inference.Response, error) {
	msgs, err := a.session.AsTurns(ctx, a.opts.Name)
	if err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}

	if a.opts.TokenBudget > 0 {
		window, stats, werr := windowing.Apply(msgs, a.opts.TokenBudget, windowing.HeuristicCounter{})
		a.emitter.Emit("window_prepared", telemetry.Correlate(ctx, map[string]any{
			"agent":              a.opts.Name,
			"model":              a.opts.Model,
			"budget":             stats.Budget,
			"total_estimated":    stats.Total,
			"included_groups":    stats.IncludedGroups,
			"skipped_groups":     stats.SkippedGroups,
			"over_budget_newest": stats.OverBudgetNewest,
		}))
		a.logger.Debug().
			Int("iteration", iter).
			Int("budget", stats.Budget).
			Int("est_total", stats.Total).
			Int("groups_in", stats.IncludedGroups).
			Int("groups_skip", stats.SkippedGroups).
			Msg("window prepared")
		if werr != nil {
			return nil, werr
		}
		msgs = window
	}

	descs := a.descriptors()
	req := inference.Request{
		Model:     a.opts.Model,
		System:    buildSystemPrompt(a.opts.Instructions, descs, a.subagentList(), a.isSubagent),
		Messages:  msgs,
		Tools:     descs,
		MaxTokens: a.opts.MaxTokens,
	}

	a.progress().Int("iteration", iter).Int("messages", len(msgs)).Int("tools", len(descs)).Msg("calling model")

	start := time.Now()
	resp, err := a.client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	var te *inference.TransportError
	if err != nil && !errors.As(err, &te) {
		te = &inference.TransportError{Provider: "unknown", Err: err}
		err = te
	}
	a.metrics.ObserveInference(a.opts.Name, elapsed, err)

	fields := map[string]any{
		"agent":       a.opts.Name,
		"model":       a.opts.Model,
		"iteration":   iter,
		"messages":    len(msgs),
		"tools":       len(descs),
		"duration_ms": elapsed.Milliseconds(),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = "transport"
		fields["provider"] = te.Provider
	} else {
		fields["items"] = len(resp.Content)
		fields["tool_use"] = resp.HasToolUse()
		fields["stop_reason"] = resp.StopReason
		fields["input_tokens"] = resp.Usage.InputTokens
		fields["output_tokens"] = resp.Usage.OutputTokens
	}
	a.emitter.Emit("inference_call", telemetry.Correlate(ctx, fields))

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// descriptors lists own tools, then invoke_subagent when subagents exist,
// then complete_task unless this agent is a subagent.
func (a *Agent) descriptors() []tools.Descriptor {
	out := make([]tools.Descriptor, 0, len(a.toolNames)+2)
	for _, name := range a.toolNames {
		d, err := a.registry.Describe(name)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	if len(a.subagents) > 0 {
		out = append(out, invokeSubagentDescriptor)
	}
	if !a.isSubagent {
		out = append(out, completeTaskDescriptor)
	}
	return out
}

func (a *Agent) subagentList() []SubAgent {
	out := make([]SubAgent, 0, len(a.subagents))
	for _, s := range a.opts.SubAgents {
		if _, ok := a.subagents[s.Name]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (a *Agent) hasTool(name string) bool {
	for _, n := range a.toolNames {
		if n == name {
			return true
		}
	}
	return false
}

// handleToolUse applies one tool request. done reports explicit completion.
// The returned error is always fatal.
func (a *Agent) handleToolUse(ctx context.Context, item inference.ContentItem, iter int) (done bool, output string, err error) {
	switch item.Name {
	case CompleteTaskName:
		if a.isSubagent {
			return false, "", a.protocolViolation(ctx, item, "complete_task is not available to subagents")
		}
		var in struct {
			Result string `json:"result"`
		}
		if derr := decodeInput(item.Input, &in); derr != nil {
			return false, "", a.recordToolError(ctx, item, derr)
		}
		if err := a.appendTurn(ctx, a.opts.Name, in.Result, map[string]any{"tool": CompleteTaskName}); err != nil {
			return false, "", err
		}
		a.progress().Int("iteration", iter).Msg("task completed")
		return true, in.Result, nil

	case InvokeSubagentName:
		if len(a.subagents) == 0 {
			return false, "", a.protocolViolation(ctx, item, "no subagents are configured")
		}
		var in struct {
			SubagentName string `json:"subagent_name"`
			Prompt       string `json:"prompt"`
		}
		if derr := decodeInput(item.Input, &in); derr != nil {
			return false, "", a.recordToolError(ctx, item, derr)
		}
		return false, "", a.delegate(ctx, in.SubagentName, in.Prompt)

	default:
		return false, "", a.dispatch(ctx, item)
	}
}

// dispatch runs a registry tool and records its outcome.
func (a *Agent) dispatch(ctx context.Context, item inference.ContentItem) error {
	tc := &tools.Context{Context: ctx, AgentName: a.opts.Name, Session: a.session}

	start := time.Now()
	var (
		desc   tools.Descriptor
		result any
		err    error
	)
	if !a.hasTool(item.Name) {
		err = &tools.NotFoundError{Name: item.Name}
	} else if desc, err = a.registry.Describe(item.Name); err == nil {
		result, err = a.registry.Dispatch(tc, item.Name, item.Input)
	}

	var content string
	if err == nil {
		content, err = formatResult(result)
	}
	elapsed := time.Since(start)
	a.metrics.ObserveTool(item.Name, elapsed, err)

	fields := map[string]any{
		"agent":       a.opts.Name,
		"tool_name":   item.Name,
		"duration_ms": elapsed.Milliseconds(),
		"input_size":  len(item.Input),
		"output_size": len(content),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = errorKind(err)
	}
	a.emitter.Emit("tool_exec", telemetry.Correlate(ctx, fields))

	if err != nil {
		return a.recordToolError(ctx, item, err)
	}

	a.progress().Str("tool", item.Name).Dur("elapsed", elapsed).Msg("tool executed")

	if desc.Kind == tools.KindUserExchange {
		return a.recordUserExchange(ctx, item, result, content)
	}
	return a.appendTurn(ctx, memory.SpeakerToolCaller,
		fmt.Sprintf("Tool %s returned: %s", item.Name, content),
		map[string]any{"tool": item.Name, "tool_use_id": item.ID})
}

// recordUserExchange records the outgoing message under the agent and the
// reply under the user.
func (a *Agent) recordUserExchange(ctx context.Context, item inference.ContentItem, result any, formatted string) error {
	var in struct {
		Message string `json:"message"`
	}
	if err := decodeInput(item.Input, &in); err != nil {
		a.logger.Debug().Err(err).Str("tool", item.Name).Msg("user exchange message not decodable; recording raw input")
	}
	if in.Message == "" {
		in.Message = string(item.Input)
	}
	reply, ok := result.(string)
	if !ok {
		reply = formatted
	}
	meta := map[string]any{"tool": item.Name, "tool_use_id": item.ID}
	if err := a.appendTurn(ctx, a.opts.Name, in.Message, meta); err != nil {
		return err
	}
	return a.appendTurn(ctx, memory.SpeakerUser, reply, meta)
}

func (a *Agent) recordToolError(ctx context.Context, item inference.ContentItem, cause error) error {
	terr := &ToolExecutionError{Tool: item.Name, Err: cause}
	a.logger.Warn().Err(cause).Str("tool", item.Name).Msg("tool call failed")
	return a.appendTurn(ctx, memory.SpeakerToolCaller, terr.Error(),
		map[string]any{"tool": item.Name, "tool_use_id": item.ID, "error": true})
}

func (a *Agent) protocolViolation(ctx context.Context, item inference.ContentItem, reason string) error {
	pv := &ProtocolViolationError{Agent: a.opts.Name, Tool: item.Name, Reason: reason}
	return a.recordToolError(ctx, item, pv)
}

// appendTurn commits a turn; failures are fatal to the invocation.
func (a *Agent) appendTurn(ctx context.Context, speaker, content string, metadata map[string]any) error {
	if _, err := a.session.Append(ctx, speaker, content, metadata); err != nil {
		return fmt.Errorf("agent %s: %w", a.opts.Name, err)
	}
	telemetry.EmitTurnFeatures(ctx, a.emitter, speaker, content)
	return nil
}

func (a *Agent) progress() *zerolog.Event {
	if a.opts.Verbose {
		return a.logger.Info()
	}
	return a.logger.Debug()
}

// errorKind classifies a tool failure for telemetry without echoing its
// message, which may contain tool input.
func errorKind(err error) string {
	var (
		verr *tools.ValidationError
		perr *tools.PanicError
		serr safety.ToolError
	)
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		return "tool_not_found"
	case errors.As(err, &verr):
		return "invalid_arguments"
	case errors.As(err, &perr):
		return "panic"
	case errors.As(err, &serr):
		return serr.Code
	default:
		return "execution_error"
	}
}

func decodeInput(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// formatResult renders a tool result as indented JSON. Strings are quoted.
func formatResult(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
