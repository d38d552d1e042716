package agent

import (
	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/internal/metrics"
	"github.com/petasbytes/deepagent/internal/telemetry"
	"github.com/petasbytes/deepagent/memory"
)

const (
	DefaultName          = "agent"
	DefaultMaxIterations = 50
)

// Options configures an Agent. Zero values are replaced by defaults in New.
type Options struct {
	Name         string
	Instructions string
	Model        string
	// Tools names registry entries this agent may call. Unknown names are
	// skipped with a warning.
	Tools     []string
	SubAgents []SubAgent
	// GeneralPurpose adds the GeneralPurposeName subagent, which runs with
	// this agent's instructions and tools. A SubAgents entry with the same
	// name takes precedence.
	GeneralPurpose bool

	MaxIterations int
	// TokenBudget bounds the rendered transcript sent per call; 0 disables windowing.
	TokenBudget int
	MaxTokens   int64

	// Session is the conversation log. A fresh in-memory session is used when nil.
	Session *memory.Session

	Logger    zerolog.Logger
	Metrics   *metrics.Collectors
	Telemetry telemetry.Emitter
	// Verbose promotes progress logs from debug to info.
	Verbose bool
}

func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

func WithInstructions(s string) func(o *Options) {
	return func(o *Options) { o.Instructions = s }
}

func WithModel(model string) func(o *Options) {
	return func(o *Options) { o.Model = model }
}

func WithTools(names ...string) func(o *Options) {
	return func(o *Options) { o.Tools = append(o.Tools, names...) }
}

func WithSubAgents(subs ...SubAgent) func(o *Options) {
	return func(o *Options) { o.SubAgents = append(o.SubAgents, subs...) }
}

func WithGeneralPurposeSubagent(enabled bool) func(o *Options) {
	return func(o *Options) { o.GeneralPurpose = enabled }
}

func WithMaxIterations(n int) func(o *Options) {
	return func(o *Options) { o.MaxIterations = n }
}

func WithTokenBudget(n int) func(o *Options) {
	return func(o *Options) { o.TokenBudget = n }
}

func WithMaxTokens(n int64) func(o *Options) {
	return func(o *Options) { o.MaxTokens = n }
}

func WithSession(s *memory.Session) func(o *Options) {
	return func(o *Options) { o.Session = s }
}

func WithLogger(l zerolog.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(c *metrics.Collectors) func(o *Options) {
	return func(o *Options) { o.Metrics = c }
}

func WithTelemetry(e telemetry.Emitter) func(o *Options) {
	return func(o *Options) { o.Telemetry = e }
}

func WithVerbose(v bool) func(o *Options) {
	return func(o *Options) { o.Verbose = v }
}
