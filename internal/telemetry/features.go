package telemetry

import (
	"context"

	"github.com/petasbytes/deepagent/internal/metrics"
)

// EmitTurnFeatures records size features of an appended turn, never its text.
func EmitTurnFeatures(ctx context.Context, e Emitter, speaker, text string) {
	if e == nil {
		return
	}
	if _, nop := e.(Nop); nop {
		return
	}
	f := metrics.CountFeatures(text)
	e.Emit("turn_features", Correlate(ctx, map[string]any{
		"speaker":          speaker,
		"features_version": "1",
		"content":          f.Fields(),
	}))
}
