package mcp

import (
	"context"
	"time"

	"healthomics/internal/config"
)

// withToolTimeout applies the configured deadline for spec, if any. Without
// one the call is bounded by the caller's context and the SDK's HTTP client.
func withToolTimeout(ctx context.Context, cfg *config.Config, spec ToolSpec) (context.Context, context.CancelFunc) {
	timeout := toolTimeout(cfg, spec.Name)
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func toolTimeout(cfg *config.Config, toolName string) time.Duration {
	if cfg == nil {
		return 0
	}
	seconds := cfg.Timeouts.DefaultSeconds
	if override, ok := cfg.Timeouts.PerTool[toolName]; ok && override > 0 {
		seconds = override
	}
	if seconds <= 0 {
		return 0
	}
	if limit := cfg.Timeouts.MaxSeconds; limit > 0 && seconds > limit {
		seconds = limit
	}
	return time.Duration(seconds) * time.Second
}
