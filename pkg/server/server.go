package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"healthomics/internal/audit"
	"healthomics/internal/cache"
	"healthomics/internal/config"
	"healthomics/internal/logging"
	homcp "healthomics/internal/mcp"
	"healthomics/internal/redact"
	"healthomics/internal/render"
)

const (
	configEnv   = "HEALTHOMICS_MCP_CONFIG"
	logLevelEnv = "FASTMCP_LOG_LEVEL"
)

type Options struct {
	ConfigPath string
	Region     string
	Profile    string
	Toolsets   []string
	ReadOnly   bool
	LogLevel   string
	LogFormat  string
	Version    string
	Stderr     io.Writer
	// Transport defaults to stdio.
	Transport sdkmcp.Transport
}

func Run(ctx context.Context, opts Options) error {
	errOut := opts.Stderr
	if errOut == nil {
		errOut = os.Stderr
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv(configEnv))
	}
	overrides := buildOverrides(opts)

	cfg, err := config.Load(configPath, config.DropInDir(configPath), overrides)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	rt, err := buildRuntime(cfg, errOut)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "healthomics-mcp", Version: opts.Version}, nil)
	toolNames, err := homcp.RegisterSDKTools(server, rt.reg, rt.toolCtx)
	if err != nil {
		return fmt.Errorf("tool registration failed: %w", err)
	}
	rt.logger.Info("server ready", "tools", len(toolNames), "toolsets", strings.Join(cfg.Toolsets, ","), "readOnly", cfg.ReadOnly)
	if hidden := rt.reg.Hidden(); len(hidden) > 0 {
		rt.logger.Debug("read-only mode hid tools", "tools", strings.Join(hidden, ","))
	}

	reloadCh := make(chan os.Signal, 1)
	stopReload := notifyReload(reloadCh)
	defer func() {
		stopReload()
		close(reloadCh)
	}()
	go func() {
		for range reloadCh {
			cfg, err := config.Load(configPath, config.DropInDir(configPath), overrides)
			if err != nil {
				rt.logger.Error("config reload failed", "err", err)
				continue
			}
			next, err := buildRuntime(cfg, errOut)
			if err != nil {
				rt.logger.Error("reload init failed", "err", err)
				continue
			}
			if len(toolNames) > 0 {
				server.RemoveTools(toolNames...)
			}
			toolNames, err = homcp.RegisterSDKTools(server, next.reg, next.toolCtx)
			if err != nil {
				next.logger.Error("tool registration failed", "err", err)
				continue
			}
			rt = next
			rt.logger.Info("configuration reloaded", "tools", len(toolNames))
		}
	}()

	transport := opts.Transport
	if transport == nil {
		transport = &sdkmcp.StdioTransport{}
	}
	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildOverrides turns explicit options into config overrides. The log level
// environment variable sits below the flag and above the config file.
func buildOverrides(opts Options) config.Overrides {
	overrides := config.Overrides{}
	if opts.Region != "" {
		overrides.Region = &opts.Region
	}
	if opts.Profile != "" {
		overrides.Profile = &opts.Profile
	}
	if len(opts.Toolsets) > 0 {
		overrides.Toolsets = &opts.Toolsets
	}
	if opts.ReadOnly {
		overrides.ReadOnly = &opts.ReadOnly
	}
	level := opts.LogLevel
	if level == "" {
		level = strings.TrimSpace(os.Getenv(logLevelEnv))
	}
	if level != "" {
		overrides.LogLevel = &level
	}
	if opts.LogFormat != "" {
		overrides.LogFormat = &opts.LogFormat
	}
	return overrides
}

type serverRuntime struct {
	toolCtx homcp.ToolContext
	reg     *homcp.ToolRegistry
	logger  logging.Logger
}

func buildRuntime(cfg config.Config, errOut io.Writer) (serverRuntime, error) {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: errOut,
		JSON:   strings.EqualFold(cfg.LogFormat, "json"),
	})
	redactor := redact.New()
	reg := homcp.NewRegistry(&cfg)

	toolCtx := homcp.ToolContext{
		Config:   &cfg,
		Logger:   logger,
		Renderer: render.NewRenderer(redactor),
		Redactor: redactor,
		Audit:    audit.NewLogger(logger),
		Cache:    cache.NewStore(),
		Registry: reg,
	}
	toolsetCtx := homcp.ToolsetContext(toolCtx)

	for _, id := range cfg.Toolsets {
		factory, ok := homcp.ToolsetFactoryFor(id)
		if !ok {
			return serverRuntime{}, fmt.Errorf("unknown toolset: %s (registered: %s)", id, strings.Join(homcp.RegisteredToolsets(), ", "))
		}
		toolset := factory()
		if err := toolset.Init(toolsetCtx); err != nil {
			return serverRuntime{}, fmt.Errorf("toolset %s: %w", id, err)
		}
		if err := toolset.Register(reg); err != nil {
			return serverRuntime{}, fmt.Errorf("toolset %s: %w", id, err)
		}
		logger.Debug("toolset registered", "toolset", id, "version", toolset.Version())
	}
	return serverRuntime{toolCtx: toolCtx, reg: reg, logger: logger}, nil
}
