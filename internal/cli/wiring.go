package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/petasbytes/deepagent/inference"
	"github.com/petasbytes/deepagent/internal/config"
	"github.com/petasbytes/deepagent/internal/fsops"
	"github.com/petasbytes/deepagent/internal/logger"
	"github.com/petasbytes/deepagent/internal/metrics"
	"github.com/petasbytes/deepagent/internal/provider"
	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/memory/jsonl"
	"github.com/petasbytes/deepagent/memory/redisstore"
	"github.com/petasbytes/deepagent/memory/sqlstore"
	"github.com/petasbytes/deepagent/tools"
)

// newClient builds the inference client for the configured provider.
// Tests replace it with a scripted client.
var newClient = func(cfg config.AgentConfig) inference.Client {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return provider.NewOpenAI(nil, func(o *provider.OpenAIOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		})
	default:
		return provider.NewAnthropic(nil, func(o *provider.AnthropicOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		})
	}
}

// environment holds what every subcommand needs: configuration, logger and
// the conversation store.
type environment struct {
	cfg   *config.Config
	log   *logger.Logger
	store memory.Store
	close func() error
}

func setup(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Store, l.Logger)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return &environment{
		cfg:   cfg,
		log:   l,
		store: store,
		close: func() error {
			return errors.Join(closeStore(), l.Close())
		},
	}, nil
}

func (e *environment) Close() error { return e.close() }

func openStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (memory.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.StoreJSONL:
		s, err := jsonl.New(cfg.Dir, jsonl.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("open jsonl store: %w", err)
		}
		return s, noop, nil
	case config.StoreSQLite, config.StoreMySQL:
		s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Driver, DSN: cfg.DSN}, sqlstore.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, s.Close, nil
	case config.StoreRedis:
		s, err := redisstore.New(ctx, redisstore.Config{
			Address:   cfg.Addr,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
		}, redisstore.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, s.Close, nil
	default:
		return memory.NewInMemoryStore(), noop, nil
	}
}

// buildRegistry registers every built-in tool over the configured sandbox.
func buildRegistry(cfg config.SandboxConfig, p tools.UserPrompter) (*tools.Registry, error) {
	sb, err := fsops.New(cfg.ReadRoot, cfg.WriteRoot)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	reg := tools.NewRegistry()
	defs := append(tools.FileTools(sb),
		tools.WriteTodosDefinition,
		tools.SearchConversationDefinition,
		tools.AskUserDefinition(p),
	)
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// consolePrompter answers ask_user from a line-oriented terminal.
type consolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsolePrompter(in io.Reader, out io.Writer) *consolePrompter {
	return &consolePrompter{in: bufio.NewReader(in), out: out}
}

func (c *consolePrompter) Prompt(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "\u001b[93mAgent\u001b[0m: %s\n\u001b[94mYou\u001b[0m: ", message)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// serveMetrics exposes reg on addr until the returned server is shut down.
func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}
