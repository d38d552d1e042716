package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/petasbytes/deepagent/agent"
	"github.com/petasbytes/deepagent/internal/metrics"
	"github.com/petasbytes/deepagent/internal/telemetry"
	"github.com/petasbytes/deepagent/memory"
)

var (
	runSession string
	runVerbose bool
	runImport  string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <task>",
	Short: "Run the agent on a task",
	Long: `Run the configured agent on a task until it completes or exhausts its
iteration cap. Pass --session to continue an existing conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&runSession, "session", "", "continue the session with this id")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "log loop progress at info level")
	runCmd.Flags().StringVar(&runImport, "import", "", "seed a new session from a saved conversation file")
	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")
	if strings.TrimSpace(task) == "" {
		return fmt.Errorf("task must not be empty")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg := env.cfg

	var session *memory.Session
	if runSession != "" {
		session = memory.OpenSession(env.store, runSession)
	} else {
		session = memory.NewSession(env.store)
	}
	if runImport != "" {
		if runSession != "" {
			return fmt.Errorf("--import starts a new session and cannot be combined with --session")
		}
		if err := importConversation(ctx, session, runImport, cfg.Agent.Name); err != nil {
			return err
		}
	}

	registry, err := buildRegistry(cfg.Sandbox, newConsolePrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	collectors, err := metrics.NewCollectors(promReg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, promReg, env.log.Logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	toolNames := cfg.Agent.Tools
	if len(toolNames) == 0 {
		toolNames = registry.Names()
	}

	a, err := agent.New(newClient(cfg.Agent), registry,
		agent.WithName(cfg.Agent.Name),
		agent.WithInstructions(cfg.Agent.Instructions),
		agent.WithModel(cfg.Agent.Model),
		agent.WithTools(toolNames...),
		agent.WithSubAgents(cfg.SubAgents...),
		agent.WithGeneralPurposeSubagent(cfg.Agent.GeneralPurposeEnabled()),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithTokenBudget(cfg.Agent.TokenBudget),
		agent.WithMaxTokens(cfg.Agent.MaxTokens),
		agent.WithSession(session),
		agent.WithLogger(env.log.Logger),
		agent.WithMetrics(collectors),
		agent.WithTelemetry(telemetry.FromEnv()),
		agent.WithVerbose(cfg.Agent.Verbose || runVerbose),
	)
	if err != nil {
		return err
	}

	env.log.Info().
		Str("agent", a.Name()).
		Str("session", session.ID()).
		Strs("tools", a.Tools()).
		Msg("Starting task")

	res, err := a.Invoke(ctx, task)
	if err != nil {
		return fmt.Errorf("session %s: %w", session.ID(), err)
	}

	out := cmd.OutOrStdout()
	if res.Output != "" {
		fmt.Fprintln(out, res.Output)
	}
	fmt.Fprintf(out, "Session: %s\n", session.ID())
	fmt.Fprintf(out, "Status: %s (%d iterations)\n", res.Status, res.Iterations)
	return nil
}

// importConversation appends a saved projection to session. Assistant
// messages are attributed to agentName and the rest to the user.
func importConversation(ctx context.Context, session *memory.Session, path, agentName string) error {
	msgs, err := memory.LoadConversation(path)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", path, err)
	}
	for _, m := range msgs {
		speaker := memory.SpeakerUser
		if m.Role == memory.RoleAssistant {
			speaker = agentName
		}
		if _, err := session.Append(ctx, speaker, m.Content, map[string]any{"imported": true}); err != nil {
			return fmt.Errorf("failed to import conversation: %w", err)
		}
	}
	return nil
}
