package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petasbytes/deepagent/memory"
)

var (
	transcriptSession string
	transcriptOut     string
	transcriptAs      string
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print a session transcript",
	Long: `Print every turn of a stored session with its speaker. With --out the
conversation is also saved, projected for one speaker, as a JSON file that
"run --import" can seed a new session from.`,
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().StringVar(&transcriptSession, "session", "", "session id (required)")
	transcriptCmd.Flags().StringVar(&transcriptOut, "out", "", "save the projected conversation to this file")
	transcriptCmd.Flags().StringVar(&transcriptAs, "as", "", "speaker to project for (default is the configured agent)")
	_ = transcriptCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	session := memory.OpenSession(env.store, transcriptSession)
	turns, err := session.Turns(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session %s: %w", transcriptSession, err)
	}
	if len(turns) == 0 {
		return fmt.Errorf("session %s has no turns", transcriptSession)
	}

	out := cmd.OutOrStdout()
	for _, t := range turns {
		fmt.Fprintf(out, "[%s] %s\n", t.Speaker, t.Content)
	}

	if transcriptOut != "" {
		speaker := transcriptAs
		if speaker == "" {
			speaker = env.cfg.Agent.Name
		}
		if err := memory.SaveConversation(transcriptOut, memory.Project(turns, speaker)); err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		fmt.Fprintf(out, "Saved %d messages to %s\n", len(turns), transcriptOut)
	}
	return nil
}
