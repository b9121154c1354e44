package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/support"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the assistant message as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(s)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		st, err := openStore(s)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		ctx := llm.WithRequestID(cmd.Context(), uuid.NewString())
		res, err := newGenerator(s, st, log).Generate(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(support.NewAssistantMessage(res.Answer, time.Now())); err != nil {
			return fmt.Errorf("encode answer: %w", err)
		}
		fmt.Fprintf(os.Stderr, "model=%s prompt=%s tokens=%d\n", res.Model, res.PromptVersion, res.Usage.TotalTokens)
		return nil
	},
}
