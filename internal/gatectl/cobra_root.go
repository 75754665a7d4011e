package gatectl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"modelgate/pkg/types"
)

// Config holds values shared by every subcommand.
type Config struct {
	URL     string
	LogLvl  string
	Timeout time.Duration
}

func defaultConfig() *Config {
	return &Config{
		URL:     envStr("GATECTL_URL", "http://127.0.0.1:8000"),
		LogLvl:  envStr("GATECTL_LOG_LEVEL", "info"),
		Timeout: envDuration("GATECTL_TIMEOUT", 5*time.Minute),
	}
}

// Execute runs gatectl with os.Args.
func Execute() error { return BuildRootCmd(defaultConfig()).Execute() }

// BuildRootCmd wires the command tree to cfg.
func BuildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Smoke-test client for a running modelgate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "Gateway base URL (defaults GATECTL_URL)")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall deadline for the command")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), cfg.Timeout)
	}

	modelsCmd := &cobra.Command{Use: "models", Short: "List models served by the gateway", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		cards, err := NewClient(cfg.URL).Models(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED")
		for _, c := range cards {
			fmt.Fprintf(tw, "%s\t%s\n", c.ID, time.Unix(c.Created, 0).UTC().Format(time.RFC3339))
		}
		return tw.Flush()
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Print the gateway status document", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		st, err := NewClient(cfg.URL).Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}}

	var (
		system  string
		user    string
		stream  = envBool("GATECTL_STREAM", true)
		verbose bool
	)
	chatCmd := &cobra.Command{
		Use:     "chat <model>",
		Short:   "Send one chat completion and print the reply",
		Example: "  gatectl chat LGAI/EXAONE-3.0-7.8B-Instruct --user 'Write a haiku'\n  gatectl chat acme/tiny --stream=false",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			req := chatRequest(args[0], system, user)
			return runChat(ctx, NewClient(cfg.URL), req, stream, verbose, cmd.OutOrStdout())
		},
	}
	chatCmd.Flags().StringVar(&system, "system", "", "Optional system prompt")
	chatCmd.Flags().StringVar(&user, "user", "Say hello.", "User message")
	chatCmd.Flags().BoolVar(&stream, "stream", stream, "Use server-sent events")
	chatCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print timing after the reply")

	var every time.Duration
	waitCmd := &cobra.Command{Use: "wait", Short: "Block until /readyz answers 200", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		if addr, err := hostPort(cfg.URL); err == nil && !isPortBusy(addr) {
			logger.Info().Str("addr", addr).Msg("nothing listening yet")
		}
		if err := waitHTTP(ctx, cfg.URL+"/readyz", 200, every); err != nil {
			return err
		}
		logger.Info().Str("url", cfg.URL).Msg("gateway ready")
		return nil
	}}
	waitCmd.Flags().DurationVar(&every, "every", time.Second, "Polling interval")

	root.AddCommand(modelsCmd, statusCmd, chatCmd, waitCmd)
	return root
}

func chatRequest(model, system, user string) types.ChatCompletionRequest {
	req := types.ChatCompletionRequest{Model: model}
	if system != "" {
		req.Messages = append(req.Messages, types.ChatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, types.ChatMessage{Role: "user", Content: user})
	return req
}

func runChat(ctx context.Context, c *Client, req types.ChatCompletionRequest, stream, verbose bool, out io.Writer) error {
	start := time.Now()
	var (
		finish string
		first  time.Duration
	)
	if stream {
		var err error
		finish, err = c.Stream(ctx, req, func(s string) {
			if first == 0 {
				first = time.Since(start)
			}
			fmt.Fprint(out, s)
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
	} else {
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("response has no choices")
		}
		fmt.Fprintln(out, resp.Choices[0].Message.Content)
		finish = resp.Choices[0].FinishReason
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "finish=%s first_token=%s total=%s\n", finish, first, time.Since(start).Round(time.Millisecond))
	}
	if finish == "" {
		logger.Warn().Msg("no finish_reason received")
	}
	return nil
}
