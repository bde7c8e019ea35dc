package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/recoverkit/config"
	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/hook"
	"github.com/vinayprograms/recoverkit/logging"
	"github.com/vinayprograms/recoverkit/recovery"
)

func hookCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Handle one host hook event from stdin",
		Long: `Reads a tool event as JSON from stdin and, when the tool failed, prints
recovery guidance as hook JSON on stdout. Always exits 0 so the host flow
continues; problems are reported on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runHook(cmd.Context(), flags, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

// runHook never fails: every error path prints an empty response.
func runHook(ctx context.Context, flags *globalFlags, stdin io.Reader, stdout io.Writer) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New().WithComponent("hook")
	out := hook.Output{}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("hook panicked", map[string]interface{}{"error": rkerrors.RecoverPanic(r).Error()})
			out = hook.Output{}
		}
		if err := hook.Encode(stdout, out); err != nil {
			logger.Error("failed to write hook output", map[string]interface{}{"error": err.Error()})
		}
	}()

	in, err := hook.Decode(stdin)
	if err != nil {
		logger.Warn("ignoring unreadable hook input", map[string]interface{}{"error": err.Error()})
		return
	}

	text, failed := in.Failure()
	if !failed {
		return
	}

	root := flags.projectRoot(in.Cwd)
	cfg, err := config.Load(root)
	if err != nil {
		logger.Warn("invalid configuration, using defaults", map[string]interface{}{"error": err.Error()})
		cfg = config.Default(root)
	}
	logger = flags.newLogger(cfg).WithComponent("hook")

	engine := recovery.Open(cfg, logger)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close engine", map[string]interface{}{"error": err.Error()})
		}
	}()

	res := engine.Handle(ctx, recovery.Event{
		Tool:      in.ToolName,
		ErrorText: text,
		SessionID: in.SessionID,
	})
	out = hook.Respond(in.EventName(), res.Message)
}

