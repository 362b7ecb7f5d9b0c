package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/awfufu/go-dstbot/internal/app"
	"github.com/awfufu/go-dstbot/internal/config"
	"github.com/awfufu/go-dstbot/internal/logging"
	"github.com/awfufu/go-dstbot/internal/qbot"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

type handler interface {
	Handle(ctx context.Context, ev *qbot.Event) (string, bool)
}

type rootOptions struct {
	configPath string
	as         string
}

func NewRootCommand() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:          "dstctl",
		Short:        "Control DST servers through the bot dispatcher",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "配置文件路径")
	cmd.PersistentFlags().StringVar(&opts.as, "as", "dstctl", "name shown in say messages and the audit log")

	cmd.AddCommand(
		newExecCommand(&opts),
		newShellCommand(&opts),
		newServersCommand(&opts),
	)
	return cmd
}

func newExecCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <server> <verb> [param...]",
		Short: "Run one server command",
		Args:  cobra.MinimumNArgs(2),
		Example: `  dstctl exec cave player-list
  dstctl exec cave mod-add 1216718131 378160973
  dstctl exec cave say "server restarts in 5 minutes"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, ok := a.Registry.Lookup(args[0]); !ok {
				return fmt.Errorf("unknown server %q", args[0])
			}
			reply := run(cmd.Context(), a.Dispatcher, opts.as, "#"+strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func newShellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read commands from stdin, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runShell(cmd.Context(), a.Dispatcher, opts.as, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newServersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List configured servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			for _, s := range cfg.DstServers {
				rcon := ""
				if s.Rcon != nil {
					rcon = " rcon=" + s.Rcon.Address
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s:%d%s\n", s.Name, s.IP, s.Port, rcon)
			}
			return nil
		},
	}
}

func openApp(opts *rootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	// replies go to stdout, logs to the log file or stderr
	off := false
	cfg.Log.Console = &off
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log)
}

func run(ctx context.Context, h handler, as, text string) string {
	ev := &qbot.Event{
		Scope:   qbot.Private,
		UserID:  as,
		Name:    as,
		IsAdmin: true,
		Text:    strings.TrimSpace(text),
	}
	reply, _ := h.Handle(ctx, ev)
	return reply
}

// runShell reads "<server> <verb> [param...]" lines. Arguments are split
// shell style so quoted params keep their spaces; a line starting with '#'
// is sent unchanged.
func runShell(ctx context.Context, h handler, as string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		text := line
		if !strings.HasPrefix(line, "#") {
			parts, err := shlex.Split(line)
			if err != nil {
				fmt.Fprintf(out, "parse error: %v\n", err)
				continue
			}
			text = "#" + strings.Join(parts, " ")
		}
		fmt.Fprintln(out, run(ctx, h, as, text))
	}
	return scanner.Err()
}
