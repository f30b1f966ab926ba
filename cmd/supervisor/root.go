package main

import (
	"time"

	"github.com/spf13/cobra"
)

// rootOptions 保存所有子命令共享的全局参数。
type rootOptions struct {
	configPath string
	timeout    time.Duration
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "supervisor",
		Short: "Delegate natural-language queries to specialised A2A agents",
		Long: `supervisor parses a natural-language query into JSON-RPC tasks, delegates
them concurrently to the agents declared by the configured agent cards and
returns one response per task, in task order.

With no subcommand it runs a single query, same as "supervisor query".`,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file (env A2A_CONFIG)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-attempt timeout override, e.g. 3s")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn or error")

	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newAgentsCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	return cmd
}
