package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"A2A-Supervisor/internal/protocol"
)

// DefaultQuery 在未提供查询文本时使用，同时覆盖新闻与 CRM 两类意图。
const DefaultQuery = "Find recent company news about Acme Inc and pull CRM history for John Doe"

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query [text...]",
		Short: "Run one query and print the task responses as JSON",
		Long: `Run one query and print the task responses as an indented JSON array.

The query text is taken from the arguments, then from stdin when it is not a
terminal, and falls back to a built-in demo query.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}
}

func runQuery(cmd *cobra.Command, opts *rootOptions, args []string) error {
	text, err := readQuery(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.close()

	responses := a.sup.HandleQuery(cmd.Context(), text)

	out := cmd.OutOrStdout()
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(responses); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}
	printSummary(cmd.ErrOrStderr(), responses)
	return nil
}

// readQuery 依次从参数、非终端的标准输入与默认查询中取得查询文本。
func readQuery(in io.Reader, args []string) (string, error) {
	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		return text, nil
	}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return DefaultQuery, nil
	}
	raw, err := io.ReadAll(bufio.NewReader(in))
	if err != nil {
		return "", fmt.Errorf("读取标准输入失败: %w", err)
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text, nil
	}
	return DefaultQuery, nil
}

func printSummary(w io.Writer, responses []protocol.TaskResponse) {
	failed := 0
	for _, resp := range responses {
		if !resp.OK() {
			failed++
		}
	}
	switch {
	case len(responses) == 0:
		printStatus(w, "⚠", "no task matched the query", color.FgYellow)
	case failed == 0:
		printStatus(w, "✓", fmt.Sprintf("%d task(s) succeeded", len(responses)), color.FgGreen)
	default:
		printStatus(w, "✗", fmt.Sprintf("%d of %d task(s) failed", failed, len(responses)), color.FgRed)
	}
}

func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}
