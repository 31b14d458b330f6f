package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/rahul/estate/internal/agent"
	"github.com/rahul/estate/internal/gateway"
	"github.com/rahul/estate/pkg/config"
	"github.com/spf13/cobra"
)

var (
	queryYes     bool
	queryJSON    bool
	queryVerbose bool
	queryContext []string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Plan, approve and execute one request in the terminal",
	Example: `  estate query "Run AML check for vendor VEN-001"
  estate query "Match buyers for this property" --context property_id=PROP-001 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qctx, err := parseContext(queryContext)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runQuery(ctx, cmd.OutOrStdout(), strings.Join(args, " "), qctx)
	},
}

func init() {
	queryCmd.Flags().BoolVarP(&queryYes, "yes", "y", false, "Approve the plan without prompting")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the full response as JSON")
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "Print structured events to stderr")
	queryCmd.Flags().StringArrayVarP(&queryContext, "context", "c", nil, "Context entry as key=value (repeatable)")
}

func runQuery(ctx context.Context, out io.Writer, text string, qctx agent.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	var events io.Writer = io.Discard
	if queryVerbose {
		events = os.Stderr
	} else {
		log.SetOutput(io.Discard)
	}

	app, err := newApp(cfg, approverFor(cfg.Approval.Mode, queryYes, os.Stdin, out), events)
	if err != nil {
		return err
	}
	defer app.Close()

	resp := app.manager.ProcessQuery(ctx, agent.Request{
		Query:           text,
		Context:         qctx,
		RequireApproval: true,
	})

	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, gateway.FormatResponse(resp))
	if resp.Status == agent.QueryRejected {
		color.New(color.FgYellow).Fprintln(out, "Nothing was executed.")
	}
	return nil
}

// parseContext turns key=value pairs into a query context.
func parseContext(pairs []string) (agent.Context, error) {
	qctx := agent.Context{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context entry %q, want key=value", p)
		}
		qctx[key] = strings.TrimSpace(value)
	}
	return qctx, nil
}
