package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/pkg/config"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect the CSV data directory",
}

var dataCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which data tables load and how many records they hold",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		tables := data.NewTables(os.DirFS(cfg.App.DataDir), nil)
		fmt.Fprintf(cmd.OutOrStdout(), "Data directory: %s\n\n", cfg.App.DataDir)
		if missing := checkTables(cmd.OutOrStdout(), tables); missing > 0 {
			return fmt.Errorf("%d required table(s) missing", missing)
		}
		return nil
	},
}

func init() {
	dataCmd.AddCommand(dataCheckCmd)
}

// checkTables prints one line per known table and returns how many
// required tables could not be loaded.
func checkTables(out io.Writer, tables *data.Tables) int {
	required := make(map[string]bool, len(requiredTables))
	for _, t := range requiredTables {
		required[t] = true
	}

	names := make([]string, 0, len(data.DefaultPaths))
	for name := range data.DefaultPaths {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSTATUS\tRECORDS\tPATH")
	missing := 0
	for _, name := range names {
		path, _ := tables.Path(name)
		t := tables.Load(name)
		switch {
		case t.Err == nil && t.Loaded:
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, ok("ok"), len(t.Records), path)
		case required[name]:
			missing++
			fmt.Fprintf(tw, "%s\t%s\t-\t%s\n", name, fail("missing"), path)
		default:
			fmt.Fprintf(tw, "%s\t%s\t-\t%s\n", name, warn("absent"), path)
		}
	}
	tw.Flush()
	return missing
}
