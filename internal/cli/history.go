package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent load and store operations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runHistory(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of operations to show")

	return cmd
}

func runHistory(limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ops, err := store.ListOperations(limit)
	if err != nil {
		return err
	}

	if len(ops) == 0 {
		fmt.Println("No operations recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Started", "Kind", "Plugin", "Relation", "Status", "Duration"})
	for _, op := range ops {
		t.AppendRow(table.Row{
			op.StartedAt.Format(time.RFC3339),
			op.Kind,
			op.Plugin,
			op.Relation,
			op.Status,
			(time.Duration(op.DurationMS) * time.Millisecond).String(),
		})
	}
	t.Render()

	return nil
}
