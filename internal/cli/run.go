package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunGetCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW_ID", "SCOPE", "STATUS", "DURATION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.RunID, r.WorkflowID, r.Scope, r.Status, formatMillis(r.Duration), r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCESS, PARTIAL, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var scope string
	var nodes []string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a new run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			scope = strings.ToUpper(scope)
			if scope != "FULL" && len(nodes) == 0 {
				return fmt.Errorf("--nodes is required for scope %s", scope)
			}

			run, err := client.CreateRun(args[0], CreateRunRequest{
				Scope:   scope,
				NodeIDs: nodes,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.RunID))
			out.Print(
				[]string{"ID", "WORKFLOW_ID", "SCOPE", "STATUS", "CREATED"},
				[][]string{{run.RunID, run.WorkflowID, run.Scope, run.Status, run.CreatedAt}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "FULL", "Run scope (FULL, SINGLE, PARTIAL)")
	cmd.Flags().StringSliceVar(&nodes, "nodes", nil, "Target node IDs for SINGLE and PARTIAL scope")

	return cmd
}

func newRunGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show run details with node results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(run)
				return nil
			}

			out.Print(
				[]string{"ID", "WORKFLOW_ID", "SCOPE", "STATUS", "DURATION", "ERROR", "CREATED"},
				[][]string{{run.RunID, run.WorkflowID, run.Scope, run.Status, formatMillis(run.Duration), run.Error, run.CreatedAt}},
				nil,
			)

			if len(run.Results) == 0 {
				return nil
			}

			out.Heading("Results")
			rows := make([][]string, len(run.Results))
			for i, res := range run.Results {
				rows[i] = []string{res.NodeID, res.NodeKind, res.Status, formatMillis(res.Duration), res.Error}
			}
			out.Print([]string{"NODE", "KIND", "STATUS", "DURATION", "ERROR"}, rows, nil)
			return nil
		},
	}
}

// formatMillis форматирует длительность в миллисекундах для таблиц.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", ms)
}
