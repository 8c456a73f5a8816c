package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"arithmetic-calculator/internal/agent"
)

// BatchResult - результат одного задания в формате json
type BatchResult struct {
	Job     agent.Job `json:"job"`
	Result  string    `json:"result,omitempty"`
	Balance int64     `json:"user_balance,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// NewBatchCommand выполняет задания из файла параллельно через gRPC
func NewBatchCommand(opts *RootOptions) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <jobs-file|->",
		Short: "Fire a file of operations concurrently for one user",
		Long: `Reads one operation per line ("addition 1 2", "squareRoot 9",
"randomString") and settles them in parallel over gRPC. Every job is
charged independently; jobs the balance cannot cover fail individually.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			jobs, err := agent.ParseJobs(in)
			if err != nil {
				return err
			}

			client, err := opts.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			results := agent.Run(cmd.Context(), client, jobs, workers)
			ok, failed := agent.Summary(results)

			out := make([]BatchResult, len(results))
			for i, r := range results {
				out[i] = BatchResult{Job: r.Job}
				if r.Err != nil {
					out[i].Error = r.Err.Error()
				} else {
					out[i].Result = r.Outcome.Result
					out[i].Balance = r.Outcome.Balance
				}
			}

			return opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) error {
				for i, r := range out {
					if r.Error != "" {
						fmt.Fprintf(w, "%3d %-15s error: %s\n", i+1, r.Job.Kind, r.Error)
						continue
					}
					fmt.Fprintf(w, "%3d %-15s %s (balance %d)\n", i+1, r.Job.Kind, r.Result, r.Balance)
				}
				_, err := fmt.Fprintf(w, "%d succeeded, %d failed\n", ok, failed)
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent requests")

	return cmd
}
