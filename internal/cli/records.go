package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/grpc"
)

var errNoToken = errors.New("a bearer token is required (--token or ARITHMETIC_TOKEN)")

func (o *RootOptions) dial() (*grpc.Client, error) {
	if o.Token == "" {
		return nil, errNoToken
	}
	addr, err := o.grpcAddr()
	if err != nil {
		return nil, err
	}
	return grpc.NewClient(addr, o.Token)
}

// NewRecordsCommand - журнал операций пользователя токена
func NewRecordsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List, search and delete your operation records over gRPC",
	}

	var page db.Page
	addPageFlags := func(c *cobra.Command) {
		c.Flags().IntVar(&page.Limit, "limit", db.DefaultPageLimit, "page size")
		c.Flags().IntVar(&page.Offset, "offset", 0, "records to skip")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List records in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			records, total, err := client.ListRecords(cmd.Context(), page)
			if err != nil {
				return err
			}
			out := struct {
				Records    []*db.Record `json:"records"`
				TotalCount int          `json:"total_count"`
			}{records, total}
			return opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if err := printRecords(w, records); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "showing %d of %d\n", len(records), total)
				return err
			})
		},
	}
	addPageFlags(list)

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Find records whose expression contains term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.SearchRecords(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), records, func(w io.Writer) error {
				return printRecords(w, records)
			})
		},
	}
	addPageFlags(search)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("record id %q is not an integer", args[0])
			}

			client, err := opts.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.DeleteRecord(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "record %d deleted\n", id)
			return err
		},
	}

	cmd.AddCommand(list, search, del)
	return cmd
}

func printRecords(w io.Writer, records []*db.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tEXPRESSION\tRESULT\tAMOUNT\tBALANCE\tDATE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Kind, r.Expression, r.Response, r.Amount, r.UserBalance, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
