package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
)

// NewUserCommand - команды создания пользователей и смены статуса
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create users and change their status",
	}

	var balance int64
	create := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create an active user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.CreateUser(cmd.Context(), args[0], args[1], balance)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), user, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "created user %s (id %d, balance %d)\n", user.Username, user.ID, user.Balance)
				return err
			})
		},
	}
	create.Flags().Int64Var(&balance, "balance", 100, "starting balance")

	status := &cobra.Command{
		Use:   "status <username> <active|inactive>",
		Short: "Activate or deactivate a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.SetUserStatus(cmd.Context(), user.ID, args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", user.Username, args[1])
			return err
		},
	}

	cmd.AddCommand(create, status)
	return cmd
}

// NewBalanceCommand - просмотр и пополнение баланса
func NewBalanceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Inspect or top up user balances",
	}

	set := &cobra.Command{
		Use:   "set <username> <amount>",
		Short: "Overwrite a user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("amount %q is not an integer", args[1])
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			previous, err := store.GetBalance(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			if err := store.SetBalance(cmd.Context(), user.ID, amount); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "balance of %s changed from %d to %d\n", user.Username, previous, amount)
			return err
		},
	}

	get := &cobra.Command{
		Use:   "get <username>",
		Short: "Show a user's balance and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), user, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: balance %d, %s\n", user.Username, user.Balance, user.Status)
				return err
			})
		},
	}

	cmd.AddCommand(set, get)
	return cmd
}

// NewCostCommand - каталог стоимостей операций
func NewCostCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show or change operation costs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the cost of every operation type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ops, err := store.ListOperations(cmd.Context())
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), ops, func(w io.Writer) error {
				return printOperations(w, ops)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <type> <cost>",
		Short: "Change the cost of an operation type; past records keep their charge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := evaluator.ParseKind(args[0])
			if err != nil {
				return err
			}
			cost, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("cost %q is not an integer", args[1])
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetOperationCost(cmd.Context(), kind, cost); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s now costs %d\n", kind, cost)
			return err
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}

func printOperations(w io.Writer, ops []*db.Operation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCOST")
	for _, op := range ops {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", op.ID, op.Kind, op.Cost)
	}
	return tw.Flush()
}
