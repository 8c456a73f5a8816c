package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"arithmetic-calculator/internal/config"
	"arithmetic-calculator/internal/db"
)

// RootOptions - глобальные флаги всех команд
type RootOptions struct {
	EnvFile string
	DBPath  string
	Addr    string
	Token   string
	Format  string // "json" | "text"
}

// ValidFormats - допустимые форматы вывода
var ValidFormats = []string{"text", "json"}

// NewRootCommand создает корневую команду arithmeticctl
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "arithmeticctl",
		Short: "Administer and exercise the arithmetic calculator",
		Long: `arithmeticctl manages users, balances and operation costs directly in the
database, and talks to a running server over gRPC to list records or fire
batches of paid operations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", ".env", "path to the .env file")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path (overrides DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "", "gRPC server address (default localhost:GRPC_PORT)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("ARITHMETIC_TOKEN"), "bearer token for gRPC calls")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewCostCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return nil, err
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	return cfg, nil
}

func (o *RootOptions) openStore() (*db.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.DBPath)
}

func (o *RootOptions) grpcAddr() (string, error) {
	if o.Addr != "" {
		return o.Addr, nil
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return "", err
	}
	return "localhost:" + cfg.GRPCPort, nil
}

// emit пишет v как json либо вызывает text для текстового формата
func (o *RootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
