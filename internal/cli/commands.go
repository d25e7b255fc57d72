package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/permission"
)

// operatorFlags identify the operator running a mutating command. The
// engine's permission gate checks them like any other caller.
type operatorFlags struct {
	userID     string
	adminToken string
}

func (o *operatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.userID, "user", "", "admin user id recognised by the catalog_admins table")
	cmd.Flags().StringVar(&o.adminToken, "admin-token", os.Getenv("CATALOG_ADMIN_TOKEN"), "fallback admin token (defaults to $CATALOG_ADMIN_TOKEN)")
}

func (o *operatorFlags) session(ctx context.Context) context.Context {
	s := permission.Session{AdminToken: o.adminToken}
	if o.userID != "" {
		s.UserID = o.userID
		s.Role = permission.RoleAdmin
	}
	return permission.WithSession(ctx, s)
}

// authorize returns the operator's session context, or ErrPermissionDenied
// when the gate refuses it. The first admin is granted with the fallback
// token since the directory is still empty.
func (o *operatorFlags) authorize(ctx context.Context, gate catalog.Gate, cmd string) (context.Context, error) {
	ctx = o.session(ctx)
	if !gate.CanMutate(ctx) {
		return nil, fmt.Errorf("%s: %w", cmd, catalog.ErrPermissionDenied)
	}
	return ctx, nil
}

func buildSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate expired postings once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			rep, err := rt.engine.Sweeper.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
}

func buildSyncCommand() *cobra.Command {
	var bootstrap bool
	var op operatorFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push cache-only postings to PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, err := op.authorize(cmd.Context(), rt.gate, "sync")
			if err != nil {
				return err
			}
			if bootstrap {
				rep, err := rt.engine.Sync.Bootstrap(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			}
			return printJSON(cmd.OutOrStdout(), rt.engine.Sync.Push(ctx))
		},
	}

	cmd.Flags().BoolVar(&bootstrap, "bootstrap", false, "run the bootstrap check instead: push everything only if PostgreSQL is empty")
	op.register(cmd)
	return cmd
}

func buildImportCommand() *cobra.Command {
	var op operatorFlags

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk create postings from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readImportFile(args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.engine.Bulk.Load(op.session(cmd.Context()), inputs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	op.register(cmd)
	return cmd
}

func buildHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token TOKEN",
		Short: "Print the bcrypt hash to set as ADMIN_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := permission.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func buildGrantAdminCommand() *cobra.Command {
	var op operatorFlags

	cmd := &cobra.Command{
		Use:   "grant-admin USER_ID",
		Short: "Record USER_ID as a catalog admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, err := op.authorize(cmd.Context(), rt.gate, "grant-admin")
			if err != nil {
				return err
			}
			if err := rt.admins.Grant(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted catalog admin to %s\n", args[0])
			return nil
		},
	}

	op.register(cmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
