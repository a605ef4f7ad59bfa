package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"killay/adapters/db/postgres/migrations"
	"killay/internal/bulk"
	"killay/internal/config"
	"killay/internal/container"
	apperrors "killay/internal/errors"
	"killay/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "killay",
		Short:         "Bulk spreadsheet imports for the killay catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newActionsCmd(),
		newGuideCmd(),
		newTemplateCmd(),
		newValidateCmd(),
		newImportCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

// setup loads configuration and builds the container
func setup(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg, logger)
}

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the available bulk actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			for _, a := range c.Imports.Actions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", a.Type, a.Name)
			}
			return nil
		},
	}
}

func newGuideCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "guide <action>",
		Short: "Describe the columns of a bulk action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			guide, err := c.Imports.Columns(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), guide)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), guide.Markdown())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the guide as JSON")
	return cmd
}

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template <action>",
		Short: "Write the spreadsheet template of a bulk action",
		Long: `Write the spreadsheet template of a bulk action.

Example: killay template piece_create -o ./templates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			filename, err := c.Templates.Filename(args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(output, filename)
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if _, err := c.Imports.Template(cmd.Context(), args[0], f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Directory to write the template to")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <action> <file>",
		Short: "Check a filled spreadsheet without importing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			upload, err := readUpload(args[1])
			if err != nil {
				return err
			}
			outcome, err := c.Imports.Validate(cmd.Context(), args[0], upload)
			if err != nil {
				return reportFormErrors(cmd.ErrOrStderr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) are valid for %s\n", outcome.Rows, outcome.Action)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <action> <file>",
		Short: "Validate a filled spreadsheet and import every row in one transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			upload, err := readUpload(args[1])
			if err != nil {
				return err
			}
			outcome, err := c.Imports.Import(cmd.Context(), args[0], upload)
			if err != nil {
				return reportFormErrors(cmd.ErrOrStderr(), err)
			}
			return printJSON(cmd.OutOrStdout(), outcome)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				applied, err := m.Up(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s_%s\t%s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})
	return cmd
}

func withMigrator(ctx context.Context, fn func(*migrations.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.InMemory() {
		return apperrors.InvalidInput("DATABASE_URL is required to migrate")
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	db, err := container.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := migrations.Files(cfg.Database.Driver)
	if err != nil {
		return err
	}
	return fn(migrations.NewMigrator(db, files, logger.WithField("component", "migrator")))
}

func readUpload(path string) (*bulk.Upload, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFound("upload " + path)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "read upload")
	}
	return &bulk.Upload{Filename: filepath.Base(path), Data: data}, nil
}

// reportFormErrors prints operator facing messages one per line
func reportFormErrors(w io.Writer, err error) error {
	var formErrs *bulk.FormErrors
	if !errors.As(err, &formErrs) {
		return err
	}
	for _, msg := range formErrs.File {
		fmt.Fprintf(w, "file: %s\n", msg)
	}
	for _, msg := range formErrs.Data {
		fmt.Fprintln(w, msg)
	}
	return fmt.Errorf("upload rejected with %d error(s)", len(formErrs.File)+len(formErrs.Data))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
