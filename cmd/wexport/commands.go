package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"wexport/internal/app"
	"wexport/internal/config"
	"wexport/internal/db"
	"wexport/internal/infrastructure"
	"wexport/pkg/contracts/domain"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "wexport",
		Short: "wexport - order export service",
		Long: `wexport exports store orders to CSV or XLSX files.
It serves the export API over HTTP and can run exports, previews and
template maintenance directly from the command line.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: $WEXPORT_CONFIG or config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		serveCommand(opts),
		exportCommand(opts),
		previewCommand(opts),
		seedCommand(opts),
		cleanupCommand(opts),
		templatesCommand(opts),
		versionCommand(),
	)
	return root
}

// loadConfig reads --config when given, otherwise the default lookup
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// openApp builds the application for a one-shot command. Logs go to stderr
// so command output on stdout stays machine readable.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.Application, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	// Nothing scrapes a one-shot command
	cfg.Telemetry.EnableMetrics = false

	logger := infrastructure.NewLoggerWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, false)
	application, err := app.New(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, func() { application.Stop(context.Background()) }, nil
}

// commandContext tags the command with a trace id so its log lines correlate
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return infrastructure.EnsureTraceID(ctx)
}

// loadRequest reads an export request from a YAML (or JSON) file. An empty
// path yields the configured defaults.
func loadRequest(path string) (domain.ExportRequest, error) {
	var req domain.ExportRequest
	if path == "" {
		return req, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

func serveCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			app.BuildTime = buildTime
			application, err := app.New(commandContext(cmd), cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer infrastructure.CloseLogFile()
			return application.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides configuration)")
	return cmd
}

func exportCommand(opts *rootOptions) *cobra.Command {
	var (
		requestPath string
		outPath     string
		owner       int64
		format      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run an export into a file",
		Example: `  wexport export --request monthly.yaml --out orders.csv
  wexport export --format xlsx --out orders.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}
			if format != "" {
				req.ExportFormat = format
			}

			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			result, err := application.Services.Export.ExportToFile(commandContext(cmd), owner, req, outPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", result.Rows, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "export request file (YAML or JSON)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	cmd.Flags().Int64Var(&owner, "owner", 0, "user id recorded in the export log")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (overrides the request)")
	cmd.MarkFlagRequired("out")
	return cmd
}

func previewCommand(opts *rootOptions) *cobra.Command {
	var requestPath string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the first rows of an export as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}

			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			text, err := application.Services.Export.Preview(commandContext(cmd), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "export request file (YAML or JSON)")
	return cmd
}

func seedCommand(opts *rootOptions) *cobra.Command {
	var fixturesPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load products and orders from a fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := db.LoadFixtures(fixturesPath)
			if err != nil {
				return err
			}

			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			if err := application.DB.Seed(commandContext(cmd), fixtures); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products and %d orders\n", len(fixtures.Products), len(fixtures.Orders))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fixturesPath, "file", "f", "", "fixtures file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func cleanupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired export files and old export log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			result, err := application.Services.Export.Cleanup(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files and %d log entries\n", result.Files, result.Logs)
			return nil
		},
	}
}

func templatesCommand(opts *rootOptions) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage saved export templates",
	}
	cmd.PersistentFlags().Int64Var(&owner, "owner", 0, "template owner user id")
	cmd.MarkPersistentFlagRequired("owner")

	list := &cobra.Command{
		Use:   "list",
		Short: "List templates as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			list, err := application.Services.Templates.List(commandContext(cmd), owner)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		},
	}

	export := &cobra.Command{
		Use:   "export [id...]",
		Short: "Write templates as a portable JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			data, err := application.Services.Templates.Export(commandContext(cmd), owner, args)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	var importPath string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Import templates from a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(importPath)
			if err != nil {
				return fmt.Errorf("failed to read templates: %w", err)
			}

			application, stop, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer stop()

			ids, err := application.Services.Templates.Import(commandContext(cmd), owner, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d templates: %s\n", len(ids), strings.Join(ids, ", "))
			return nil
		},
	}
	imp.Flags().StringVarP(&importPath, "file", "f", "", "templates JSON file")
	imp.MarkFlagRequired("file")

	cmd.AddCommand(list, export, imp)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", config.AppName, config.AppVersion, buildTime)
		},
	}
}
