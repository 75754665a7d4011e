package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"modelgate/internal/config"
	"modelgate/internal/registry"
	"modelgate/pkg/types"
)

// options mirrors the command-line flags. A flag only overrides the
// file/env configuration when it was set explicitly.
type options struct {
	configPath  string
	addr        string
	modelsDir   string
	modelSuffix string
	logLevel    string
	backendMode string
	backendCmd  string
	backendArgs string
	portBase    int
	idleTimeout int
	reapEvery   int
	maxQueue    int
	maxWait     int
	cors        bool
	corsOrigins string
}

func (o *options) bind(fs *pflag.FlagSet) {
	d := config.Defaults()
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to a YAML, JSON or TOML config file")
	fs.StringVar(&o.addr, "addr", d.Addr, "HTTP listen address")
	fs.StringVar(&o.modelsDir, "models-dir", d.ModelsDir, "Root directory laid out as <owner>/<name><suffix>")
	fs.StringVar(&o.modelSuffix, "model-suffix", d.ModelSuffix, "File suffix that marks an eligible model artifact")
	fs.StringVar(&o.logLevel, "log-level", d.LogLevel, "Log level: debug|info|warn|error|off")
	fs.StringVar(&o.backendMode, "backend-mode", d.BackendMode, "Backend kind: subprocess|inprocess")
	fs.StringVar(&o.backendCmd, "backend-cmd", d.BackendCmd, "Backend server command (subprocess mode)")
	fs.StringVar(&o.backendArgs, "backend-args", d.BackendArgs, "Backend argument template; {model} {id} {host} {port} are substituted")
	fs.IntVar(&o.portBase, "port-base", d.PortBase, "Backend for registry slot i listens on port-base+1+i")
	fs.IntVar(&o.idleTimeout, "idle-timeout", d.IdleTimeoutSec, "Seconds a ready backend may sit unused before eviction")
	fs.IntVar(&o.reapEvery, "reap-interval", d.ReapIntervalSec, "Seconds between idle sweeps")
	fs.IntVar(&o.maxQueue, "max-queue-depth", d.MaxQueueDepth, "Requests allowed to wait per model")
	fs.IntVar(&o.maxWait, "max-wait", d.MaxWaitSec, "Seconds a request may wait for its turn")
	fs.BoolVar(&o.cors, "cors", d.CORSEnabled, "Enable CORS")
	fs.StringVar(&o.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
}

// apply overlays explicitly set flags on cfg.
func (o *options) apply(fs *pflag.FlagSet, cfg config.Config) config.Config {
	set := func(name string) bool { return fs.Changed(name) }
	if set("addr") {
		cfg.Addr = o.addr
	}
	if set("models-dir") {
		cfg.ModelsDir = o.modelsDir
	}
	if set("model-suffix") {
		cfg.ModelSuffix = o.modelSuffix
	}
	if set("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if set("backend-mode") {
		cfg.BackendMode = o.backendMode
	}
	if set("backend-cmd") {
		cfg.BackendCmd = o.backendCmd
	}
	if set("backend-args") {
		cfg.BackendArgs = o.backendArgs
	}
	if set("port-base") {
		cfg.PortBase = o.portBase
	}
	if set("idle-timeout") {
		cfg.IdleTimeoutSec = o.idleTimeout
	}
	if set("reap-interval") {
		cfg.ReapIntervalSec = o.reapEvery
	}
	if set("max-queue-depth") {
		cfg.MaxQueueDepth = o.maxQueue
	}
	if set("max-wait") {
		cfg.MaxWaitSec = o.maxWait
	}
	if set("cors") {
		cfg.CORSEnabled = o.cors
	}
	if set("cors-origins") {
		cfg.CORSOrigins = config.SplitCSV(o.corsOrigins)
	}
	return cfg
}

// resolve builds the effective configuration: defaults, then the config
// file, then the environment, then flags.
func (o *options) resolve(fs *pflag.FlagSet, getenv config.Getenv) (config.Config, error) {
	path := o.configPath
	if !fs.Changed("config") {
		if v := getenv("MODELGATE_CONFIG"); v != "" {
			path = v
		}
	}
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	cfg = config.ApplyEnv(cfg, getenv)
	cfg = o.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newRootCmd(getenv config.Getenv) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "modelgate",
		Short:         "OpenAI-compatible gateway over lazily loaded model backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	opts.bind(root.PersistentFlags())

	runServe := func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.resolve(cmd.Flags(), getenv)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, newLogger(os.Stderr, cfg.LogLevel))
	}
	root.RunE = runServe

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	modelsCmd := &cobra.Command{
		Use:     "models",
		Short:   "List models discovered under the models directory",
		Example: "  modelgate models --models-dir ~/models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd.Flags(), getenv)
			if err != nil {
				return err
			}
			models, err := registry.Discover(cfg.ModelsDir, cfg.ModelSuffix)
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), models)
			return nil
		},
	}

	root.AddCommand(serveCmd, modelsCmd)
	return root
}

// printModels writes the registry as plain, borderless columns.
func printModels(w io.Writer, models []types.Model) {
	rows := make([][]string, 0, len(models))
	for i, m := range models {
		rows = append(rows, []string{strconv.Itoa(i), m.ID, m.Path})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"SLOT", "ID", "PATH"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()
}
