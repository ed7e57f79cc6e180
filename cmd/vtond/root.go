package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vtond/internal/common/fsutil"
	"vtond/internal/config"
)

// flagValues mirrors the command line; only flags the user set are applied.
type flagValues struct {
	configPath    string
	envFile       string
	addr          string
	port          int
	weightsDir    string
	backend       string
	workerBin     string
	workerURL     string
	maxConcurrent int
	maxUploadMB   int
	logLevel      string
	logFormat     string
	traceExporter string
	otlpEndpoint  string
	sampleRate    float64
	corsOrigins   string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&flagValues{}) }

// newRootCmdWith builds the command tree bound to fv.
func newRootCmdWith(fv *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:           "vtond",
		Short:         "Virtual try-on HTTP service",
		Long:          "vtond loads a virtual try-on pipeline once and serves it over HTTP (GET /health, POST /try-on).",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, fv)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Config file (.yaml, .json, .toml); defaults to VTOND_CONFIG")
	pf.StringVar(&fv.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.StringVar(&fv.addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides --port)")
	pf.IntVar(&fv.port, "port", 0, "HTTP port (defaults PORT or 8080)")
	pf.StringVar(&fv.weightsDir, "weights-dir", "", "Pipeline weights directory (defaults FASHN_WEIGHTS_DIR or /weights)")
	pf.StringVar(&fv.backend, "backend", "", "Runtime backend: subprocess|remote")
	pf.StringVar(&fv.workerBin, "worker-bin", "", "Runtime worker binary for the subprocess backend")
	pf.StringVar(&fv.workerURL, "worker-url", "", "Runtime worker URL for the remote backend")
	pf.IntVar(&fv.maxConcurrent, "max-concurrent", 0, "Maximum simultaneous pipeline invocations")
	pf.IntVar(&fv.maxUploadMB, "max-upload-mb", 0, "Maximum /try-on request body in MiB")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error|off")
	pf.StringVar(&fv.logFormat, "log-format", "", "Log format: json|console")
	pf.StringVar(&fv.traceExporter, "trace-exporter", "", "Trace exporter: none|stdout|otlp")
	pf.StringVar(&fv.otlpEndpoint, "otlp-endpoint", "", "OTLP/gRPC collector endpoint, e.g. localhost:4317")
	pf.Float64Var(&fv.sampleRate, "trace-sample-rate", 1, "fraction of root spans exported, in [0,1]")
	pf.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma separated CORS origins; enables CORS when set")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Load the pipeline and serve HTTP (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, fv)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate weights and runtime configuration without serving",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCheck(cmd, fv)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// resolveConfig layers defaults < config file < environment < flags.
func resolveConfig(cmd *cobra.Command, fv *flagValues) (config.Config, error) {
	if err := config.LoadDotEnv(fv.envFile); err != nil {
		return config.Config{}, err
	}
	path := fv.configPath
	if path == "" {
		path = os.Getenv("VTOND_CONFIG")
	}
	cfg, err := config.Resolve(path, os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	set := func(name string) bool { return flags.Changed(name) }
	if set("addr") {
		cfg.Addr = fv.addr
	}
	if set("port") {
		cfg.Port = fv.port
		if !set("addr") {
			cfg.Addr = ""
		}
	}
	if set("weights-dir") {
		cfg.WeightsDir = fv.weightsDir
	}
	if set("backend") {
		cfg.Backend = fv.backend
	}
	if set("worker-bin") {
		cfg.WorkerBin = fv.workerBin
	}
	if set("worker-url") {
		cfg.WorkerURL = fv.workerURL
	}
	if set("max-concurrent") {
		cfg.MaxConcurrent = fv.maxConcurrent
	}
	if set("max-upload-mb") {
		cfg.MaxUploadMB = fv.maxUploadMB
	}
	if set("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if set("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if set("trace-exporter") {
		cfg.TraceExporter = fv.traceExporter
	}
	if set("otlp-endpoint") {
		cfg.OTLPEndpoint = fv.otlpEndpoint
	}
	if set("trace-sample-rate") {
		cfg.TraceSampleRate = fv.sampleRate
	}
	if set("cors-origins") {
		cfg.CORSOrigins = config.SplitCSV(fv.corsOrigins)
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
	if dir, err := fsutil.ExpandHome(cfg.WeightsDir); err == nil {
		cfg.WeightsDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
