package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/config"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/mmap"
)

var version = "0.1.0"

// app carries what PersistentPreRunE sets up for every command.
type app struct {
	configFile string
	logLevel   string
	cfg        *config.Config
	log        *zap.Logger
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata - columnar memory toolkit",
		Long: `Strata builds, validates and inspects Arrow-compatible columnar arrays.
The CLI parses type formats, encodes and decodes schema metadata,
compresses buffer bodies and inspects Arrow IPC streams.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", os.Getenv("STRATA_CONFIG"), "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Strata v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(
		newSchemaCommand(a),
		newMetadataCommand(),
		newBodyCommand(a),
		newIPCCommand(a),
		newConfigCommand(a),
	)
	return root
}

// setup loads the configuration, then installs the logger and the default
// allocator it describes.
func (a *app) setup() error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}

	alloc, collector, err := cfg.NewAllocator()
	if err != nil {
		return err
	}
	if collector != nil {
		if err := collector.Register(prometheus.DefaultRegisterer); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	memory.SetDefaultAllocator(alloc)

	a.cfg = cfg
	a.log = logger.Named("cli")
	a.log.Debug("configuration loaded",
		zap.String("config", a.configFile),
		zap.String("allocator", cfg.Memory.Allocator),
		zap.String("validation", cfg.Validation.Level))
	return nil
}

// readInput maps the file at path into out, or reads standard input for "-".
func readInput(cmd *cobra.Command, path string, out *memory.Buffer) error {
	if path != "-" {
		return mmap.MapFile(path, out)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	out.Reset()
	return out.Append(data)
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec
}
