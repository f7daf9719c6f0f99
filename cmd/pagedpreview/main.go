// Command pagedpreview splits HTML into pages the way the PDF generator will
// print them and renders the pages for preview.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gompdf/pagedpreview/internal/config"
	"github.com/gompdf/pagedpreview/pkg/api"
)

// Version information (set at build time)
var version = "dev"

type globalFlags struct {
	configFile string
	envFiles   []string
	logLevel   string
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "pagedpreview",
		Short: "Paginated HTML preview",
		Long: `pagedpreview measures the top-level blocks of an HTML document at the
content width of a page, packs them greedily into pages and renders each
page as a fixed-size frame with optional page numbers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file (default ./"+config.DefaultFile+")")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every measured block")

	root.AddCommand(
		newPaginateCommand(flags),
		newServeCommand(flags),
		newSizesCommand(),
		newConfigCommand(),
	)
	return root
}

// load reads the configuration and builds the logger it names.
func (f *globalFlags) load() (*config.Config, zerolog.Logger, error) {
	if err := config.LoadEnv(f.envFiles...); err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func (f *globalFlags) options(cfg *config.Config, logger zerolog.Logger) (api.Options, error) {
	o, err := cfg.Options(logger)
	if err != nil {
		return api.Options{}, err
	}
	o.Debug = f.verbose
	return o, nil
}
