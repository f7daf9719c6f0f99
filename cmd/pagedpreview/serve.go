package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gompdf/pagedpreview/internal/config"
	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/server"
	"github.com/gompdf/pagedpreview/pkg/api"
)

func newServeCommand(global *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the preview service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			options, err := global.options(cfg, logger)
			if err != nil {
				return err
			}
			p, err := api.NewWithOptions(options)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := server.New(p, server.Config{
				BodyLimit:    cfg.Server.BodyLimit,
				PassTimeout:  cfg.Server.PassTimeout,
				AllowOrigins: cfg.Server.AllowOrigins,
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address override")
	return cmd
}

func newSizesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List page sizes in CSS pixels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIZE\tWIDTH\tHEIGHT")
			for _, s := range geometry.Sizes() {
				fmt.Fprintf(w, "%s\t%g\t%g\n", s.Name, s.Width, s.Height)
			}
			return w.Flush()
		},
	}
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
