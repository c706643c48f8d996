package main

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/automl/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form-based interface and the JSON API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			p, err := a.cfg.Pipeline()
			if err != nil {
				return err
			}
			s, err := server.New(p, server.WithMaxUploadMB(a.cfg.Server.MaxUploadMB))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
			return s.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides the config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides the config)")
	return cmd
}
