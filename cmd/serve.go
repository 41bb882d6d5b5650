package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Commerce-Router/agent/api"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/transport"
	configx "github.com/tanpawarit/Chative-Commerce-Router/pkg/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve turns over HTTP, and over NATS when NATS_URL is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	apiCfg, err := configx.New[api.Config]("HTTP")
	if err != nil {
		return err
	}
	var opts []api.Option
	if app.Graph != nil && app.QStash != nil {
		opts = append(opts, api.WithEpisodeCallback(app.Graph, app.QStash, app.MemoryCfg.CallbackURL))
	}
	server, err := api.NewServer(*apiCfg, app.Coordinator, opts...)
	if err != nil {
		return err
	}

	natsCfg, err := configx.New[transport.Config]("NATS")
	if err != nil {
		return err
	}
	if natsCfg.Enabled() {
		nt, err := transport.NewNATSTransport(*natsCfg, app.Coordinator)
		if err != nil {
			return err
		}
		defer nt.Close()
		if err := nt.Start(); err != nil {
			return err
		}
	}

	err = server.ListenAndServe(ctx)
	log.Info().Msg("router stopped")
	return err
}
