package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/api"
	"github.com/sells-group/esg-insight/internal/roster"
	"github.com/sells-group/esg-insight/pkg/market"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ros, err := roster.Load(cfg.Roster.Path, cfg.Roster.Sheet)
		if err != nil {
			return err
		}
		zap.L().Info("roster loaded", zap.Int("companies", ros.Len()))

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		srv, err := api.NewServer(cfg, st, ros, market.NewService(cfg.Market.TickerSuffix))
		if err != nil {
			return err
		}

		zap.L().Info("starting analytics server", zap.Int("port", cfg.Server.Port))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
