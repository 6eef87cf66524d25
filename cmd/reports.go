package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/api"
	"github.com/sells-group/esg-insight/internal/report"
	"github.com/sells-group/esg-insight/pkg/llm"
)

var reportsPort int

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Start the report drafting API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic.key is required for the drafting server")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := llm.NewClient(cfg.Anthropic.Key,
			llm.WithRateLimit(cfg.Anthropic.RatePerSec, cfg.Anthropic.RateBurst),
		)
		svc := report.NewService(st, client, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens))

		if reportsPort > 0 {
			cfg.Server.ReportsPort = reportsPort
		}

		srv := api.NewReportsServer(cfg, svc)
		zap.L().Info("starting drafting server", zap.Int("port", cfg.Server.ReportsPort))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	reportsCmd.Flags().IntVar(&reportsPort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(reportsCmd)
}
