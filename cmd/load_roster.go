package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/db"
	"github.com/sells-group/esg-insight/internal/roster"
	"github.com/sells-group/esg-insight/internal/store"
)

var loadRosterCmd = &cobra.Command{
	Use:   "load-roster",
	Short: "Seed the classifications table from the roster workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ros, err := roster.Load(cfg.Roster.Path, cfg.Roster.Sheet)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		pg, ok := st.(*store.PostgresStore)
		if !ok {
			return eris.New("load-roster requires the postgres driver")
		}

		records := ros.Classifications()
		rows := make([][]any, 0, len(records))
		for _, c := range records {
			rows = append(rows, []any{c.Company, c.IndustryCode, c.IndustryName})
		}

		n, err := db.BulkUpsert(cmd.Context(), pg.Pool(), db.UpsertConfig{
			Table:        "classifications",
			Columns:      []string{"company", "industry_code", "industry_name"},
			ConflictKeys: []string{"company"},
		}, rows)
		if err != nil {
			return err
		}

		zap.L().Info("roster loaded",
			zap.Int("workbook_rows", ros.Len()),
			zap.Int64("classifications_upserted", n),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadRosterCmd)
}
