// Command export-rollup writes the dashboard rollup, budget tiers and due-soon
// list of the stored records to an Excel workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/config"
	"github.com/garyjia/record-review/internal/infrastructure/export"
	"github.com/garyjia/record-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/record-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/record-review/migrations"
	"github.com/garyjia/record-review/pkg/database"
	"github.com/garyjia/record-review/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to the YAML config file")
		types      = flag.String("type", "", "comma separated record types, e.g. TRIP,TENDER")
		groupBy    = flag.String("group-by", "status", "status, category, super_group or record_type")
		branch     = flag.String("branch", "", "only records of this branch")
		region     = flag.String("region", "", "only records of this region")
		out        = flag.String("out", "", "output file; defaults to export.output_dir/rollup-<time>.xlsx")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, rollupQuery(*types, *groupBy, *branch, *region), *out); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
}

func rollupQuery(types, groupBy, branch, region string) service.RollupQuery {
	q := service.RollupQuery{
		GroupBy: groupBy,
		Branch:  branch,
		Region:  region,
	}
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			q.Types = append(q.Types, strings.ToUpper(t))
		}
	}
	return q
}

func run(cfg *config.Config, logger *zap.Logger, query service.RollupQuery, out string) error {
	db, err := database.New(database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	var schema fs.FS = migrations.FS
	if cfg.Database.MigrationsDir != "" {
		schema = os.DirFS(cfg.Database.MigrationsDir)
	}
	if err := database.NewMigrator(db, logger).RunMigrations(ctx, schema); err != nil {
		return err
	}

	ceilings, err := cfg.BudgetCeilings()
	if err != nil {
		return err
	}

	repo := repository.NewRecordRepository(sqlite.NewDB(db.DB, logger), logger)
	reports := service.NewReportService(repo, utils.NewKVLogger(logger), service.ReportServiceConfig{
		Ceilings:      ceilings,
		DueSoonWindow: cfg.Service.DueSoonWindow,
	}, nil, nil)

	dash, err := reports.Dashboard(ctx, query)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	now := dash.GeneratedAt.UTC()
	if out == "" {
		if err := os.MkdirAll(cfg.Export.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		out = filepath.Join(cfg.Export.OutputDir, fmt.Sprintf("rollup-%s.xlsx", now.Format("20060102-150405")))
	}

	return export.NewExcelExporter(logger).Save(out, export.Report{
		Rollup:      dash.Rollup,
		Budget:      dash.Budget,
		DueSoon:     dash.DueSoon,
		GeneratedAt: now,
	})
}
