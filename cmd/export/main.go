// Command export fetches the selected series, runs the alignment pipeline,
// and writes the result to a CSV or XLSX file. Exit code 0 on success (fetch
// warnings are logged, not fatal), 1 on any hard failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"macropulse/internal/config"
	"macropulse/internal/exporter"
	"macropulse/internal/fred"
	"macropulse/internal/infrastructure"
	"macropulse/internal/pipeline"
	"macropulse/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "config.yaml", "path to YAML config file")
	seriesFlag := flag.String("series", "", "comma-separated series labels (default: all registered)")
	startFlag := flag.String("start", "", "start date (YYYY-MM-DD, default from config)")
	endFlag := flag.String("end", "", "end date (YYYY-MM-DD, default today)")
	pctChange := flag.Bool("pct-change", false, "add percent-change columns")
	normalize := flag.Bool("normalize", false, "z-score normalize all columns")
	format := flag.String("format", "csv", "output format: csv or xlsx")
	out := flag.String("out", "macropulse.csv", "output file path")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	labels := cfg.Series.Labels()
	if *seriesFlag != "" {
		labels = nil
		for _, label := range strings.Split(*seriesFlag, ",") {
			if label = strings.TrimSpace(label); label != "" {
				labels = append(labels, label)
			}
		}
	}

	start := cfg.FRED.DefaultStart
	if *startFlag != "" {
		start = *startFlag
	}
	startDate, err := time.Parse(pipeline.DateLayout, start)
	if err != nil {
		return fmt.Errorf("bad start date %q: %w", start, err)
	}
	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *endFlag != "" {
		endDate, err = time.Parse(pipeline.DateLayout, *endFlag)
		if err != nil {
			return fmt.Errorf("bad end date %q: %w", *endFlag, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := fred.NewClient(cfg.FRED, logger, nil)
	cache := fred.NewCache(client, cfg.FRED.CacheTTL, nil)
	service := services.NewDataService(cache, cfg.Series, cfg.FRED.MaxParallel, logger, nil, nil)

	result, err := service.GetTable(ctx, services.TableRequest{
		Labels:    labels,
		Start:     startDate,
		End:       endDate,
		PctChange: *pctChange,
		Normalize: *normalize,
	})
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		logger.Warn("series skipped",
			slog.String("label", warning.Label),
			slog.String("cause", warning.Err.Error()))
	}
	for _, d := range result.Degenerate {
		logger.Warn("column not normalized", slog.String("column", d.Column))
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	switch *format {
	case "csv":
		err = exporter.WriteCSV(file, result.Table)
	case "xlsx":
		err = exporter.WriteXLSX(file, result.Table)
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", *format)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", *format, err)
	}

	logger.Info("export complete",
		slog.String("file", *out),
		slog.Int("rows", result.Table.NumRows()),
		slog.Int("columns", len(result.Table.Columns)),
		slog.Int("warnings", len(result.Warnings)))
	return nil
}
