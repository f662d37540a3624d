// Command inspect fills in a property inspection from the terminal and saves it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/prompt"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	templatePath := flag.String("template", "", "checklist template YAML file (default checklist when empty)")
	duckPath := flag.String("db", "", "DuckDB file to save into (in-memory when empty)")
	outPath := flag.String("out", "", "write the saved inspection as JSON to this file (stdout when empty)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.Must(logger.New(*logLevel))
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, *templatePath, *duckPath, *outPath); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(os.Stderr, "Vistoria cancelada.")
			os.Exit(130)
		}
		log.Error("inspection failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, templatePath, duckPath, outPath string) error {
	tmpl := checklist.DefaultTemplate()
	if templatePath != "" {
		loaded, err := checklist.LoadTemplate(templatePath)
		if err != nil {
			return err
		}
		tmpl = loaded
	}

	var repo repository.Repository = repository.NewMemoryRepository()
	if duckPath != "" {
		duck, err := repository.NewDuckRepository(duckPath, logger.Named(log, "duckdb"))
		if err != nil {
			return err
		}
		repo = duck
	}
	defer repo.Close()

	form := inspection.NewForm(tmpl.Items)
	if err := prompt.Collect(ctx, prompt.NewSurveyDriver(), form); err != nil {
		return err
	}

	var notice inspection.Notification
	capture := inspection.NotifierFunc(func(_ context.Context, n inspection.Notification) { notice = n })
	record, err := form.Submit(ctx, repo, inspection.Multi(inspection.NewLogNotifier(log), capture))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", notice.Title, notice.Description, notice.InspectionID)

	return writeRecord(record, outPath)
}

func writeRecord(record *models.Inspection, outPath string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0644)
}
