package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/intake"
	"github.com/spigell/pf-reconciler/internal/logger"
	"github.com/spigell/pf-reconciler/internal/narrative"
	"github.com/spigell/pf-reconciler/internal/narrative/gemini"
	"github.com/spigell/pf-reconciler/internal/normalize"
	"github.com/spigell/pf-reconciler/internal/reconcile"
	"github.com/spigell/pf-reconciler/internal/report"
	"github.com/spigell/pf-reconciler/internal/secrets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <records.yaml>",
	Short: "Reconcile CV records against PF records and print the report",
	Long: `Reconcile reads a document with "cv" and "pf" record lists, pairs the
records and prints a structured report. Use "-" to read the document from stdin.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	defaults := reconcile.DefaultConfig()

	reconcileCmd.Flags().StringP("format", "f", "json", "report format: json or yaml")
	reconcileCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	reconcileCmd.Flags().String("as-of", "", "date that ongoing records end at (default is as_of of the document or the run date)")
	reconcileCmd.Flags().Float64("acceptance-floor", defaults.AcceptanceFloor, "minimum confidence for a pair to be accepted")
	reconcileCmd.Flags().Float64("identity-threshold", defaults.IdentityThreshold, "minimum identity score for employers to be the same")
	reconcileCmd.Flags().Int("workers", defaults.Workers, "number of scoring workers (0 means one per CPU)")
	reconcileCmd.Flags().StringSlice("disable-step", nil, "screening steps to skip, e.g. employer_identity")
	reconcileCmd.Flags().Bool("narrate", false, "explain the report with the configured AI provider")
	reconcileCmd.Flags().BoolP("review", "r", false, "browse the report interactively after it is written")

	viper.BindPFlag("output.format", reconcileCmd.Flags().Lookup("format"))
	viper.BindPFlag("output.file", reconcileCmd.Flags().Lookup("output"))
	viper.BindPFlag("reconcile.acceptance-floor", reconcileCmd.Flags().Lookup("acceptance-floor"))
	viper.BindPFlag("reconcile.identity-threshold", reconcileCmd.Flags().Lookup("identity-threshold"))
	viper.BindPFlag("reconcile.workers", reconcileCmd.Flags().Lookup("workers"))
	viper.BindPFlag("reconcile.disabled-steps", reconcileCmd.Flags().Lookup("disable-step"))
	viper.BindPFlag("ai.enabled", reconcileCmd.Flags().Lookup("narrate"))
}

// run reconciles the document at path and writes the report.
func run(cmd *cobra.Command, path string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the pf-reconciler", zap.String("version", version))

	format, err := report.ParseFormat(config.Output.Format)
	if err != nil {
		logger.Fatal("choosing a report format", zap.Error(err))
	}

	doc, err := intake.Load(path)
	if err != nil {
		logger.Fatal("loading records", zap.String("path", path), zap.Error(err))
	}

	asOf, err := resolveAsOf(cmd.Flag("as-of").Value.String(), doc.AsOf, time.Now())
	if err != nil {
		logger.Fatal("resolving as-of date", zap.Error(err))
	}
	config.Reconcile.AsOf = asOf

	engine, err := reconcile.New(config.Reconcile,
		reconcile.WithLogger(logger),
		reconcile.WithNameCache(normalize.NewCache()),
	)
	if err != nil {
		logger.Fatal("creating the engine", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(engine.Config(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	res, err := engine.Reconcile(ctx, doc.CV, doc.PF)
	if err != nil {
		if errors.Is(err, employment.ErrInput) {
			logger.Fatal("rejecting records", zap.Error(err), zap.String("hint", "the document needs both a cv and a pf list"))
		}
		logger.Fatal("reconciling records", zap.Error(err))
	}

	rep, err := report.Assemble(res)
	if err != nil {
		logger.Fatal("assembling the report", zap.Error(err))
	}

	if err := writeReport(cmd, rep, format, config.Output.File); err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	logger.Info("report is ready",
		zap.String("report_id", rep.ID),
		zap.String("status", string(rep.Summary.Status)),
		zap.Float64("verification_percentage", rep.Summary.VerificationPercentage),
		zap.Float64("coverage_ratio", rep.Coverage.Ratio),
	)

	if config.AI.Enabled {
		if err := narrate(ctx, &config.AI, rep, logger); err != nil {
			logger.Warn("skipping the narrative", zap.Error(err))
		}
	}

	if review, _ := cmd.Flags().GetBool("review"); review {
		if err := reviewReport(rep, logger); err != nil && !errors.Is(err, errExit) {
			logger.Fatal("reviewing the report", zap.Error(err))
		}
	}
}

// resolveAsOf prefers the flag over the document value and falls back to the
// run date, so ongoing periods always run until today. An unparsable flag is
// an error.
func resolveAsOf(flag string, fromDocument employment.Date, now time.Time) (employment.Date, error) {
	if strings.TrimSpace(flag) == "" {
		if fromDocument.Known() {
			return fromDocument, nil
		}
		return employment.FromTime(now), nil
	}
	asOf := employment.ParseDate(flag)
	if !asOf.Known() {
		return employment.Date{}, employment.NewInputError("as-of", fmt.Sprintf("cannot read date %q", flag))
	}
	return asOf, nil
}

func writeReport(cmd *cobra.Command, rep *report.Report, format report.Format, file string) error {
	if file == "" {
		return report.Write(cmd.OutOrStdout(), rep, format)
	}

	data, err := report.Marshal(rep, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("write report to %s: %w", file, err)
	}
	return nil
}

func narrate(ctx context.Context, cfg *AIConfig, rep *report.Report, logger *zap.Logger) error {
	narrator, err := newNarrator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building narrator: %w", err)
	}

	story, err := narrator.Narrate(ctx, rep)
	if err != nil {
		return err
	}

	logger.Info("report narrative",
		zap.String("report_id", story.ReportID),
		zap.String("verdict", string(story.Status)),
		zap.String("summary", story.Summary),
		zap.String("analysis", story.Analysis),
	)
	return nil
}

func newNarrator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (narrative.Narrator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or PF_RECONCILER_GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	if err != nil {
		return nil, err
	}

	narratorLogger := logger.WithProviderFields(log, "gemini", generator.Model())

	return gemini.NewNarrator(generator, cfg.Gemini.MaxLogLength, narratorLogger), nil
}
