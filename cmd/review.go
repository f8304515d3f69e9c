package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/pf-reconciler/internal/report"
)

const (
	PromptSummary       = "Show summary"
	PromptMatches       = "Show confirmed matches"
	PromptDiscrepancies = "Show discrepancies"
	PromptCoverage      = "Show coverage gaps"
	PromptContributions = "Show PF contributions"
	PromptReportToFile  = "Dump report to file"
	PromptExit          = "Exit"
	PromptBack          = "back"
)

var errExit = errors.New("exit requested")

var reviewPrompt = promptui.Select{
	Label: "Review the report",
	Items: []string{PromptSummary, PromptMatches, PromptDiscrepancies, PromptCoverage, PromptContributions, PromptReportToFile, PromptExit},
}

// reviewReport runs the interactive loop until the user exits.
func reviewReport(rep *report.Report, logger *zap.Logger) error {
	for {
		_, action, err := reviewPrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return errExit
			}
			return err
		}

		if err := handleAction(action, rep, logger); err != nil {
			return err
		}
	}
}

func handleAction(action string, rep *report.Report, logger *zap.Logger) error {
	switch action {
	case PromptSummary:
		pretty, _ := json.MarshalIndent(rep.Summary, "", "  ")
		logger.Info(string(pretty), zap.String("report_id", rep.ID))
		return nil
	case PromptMatches:
		return browseItems("Confirmed matches", rep.Matches, logger)
	case PromptDiscrepancies:
		return browseItems("Discrepancies", rep.Discrepancies, logger)
	case PromptCoverage:
		for _, gap := range rep.Coverage.Gaps {
			logger.Info("uncorroborated period",
				zap.Stringer("start", gap.Start),
				zap.Stringer("end", gap.End),
				zap.Int("days", gap.Days),
			)
		}
		logger.Info("coverage",
			zap.Int("claimed_days", rep.Coverage.ClaimedDays),
			zap.Int("corroborated_days", rep.Coverage.CorroboratedDays),
			zap.Float64("ratio", rep.Coverage.Ratio),
			zap.Int("gaps", len(rep.Coverage.Gaps)),
		)
		return nil
	case PromptContributions:
		pretty, _ := json.MarshalIndent(rep.Contributions, "", "  ")
		logger.Info(string(pretty), zap.Int("accounts", rep.Contributions.Accounts))
		return nil
	case PromptReportToFile:
		filename, err := rep.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// browseItems lets the user pick findings one by one and prints the chosen one.
func browseItems(label string, items []report.Item, logger *zap.Logger) error {
	if len(items) == 0 {
		logger.Info("nothing to show", zap.String("section", label))
		return nil
	}

	labels := make([]string, 0, len(items)+1)
	for i, item := range items {
		labels = append(labels, itemTitle(i, item))
	}

	itemPrompt := promptui.Select{
		Label: fmt.Sprintf("%s: choose a finding and press ENTER", label),
		Items: append(labels, PromptBack),
	}

	for {
		idx, selected, err := itemPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		pretty, _ := json.MarshalIndent(items[idx], "", "  ")
		logger.Info(string(pretty), zap.String("label", string(items[idx].Classification.Label)))
	}
}

func itemTitle(i int, item report.Item) string {
	employer := func(r *report.Record) string {
		if r == nil {
			return "-"
		}
		return fmt.Sprintf("%s (%s - %s)", r.Employer, r.Start, r.End)
	}
	return fmt.Sprintf("%d %s: %s / %s", i+1, item.Classification.Label, employer(item.CV), employer(item.PF))
}
