package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
	consts "github.com/khanhnv2901/phishcheck/internal/shared/constants"
)

const (
	reportFormatMarkdown = "md"
	reportFormatPDF      = "pdf"
	reportTimeLayout     = "2006-01-02 15:04:05 MST"
	maxPDFResults        = 200
)

var runsReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render a saved run as a Markdown or PDF report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(strings.TrimSpace(format))

		var filename string
		switch format {
		case reportFormatMarkdown:
			filename = "report.md"
		case reportFormatPDF:
			filename = "report.pdf"
		default:
			return fmt.Errorf("unsupported report format %q (use md or pdf)", format)
		}

		repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}
		run, err := repo.FindByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var content []byte
		if format == reportFormatPDF {
			content, err = generatePDFReportBytes(run)
			if err != nil {
				return fmt.Errorf("failed to render PDF report: %w", err)
			}
		} else {
			content = []byte(generateMarkdownReport(run))
		}

		reportPath, _ := cmd.Flags().GetString("output")
		if reportPath == "" {
			reportPath, err = resolveResultsPath(appCtx.ResultsDir, run.ID(), filename)
			if err != nil {
				return err
			}
		}
		if err := os.WriteFile(reportPath, content, consts.DefaultFilePerm); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorSuccess("Report generated:"), reportPath)
		return nil
	},
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format(reportTimeLayout)
}

// generateMarkdownReport renders the run summary followed by one section per URL.
func generateMarkdownReport(run *evaluation.Run) string {
	meta := run.Metadata()
	var b strings.Builder

	fmt.Fprintf(&b, "# Phishing Risk Report: %s\n\n", run.ID())
	fmt.Fprintf(&b, "- **Status:** %s\n", run.Status())
	if run.Operator() != "" {
		fmt.Fprintf(&b, "- **Operator:** %s\n", run.Operator())
	}
	fmt.Fprintf(&b, "- **Started:** %s\n", formatReportTime(run.StartedAt()))
	fmt.Fprintf(&b, "- **Completed:** %s\n\n", formatReportTime(run.CompletedAt()))

	b.WriteString("## Summary\n\n")
	b.WriteString("| URLs | Flagged | Highest score |\n")
	b.WriteString("|------|---------|---------------|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", meta.TotalURLs, meta.FlaggedURLs, meta.HighestScore)

	b.WriteString("## Results\n\n")
	for _, res := range run.Results() {
		fmt.Fprintf(&b, "### %s\n\n", reportTarget(res))
		fmt.Fprintf(&b, "- **Score:** %d (%d warnings)\n", res.Score, res.Warnings())
		if res.FinalURL != "" && res.FinalURL != res.URL {
			fmt.Fprintf(&b, "- **Final URL:** %s\n", res.FinalURL)
		}
		if res.Certificate != nil {
			fmt.Fprintf(&b, "- **Certificate age:** %d years\n", res.Certificate.AgeYears)
		}
		b.WriteString("\n")
		for _, f := range res.Findings {
			fmt.Fprintf(&b, "- %s\n", f.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func reportTarget(res evaluation.Result) string {
	if res.URL != "" {
		return res.URL
	}
	return res.Domain
}

// pdfFindingLabel replaces the finding glyphs, which the core PDF fonts lack.
func pdfFindingLabel(f evaluation.Finding) string {
	if f.Severity == evaluation.SeverityOK {
		return "[OK] " + f.Message
	}
	return "[WARN] " + f.Message
}

func generatePDFReportBytes(run *evaluation.Run) ([]byte, error) {
	meta := run.Metadata()
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Phishing Risk Report: %s", run.ID())), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Status: %s", run.Status())), "", 1, "", false, 0, "")
	if run.Operator() != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Operator: %s", run.Operator())), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", formatReportTime(run.StartedAt())), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", formatReportTime(run.CompletedAt())), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("URLs: %d | Flagged: %d | Highest score: %d",
		meta.TotalURLs, meta.FlaggedURLs, meta.HighestScore), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Results", "", 1, "", false, 0, "")
	pdf.Ln(2)

	results := run.Results()
	for i, res := range results {
		if i == maxPDFResults {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d additional URLs omitted ...", len(results)-maxPDFResults), "", 1, "", false, 0, "")
			break
		}

		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - score %d", reportTarget(res), res.Score)), "", 1, "", true, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Warnings: %d", res.Warnings()), "", 1, "", false, 0, "")
		if res.Certificate != nil {
			pdf.CellFormat(0, 5, fmt.Sprintf("Certificate age: %d years", res.Certificate.AgeYears), "", 1, "", false, 0, "")
		}
		for _, f := range res.Findings {
			pdf.MultiCell(0, 5, tr(pdfFindingLabel(f)), "", "", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	runsReportCmd.Flags().String("format", reportFormatMarkdown, "report format: md or pdf")
	runsReportCmd.Flags().StringP("output", "o", "", "write the report here instead of the run directory")
	runsCmd.AddCommand(runsReportCmd)
}
