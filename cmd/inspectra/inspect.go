package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webinspectra/go-webinspectra/internal/browser"
	"github.com/webinspectra/go-webinspectra/internal/logging"
	"github.com/webinspectra/go-webinspectra/internal/models"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
	"github.com/webinspectra/go-webinspectra/pkg/inspectra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Inspect one or more URLs and report detected technologies",
		Example: "  inspectra inspect --target https://example.com --by-category",
		RunE:    runInspect,
	}

	cmd.Flags().StringSlice("target", nil, "Target URL (repeatable)")
	cmd.Flags().Bool("by-category", false, "Group the report by technology category")
	cmd.Flags().Bool("json", false, "Emit the report as JSON")
	cmd.Flags().String("output", "", "Write output to a file instead of stdout")
	cmd.Flags().Int("timeout", 30, "Per-URL inspection timeout in seconds")
	cmd.Flags().Int("workers", 0, "Concurrent matcher workers (0 = number of CPUs)")
	cmd.Flags().Bool("static", false, "Fetch with plain HTTP instead of a headless browser (no JS/DOM signals)")
	cmd.Flags().Bool("fetch-scripts", false, "Download external script bodies for script signatures")
	cmd.Flags().Bool("no-dns", false, "Skip DNS record collection")
	cmd.Flags().Bool("no-robots", false, "Skip robots.txt collection")
	cmd.Flags().String("user-agent", "", "Override the browser user agent")

	for _, flag := range []string{
		"target", "by-category", "json", "output", "timeout", "workers",
		"static", "fetch-scripts", "no-dns", "no-robots", "user-agent",
	} {
		_ = viper.BindPFlag("inspect."+flag, cmd.Flags().Lookup(flag))
	}
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	targets := viper.GetStringSlice("inspect.target")
	targets = append(targets, args...)
	if len(targets) == 0 {
		return errors.New("please provide at least one --target")
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	inspector, err := buildInspector(log)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path := viper.GetString("inspect.output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	timeout := time.Duration(viper.GetInt("inspect.timeout")) * time.Second

	// Per-URL failures are reported without aborting the batch; the
	// exit status reflects whether anything failed.
	var failed int
	for _, target := range targets {
		if err := inspectOne(cmd.Context(), inspector, target, timeout, out); err != nil {
			failed++
			log.WithField("url", target).Errorf("inspection failed: %v", err)
			fmt.Fprintf(os.Stderr, "%s: %v\n", target, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inspections failed", failed, len(targets))
	}
	return nil
}

func inspectOne(parent context.Context, inspector *inspectra.Inspector, target string, timeout time.Duration, out io.Writer) error {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var report *models.Report
	var err error
	if viper.GetBool("inspect.static") {
		report, err = inspectStatic(ctx, inspector, target)
	} else {
		report, err = inspector.InspectURL(ctx, target)
	}
	if err != nil {
		return err
	}

	if viper.GetBool("inspect.json") {
		return writeJSON(out, inspector, report)
	}
	renderReport(out, inspector, report)
	return nil
}

// inspectStatic fetches the page with a plain HTTP GET and builds the
// bundle from the raw response.
func inspectStatic(ctx context.Context, inspector *inspectra.Inspector, target string) (*models.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if ua := viper.GetString("inspect.user-agent"); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return inspector.InspectResponse(ctx, target, resp.Header, body)
}

func writeJSON(out io.Writer, inspector *inspectra.Inspector, report *models.Report) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if viper.GetBool("inspect.by-category") {
		return encoder.Encode(struct {
			RunID      string                 `json:"runId"`
			URL        string                 `json:"url,omitempty"`
			Categories []models.CategoryGroup `json:"categories"`
			Count      int                    `json:"count"`
		}{report.RunID, report.URL, inspector.ByCategory(report), report.Count})
	}
	return encoder.Encode(report)
}

func renderReport(out io.Writer, inspector *inspectra.Inspector, report *models.Report) {
	pterm.DefaultSection.WithWriter(out).Printf("%s: %d technologies", report.URL, report.Count)

	if viper.GetBool("inspect.by-category") {
		for _, group := range inspector.ByCategory(report) {
			pterm.DefaultParagraph.WithWriter(out).Println(pterm.Bold.Sprint(group.Name))
			renderTable(out, group.Technologies)
		}
		return
	}

	names := make([]string, 0, len(report.Technologies))
	for name := range report.Technologies {
		names = append(names, name)
	}
	sort.Strings(names)
	detections := make([]*models.Detection, 0, len(names))
	for _, name := range names {
		detections = append(detections, report.Technologies[name])
	}
	renderTable(out, detections)
}

func renderTable(out io.Writer, detections []*models.Detection) {
	rows := pterm.TableData{{"Technology", "Versions", "Confidence", "Categories"}}
	for _, det := range detections {
		name := det.Name
		if det.Implied {
			name += " (implied)"
		}
		rows = append(rows, []string{
			name,
			strings.Join(det.Versions, ", "),
			fmt.Sprintf("%d", det.Confidence),
			strings.Join(det.Categories, ", "),
		})
	}
	_ = pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(rows).Render()
}

func newLogger() (*logrus.Logger, error) {
	return logging.New(logging.Config{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
		File:   viper.GetString("log-file"),
	})
}

// buildInspector assembles inspector options from global and inspect
// flags.
func buildInspector(log *logrus.Logger) (*inspectra.Inspector, error) {
	options := []inspectra.Option{
		inspectra.WithLogger(log),
		inspectra.WithWorkers(viper.GetInt("inspect.workers")),
		inspectra.WithBrowser(browser.Config{
			UserAgent:    viper.GetString("inspect.user-agent"),
			FetchScripts: viper.GetBool("inspect.fetch-scripts"),
			SkipDNS:      viper.GetBool("inspect.no-dns"),
			SkipRobots:   viper.GetBool("inspect.no-robots"),
		}),
	}
	if dir := viper.GetString("signatures"); dir != "" {
		options = append(options, inspectra.WithSignatureDir(dir))
	} else if url := viper.GetString("signatures-url"); url != "" {
		options = append(options, inspectra.WithRemoteSignatures(signatures.RemoteConfig{SignaturesURL: url}))
	}
	return inspectra.New(options...)
}
