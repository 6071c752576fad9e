package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statesdb/internal/audit"
	"statesdb/internal/datasource"
	"statesdb/internal/datasource/file"
	"statesdb/internal/fetch"
	"statesdb/internal/pipeline"
)

func (a *app) ingestCmd() *cobra.Command {
	var (
		locators    []string
		saveDir     string
		mirrorDir   string
		resumeAfter string
		workers     int
		reportPath  string
		withAudit   bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, normalize and load every sovereign country",
		Long: `Runs one ingestion: discovers the country pages from the sovereign-state list
(or uses --locator), loads each country in its own transaction, resolves
deferred borders, flags countries no longer listed as stale and rebuilds the
indexes. The run report is printed to stdout as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("locator") {
				a.cfg.Source.Locators = locators
			}
			if f.Changed("save") {
				a.cfg.Source.SaveDir = saveDir
			}
			if f.Changed("mirror") {
				a.cfg.Source.MirrorDir = mirrorDir
			}
			if f.Changed("resume-after") {
				a.cfg.Runtime.ResumeAfter = resumeAfter
			}
			if f.Changed("workers") {
				a.cfg.Runtime.Workers = workers
			}
			if err := a.checkConfig(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flush, err := a.installMetrics()
			if err != nil {
				return err
			}
			defer flush()

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			src, err := a.source()
			if err != nil {
				return err
			}
			opts, err := pipeline.OptionsFromConfig(a.cfg)
			if err != nil {
				return err
			}
			p, err := pipeline.New(src, s, opts, a.log.Named("pipeline"))
			if err != nil {
				return err
			}

			rep, runErr := p.Run(ctx)
			if reportPath != "" {
				if err := writeReport(reportPath, rep); err != nil {
					a.log.Warn("report not written", zap.String("path", reportPath), zap.Error(err))
				}
			}
			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if withAudit && !rep.Cancelled {
				ar, err := audit.New(s, a.log.Named("audit")).Run(ctx, rep.Anomalies)
				if err != nil {
					return err
				}
				return ar.WriteText(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&locators, "locator", nil, "country page to ingest instead of discovering the list (repeatable)")
	f.StringVar(&saveDir, "save", "", "save every fetched page into this mirror directory")
	f.StringVar(&mirrorDir, "mirror", "", "replay pages from this mirror directory instead of the network")
	f.StringVar(&resumeAfter, "resume-after", "", "skip countries scraped at or after this RFC3339 time")
	f.IntVar(&workers, "workers", 0, "fetch/normalize workers (overrides runtime.workers)")
	f.StringVar(&reportPath, "report", "", "also write the run report to this file")
	f.BoolVar(&withAudit, "audit", false, "run the integrity audit after a successful ingest")
	return cmd
}

// source builds the page source: a mirror replay, or the live fetcher,
// optionally recording into a mirror.
func (a *app) source() (datasource.Source, error) {
	sc := a.cfg.Source
	if sc.MirrorDir != "" {
		a.log.Info("replaying from mirror", zap.String("dir", sc.MirrorDir))
		return file.NewMirror(sc.MirrorDir), nil
	}
	fc := a.cfg.Fetch
	f, err := fetch.New(fetch.Config{
		BaseURL:               sc.BaseURL,
		UserAgent:             fc.UserAgent,
		Timeout:               fc.Timeout,
		MaxRetries:            fc.MaxRetries,
		InitialBackoff:        fc.InitialBackoff,
		MaxBackoff:            fc.MaxBackoff,
		PerHostDelay:          fc.PerHostDelay,
		MaxConcurrentRequests: fc.MaxConcurrentRequests,
		MaxBodyBytes:          fc.MaxBodyBytes,
	}, a.log.Named("fetch"))
	if err != nil {
		return nil, err
	}
	if sc.SaveDir != "" {
		a.log.Info("recording pages", zap.String("dir", sc.SaveDir))
		return file.NewRecorder(f, sc.SaveDir)
	}
	return f, nil
}

func writeReport(path string, rep pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
