package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statesdb/internal/audit"
	"statesdb/internal/config"
	"statesdb/internal/model"
	"statesdb/internal/pipeline"
	"statesdb/internal/query"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := a.cfg.Validate()
			if a.logErr != nil {
				issues = append(issues, config.Issue{Severity: config.SeverityError, Path: "logging", Message: a.logErr.Error()})
			}
			out := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
}

// countryView is the country command's output.
type countryView struct {
	model.Country
	Languages []string               `json:"languages"`
	Neighbors []model.CountrySummary `json:"neighbors"`
}

func (a *app) countryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "country NAME",
		Short: "Show one country with its languages and neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			q := query.New(s)
			c, err := q.Country(ctx, args[0])
			if err != nil {
				return err
			}
			langs, err := q.Languages(ctx, args[0])
			if err != nil {
				return err
			}
			neighbors, err := q.Neighbors(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), countryView{Country: c, Languages: langs, Neighbors: neighbors})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var (
		filter query.Filter
		sortBy string
		desc   bool
		page   query.Page

		minPop, maxPop         int64
		minArea, maxArea       float64
		minDensity, maxDensity float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List countries with filters, sorting and pagination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := query.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("min-population") {
				filter.MinPopulation = &minPop
			}
			if f.Changed("max-population") {
				filter.MaxPopulation = &maxPop
			}
			if f.Changed("min-area") {
				filter.MinArea = &minArea
			}
			if f.Changed("max-area") {
				filter.MaxArea = &maxArea
			}
			if f.Changed("min-density") {
				filter.MinDensity = &minDensity
			}
			if f.Changed("max-density") {
				filter.MaxDensity = &maxDensity
			}

			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := query.New(s).List(ctx, filter, query.Sort{Key: key, Desc: desc}, page)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sortBy, "sort", "name", "sort key: name, population, area_km2, density or government_type")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.IntVar(&page.Limit, "limit", query.DefaultLimit, fmt.Sprintf("page size (at most %d)", query.MaxLimit))
	f.IntVar(&page.Offset, "offset", 0, "rows to skip")
	f.Int64Var(&minPop, "min-population", 0, "minimum population")
	f.Int64Var(&maxPop, "max-population", 0, "maximum population")
	f.Float64Var(&minArea, "min-area", 0, "minimum area in km²")
	f.Float64Var(&maxArea, "max-area", 0, "maximum area in km²")
	f.Float64Var(&minDensity, "min-density", 0, "minimum density per km²")
	f.Float64Var(&maxDensity, "max-density", 0, "maximum density per km²")
	f.StringVar(&filter.Government, "government", "", "government type (case-insensitive)")
	f.StringVar(&filter.NamePrefix, "prefix", "", "name prefix")
	f.StringVar(&filter.Language, "language", "", "spoken language")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every country with its languages and neighbours as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := query.New(s).Export(ctx, w)
			if err != nil {
				return err
			}
			a.log.Info("snapshot exported", zap.Int("countries", n), zap.String("out", outPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; stdout when empty")
	return cmd
}

func (a *app) auditCmd() *cobra.Command {
	var (
		reportPath string
		asJSON     bool
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the stored data for gaps and inconsistencies",
		Long: `Reads the store and reports countries missing population or area,
asymmetric and stale data, and world statistics. With --report, the anomalies
of that ingest run are included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var anomalies []model.Anomaly
			if reportPath != "" {
				var rep pipeline.Report
				if err := readJSON(reportPath, &rep); err != nil {
					return err
				}
				anomalies = rep.Anomalies
			}

			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := audit.New(s, a.log.Named("audit")).Run(ctx, anomalies)
			if err != nil {
				return err
			}
			if asJSON {
				err = writeJSON(cmd.OutOrStdout(), rep)
			} else {
				err = rep.WriteText(cmd.OutOrStdout())
			}
			if err != nil {
				return err
			}
			if strict && !rep.Passed() {
				return errAuditFailed
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&reportPath, "report", "", "ingest report (JSON) whose anomalies are included")
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	f.BoolVar(&strict, "strict", false, "exit non-zero when the audit does not pass")
	return cmd
}
