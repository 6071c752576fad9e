// Command statesdb ingests sovereign-country pages into a relational store and
// answers read queries against it.
//
//	statesdb ingest   --config statesdb.yaml
//	statesdb validate --config statesdb.yaml
//	statesdb country  France
//	statesdb list     --sort population --desc --limit 10
//	statesdb export   --out states.json
//	statesdb audit    --report last-run.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statesdb/internal/config"
	"statesdb/internal/logging"
	"statesdb/internal/metrics"
	"statesdb/internal/metrics/datadog"
	"statesdb/internal/metrics/prompush"
	"statesdb/internal/pipeline"
	"statesdb/internal/schema"
	"statesdb/internal/storage"

	// register all backends with the storage factory; storage.kind picks one
	_ "statesdb/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	envFiles   []string
	verbose    bool

	cfg config.Config
	log *zap.Logger

	// logErr is kept so validate can report it instead of failing early.
	logErr error
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:          "statesdb [command]",
		Short:        "Sovereign-country ingestion pipeline and query tool",
		Long:         `Fetch the sovereign-state pages, normalize their infobox facts and land borders into a relational store, and query the result.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	pf.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, ".env files with STATESDB_* overrides; earlier files win")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.ingestCmd(),
		a.validateCmd(),
		a.auditCmd(),
		a.countryCmd(),
		a.listCmd(),
		a.exportCmd(),
	)
	return root
}

// setup loads config, applies environment overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	lookup, err := config.EnvLookup(a.envFiles...)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		a.logErr = err
		log, err = logging.New(logging.Config{}, a.verbose)
		if err != nil {
			return err
		}
	}
	a.log = log
	return nil
}

// checkConfig logs warnings and fails on errors.
func (a *app) checkConfig() error {
	issues := a.cfg.Validate()
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			a.log.Warn("config warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
		}
	}
	if !config.HasErrors(issues) {
		return nil
	}
	var msgs []string
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			msgs = append(msgs, iss.Error())
		}
	}
	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

// openStore opens and bootstraps the configured store. Failures are
// reported as ErrStoreUnavailable.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	s, err := storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrStoreUnavailable, err)
	}
	if err := storage.Bootstrap(ctx, s, schema.Store()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: bootstrap: %v", pipeline.ErrStoreUnavailable, err)
	}
	a.log.Debug("store opened", zap.String("kind", a.cfg.Storage.Kind), zap.String("dialect", s.Dialect().Name()))
	return s, nil
}

// installMetrics sets the configured metrics backend and returns the flush
// to run when the command ends.
func (a *app) installMetrics() (func(), error) {
	m := a.cfg.Metrics
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
		return func() {}, nil
	case "prometheus":
		b, err := prompush.NewBackend(a.cfg.Job, m.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace, GlobalTags: m.Tags})
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	a.log.Info("metrics enabled", zap.String("backend", m.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			a.log.Warn("metrics flush failed", zap.Error(err))
		}
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// errAuditFailed makes audit --strict exit non-zero.
var errAuditFailed = errors.New("audit failed")
