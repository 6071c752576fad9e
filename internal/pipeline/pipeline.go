// Package pipeline runs one ingestion: it discovers the country pages, fetches,
// extracts and normalizes them on a bounded worker pool, and commits each
// country through a single loader goroutine. Once every country had its load
// attempt, border edges deferred during loading are resolved, countries
// missing from the source list are flagged stale and the indexes are rebuilt.
//
// Per-country failures never stop a run; they are collected into the Report.
// Only an unreachable store is fatal (ErrStoreUnavailable).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"statesdb/internal/config"
	"statesdb/internal/datasource"
	"statesdb/internal/datasource/file"
	"statesdb/internal/extract"
	"statesdb/internal/fetch"
	"statesdb/internal/index"
	"statesdb/internal/loader"
	"statesdb/internal/metrics"
	"statesdb/internal/model"
	"statesdb/internal/normalize"
	"statesdb/internal/storage"
)

// ErrStoreUnavailable is returned when the store stops answering during a
// run. Countries committed before that point remain.
var ErrStoreUnavailable = errors.New("pipeline: store unavailable")

const (
	defaultJob         = "statesdb-ingest"
	defaultLoadTimeout = 30 * time.Second
)

// Options sizes and scopes a run.
type Options struct {
	Job string
	// BaseURL turns relative locators into the absolute source URLs stored
	// with every country.
	BaseURL     string
	ListPage    string
	BordersPage string
	// Locators, when non-empty, replace discovery through ListPage. Runs
	// over explicit locators never mark countries stale.
	Locators []string

	Workers     int
	QueueSize   int
	LoadTimeout time.Duration
	// ResumeAfter skips countries last scraped at or after it.
	ResumeAfter time.Time
}

// OptionsFromConfig builds Options from a validated config, reading the
// locator list file if one is set.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	resume, err := cfg.Runtime.ResumeTime()
	if err != nil {
		return Options{}, err
	}
	locators := append([]string(nil), cfg.Source.Locators...)
	if cfg.Source.LocatorsFile != "" {
		more, err := file.ReadList(cfg.Source.LocatorsFile)
		if err != nil {
			return Options{}, err
		}
		locators = append(locators, more...)
	}
	return Options{
		Job:         cfg.Job,
		BaseURL:     cfg.Source.BaseURL,
		ListPage:    cfg.Source.ListPage,
		BordersPage: cfg.Source.BordersPage,
		Locators:    locators,
		Workers:     cfg.Runtime.Workers,
		QueueSize:   cfg.Runtime.QueueSize,
		LoadTimeout: cfg.Runtime.LoadTimeout,
		ResumeAfter: resume,
	}, nil
}

// Pipeline wires a page source to a store. A Pipeline runs one ingestion at a
// time.
type Pipeline struct {
	src     datasource.Source
	store   storage.Store
	loader  *loader.Loader
	indexer *index.Indexer
	opts    Options
	base    *url.URL
	log     *zap.Logger
	now     func() time.Time
}

// New returns a Pipeline. The store must already be bootstrapped.
func New(src datasource.Source, s storage.Store, opts Options, log *zap.Logger) (*Pipeline, error) {
	if src == nil || s == nil {
		return nil, errors.New("pipeline: source and store are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Job == "" {
		opts.Job = defaultJob
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("pipeline: invalid base url %q", opts.BaseURL)
		}
		base = u
	}
	return &Pipeline{
		src:     src,
		store:   s,
		loader:  loader.New(s, log.Named("loader")),
		indexer: index.New(s, log.Named("index")).WithJob(opts.Job),
		opts:    opts,
		base:    base,
		log:     log,
		now:     time.Now,
	}, nil
}

// unit is one normalized country on its way to the loader.
type unit struct {
	locator string
	rec     model.Record
}

// Run performs one ingestion. The returned Report is always populated, also
// when err is non-nil. Cancelling ctx stops workers from taking new countries;
// countries already being fetched finish within the fetch timeout and are
// loaded, and the deferred-border, stale and index steps are skipped.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	c := &collector{rep: Report{
		RunID:     uuid.NewString(),
		Job:       p.opts.Job,
		StartedAt: p.now().UTC(),
		Stale:     -1,
		Durations: map[Stage]time.Duration{},
	}}
	log := p.log.With(zap.String("run_id", c.rep.RunID), zap.String("job", p.opts.Job))
	log.Info("run started",
		zap.Int("workers", p.opts.Workers),
		zap.Int("queue", p.opts.QueueSize),
		zap.Duration("load_timeout", p.opts.LoadTimeout),
	)

	finish := func(err error) (Report, error) {
		c.update(func(r *Report) {
			r.FinishedAt = p.now().UTC()
			r.Elapsed = r.FinishedAt.Sub(r.StartedAt)
			r.Cancelled = ctx.Err() != nil
		})
		rep := c.snapshot()
		for kind, n := range rep.AnomalyCounts() {
			metrics.RecordAnomalies(p.opts.Job, string(kind), int64(n))
		}
		metrics.RecordCountry(p.opts.Job, "skipped", int64(len(rep.Skipped)))
		if err != nil {
			log.Error("run failed", append(rep.fields(), zap.Error(err))...)
		} else {
			log.Info("run finished", rep.fields()...)
		}
		return rep, err
	}

	locators, discovered, err := p.locators(ctx, c, log)
	if err != nil {
		return finish(err)
	}
	borders := p.borders(ctx, c, log)

	todo, err := p.resume(ctx, locators, c, log)
	if err != nil {
		return finish(err)
	}

	var resolver *normalize.Resolver
	if borders != nil {
		resolver = normalize.NewResolver(borders.Names()...)
	}
	norm := normalize.New(resolver, log.Named("normalize"))

	deferred, err := p.ingest(ctx, todo, borders, norm, c, log)
	if err != nil {
		return finish(err)
	}
	if ctx.Err() != nil {
		log.Warn("run cancelled; deferred borders, stale marking and indexing skipped")
		return finish(nil)
	}

	p.resolveDeferred(ctx, deferred, c, log)
	if discovered && p.opts.ResumeAfter.IsZero() {
		p.markStale(ctx, locators, c, log)
	}
	p.rebuildIndexes(ctx, c, log)
	return finish(nil)
}

// step times fn and records it under stage.
func (p *Pipeline) step(c *collector, stage Stage, fn func() error) error {
	start := p.now()
	err := fn()
	d := p.now().Sub(start)
	c.took(stage, d)
	metrics.RecordStep(p.opts.Job, string(stage), err, d)
	return err
}

// sourceURL is the identity stored for a locator, stable across live and
// mirrored runs.
func (p *Pipeline) sourceURL(locator string) string {
	if p.base == nil {
		return locator
	}
	u, err := url.Parse(locator)
	if err != nil || u.IsAbs() {
		return locator
	}
	return p.base.ResolveReference(u).String()
}

// locators returns the country locators of this run and whether they were
// discovered from the list page.
func (p *Pipeline) locators(ctx context.Context, c *collector, log *zap.Logger) ([]string, bool, error) {
	if len(p.opts.Locators) > 0 {
		out := dedupe(p.opts.Locators)
		c.update(func(r *Report) { r.Listed = len(out) })
		log.Info("using explicit locators", zap.Int("countries", len(out)))
		return out, false, nil
	}
	if p.opts.ListPage == "" {
		return nil, false, errors.New("pipeline: neither a list page nor locators given")
	}

	var out []string
	err := p.step(c, StageList, func() error {
		doc, err := p.src.Fetch(ctx, p.opts.ListPage)
		if err != nil {
			return err
		}
		out, err = extract.SovereignStates(doc.Body)
		return err
	})
	if err != nil {
		c.fail(Failure{Locator: p.opts.ListPage, Stage: StageList, Transient: fetch.IsTransient(err), Reason: err.Error()})
		return nil, false, fmt.Errorf("pipeline: list: %w", err)
	}
	if len(out) == 0 {
		c.fail(Failure{Locator: p.opts.ListPage, Stage: StageList, Reason: "no country links found"})
		return nil, false, fmt.Errorf("pipeline: list: no country links on %s", p.opts.ListPage)
	}
	c.update(func(r *Report) { r.Listed = len(out) })
	log.Info("country list discovered", zap.String("page", p.opts.ListPage), zap.Int("countries", len(out)))
	return out, true, nil
}

// borders loads the land-border table. A missing table is logged and the run
// continues with neighbours marked absent, which keeps stored edges intact.
func (p *Pipeline) borders(ctx context.Context, c *collector, log *zap.Logger) *normalize.BorderIndex {
	if p.opts.BordersPage == "" {
		return nil
	}
	var table map[string][]string
	err := p.step(c, StageBorders, func() error {
		doc, err := p.src.Fetch(ctx, p.opts.BordersPage)
		if err != nil {
			return err
		}
		table, err = extract.LandBorders(doc.Body)
		return err
	})
	if err == nil && len(table) == 0 {
		err = errors.New("no border rows found")
	}
	if err != nil {
		c.fail(Failure{Locator: p.opts.BordersPage, Stage: StageBorders, Transient: fetch.IsTransient(err), Reason: err.Error()})
		log.Warn("land borders unavailable; stored borders are kept", zap.String("page", p.opts.BordersPage), zap.Error(err))
		return nil
	}
	idx := normalize.NewBorderIndex(table)
	log.Info("land borders indexed", zap.Int("countries", len(idx.Names())))
	return idx
}

// resume drops locators whose country was scraped at or after ResumeAfter.
func (p *Pipeline) resume(ctx context.Context, locators []string, c *collector, log *zap.Logger) ([]string, error) {
	if p.opts.ResumeAfter.IsZero() {
		return locators, nil
	}
	done, err := p.loader.ScrapedSince(ctx, p.opts.ResumeAfter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	todo := make([]string, 0, len(locators))
	var skipped []string
	for _, loc := range locators {
		if done[p.sourceURL(loc)] {
			skipped = append(skipped, loc)
			continue
		}
		todo = append(todo, loc)
	}
	c.update(func(r *Report) { r.Skipped = skipped })
	log.Info("resuming",
		zap.Time("after", p.opts.ResumeAfter),
		zap.Int("skipped", len(skipped)),
		zap.Int("remaining", len(todo)),
	)
	return todo, nil
}

// ingest runs phase one. Workers fetch, extract and normalize; the loader
// goroutine commits. It returns the deferred neighbour keys per country key.
// Once ctx is cancelled or the store is lost no new unit starts, while units
// already started finish and are loaded.
func (p *Pipeline) ingest(ctx context.Context, locators []string, borders *normalize.BorderIndex, norm *normalize.Normalizer, c *collector, log *zap.Logger) (map[string][]string, error) {
	workCtx, stop := context.WithCancel(ctx)
	defer stop()
	// started units run to completion; the fetcher's timeout bounds them
	inflight := context.WithoutCancel(ctx)

	units := make(chan unit, p.opts.QueueSize)
	var (
		deferred map[string][]string
		fatal    error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		deferred, fatal = p.loadAll(ctx, units, stop, c, log)
	}()

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for _, loc := range locators {
		if workCtx.Err() != nil {
			break
		}
		loc := loc
		g.Go(func() error {
			// a slot may free up only after the run was stopped
			if workCtx.Err() != nil {
				return nil
			}
			if u, ok := p.process(inflight, loc, borders, norm, c, log); ok {
				units <- u
			}
			return nil
		})
	}
	_ = g.Wait()
	close(units)
	<-done
	return deferred, fatal
}

// process takes one locator through fetch, extract and normalize.
func (p *Pipeline) process(ctx context.Context, loc string, borders *normalize.BorderIndex, norm *normalize.Normalizer, c *collector, log *zap.Logger) (unit, bool) {
	failed := func(stage Stage, name string, err error) (unit, bool) {
		c.fail(Failure{Locator: loc, Country: name, Stage: stage, Transient: fetch.IsTransient(err), Reason: err.Error()})
		metrics.RecordCountry(p.opts.Job, "failed", 1)
		log.Warn(string(stage)+" failed", zap.String("locator", loc), zap.Error(err))
		return unit{}, false
	}

	var doc fetch.Document
	err := p.step(c, StageFetch, func() (err error) {
		doc, err = p.src.Fetch(ctx, loc)
		return err
	})
	if err != nil {
		return failed(StageFetch, "", err)
	}

	var fields model.Fields
	err = p.step(c, StageExtract, func() (err error) {
		fields, err = extract.Infobox(doc.Body)
		return err
	})
	if err != nil {
		return failed(StageExtract, "", err)
	}

	var (
		rec       model.Record
		anomalies []model.Anomaly
	)
	source := p.sourceURL(loc)
	title := normalize.TitleFromLocator(loc)
	listed := true
	err = p.step(c, StageNormalize, func() (err error) {
		// nil neighbours leave the stored edges alone
		var neighbors []string
		if borders != nil {
			name := ""
			if f, ok := fields.Lookup(model.FieldName); ok {
				name = f.Text
			}
			neighbors, listed = borders.Lookup(name, title)
			if listed && neighbors == nil {
				neighbors = []string{}
			}
		}
		rec, anomalies, err = norm.Normalize(normalize.Source{URL: source, Hash: doc.Hash, FetchedAt: doc.FetchedAt}, fields, neighbors)
		return err
	})
	if err == nil && !listed {
		anomalies = append(anomalies, model.Anomaly{
			Kind:      model.AnomalyUnmatchedNeighbor,
			Country:   rec.Name,
			Field:     model.FieldNeighbors,
			Value:     title,
			Reason:    "country not found in the land-border table; stored borders kept",
			SourceURL: source,
		})
		log.Warn("country missing from land-border table", zap.String("country", rec.Name), zap.String("locator", loc))
	}
	if errors.Is(err, normalize.ErrMissingName) {
		anomalies = append(anomalies, model.Anomaly{
			Kind:      model.AnomalyMissingName,
			Reason:    "page has no usable country name",
			SourceURL: source,
		})
	}
	c.anomalies(anomalies)
	if err != nil {
		return failed(StageNormalize, "", err)
	}
	return unit{locator: loc, rec: rec}, true
}

// loadAll is the single loader goroutine. Each load runs under its own
// timeout and is not cut short by cancelling the run. A failed load is
// followed by a ping; if the store does not answer, the workers are stopped
// and the remaining units are drained unloaded.
func (p *Pipeline) loadAll(ctx context.Context, units <-chan unit, stop context.CancelFunc, c *collector, log *zap.Logger) (map[string][]string, error) {
	deferred := map[string][]string{}
	var fatal error
	loaded := 0
	start := p.now()

	for u := range units {
		if fatal != nil {
			c.fail(Failure{Locator: u.locator, Country: u.rec.Name, Stage: StageLoad, Transient: true, Reason: "not attempted: store unavailable"})
			continue
		}

		var out loader.Outcome
		err := p.step(c, StageLoad, func() (err error) {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.LoadTimeout)
			defer cancel()
			out, err = p.loader.Load(lctx, u.rec)
			return err
		})
		if err != nil {
			c.fail(Failure{
				Locator:   u.locator,
				Country:   u.rec.Name,
				Stage:     StageLoad,
				Transient: errors.Is(err, context.DeadlineExceeded),
				Reason:    err.Error(),
			})
			metrics.RecordCountry(p.opts.Job, "failed", 1)
			log.Warn("load failed", zap.String("country", u.rec.Name), zap.String("locator", u.locator), zap.Error(err))
			if perr := p.ping(ctx); perr != nil {
				fatal = fmt.Errorf("%w: %v", ErrStoreUnavailable, perr)
				log.Error("store unavailable; stopping workers", zap.Error(perr))
				stop()
			}
			continue
		}

		loaded++
		if len(out.Deferred) > 0 {
			deferred[u.rec.Key] = append(deferred[u.rec.Key], out.Deferred...)
		}
		c.update(func(r *Report) {
			r.Loaded++
			if out.Inserted {
				r.Inserted++
			}
			if !out.Changed {
				r.Unchanged++
			}
		})
		metrics.RecordCountry(p.opts.Job, "loaded", 1)
		if !out.Changed {
			metrics.RecordCountry(p.opts.Job, "unchanged", 1)
		}
		log.Info("country loaded",
			zap.String("country", u.rec.Name),
			zap.Int("loaded", loaded),
			zap.Bool("inserted", out.Inserted),
			zap.Bool("changed", out.Changed),
			zap.Int("languages", out.Languages),
			zap.Int("borders", out.Borders),
			zap.Int("deferred", len(out.Deferred)),
			zap.Duration("elapsed", p.now().Sub(start).Truncate(time.Millisecond)),
		)
	}
	return deferred, fatal
}

func (p *Pipeline) ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.LoadTimeout)
	defer cancel()
	return p.store.Ping(pctx)
}

// resolveDeferred runs phase two. Deferred keys are first matched exactly
// against every stored country name, so a neighbour spelled differently in the
// border table still finds its row.
func (p *Pipeline) resolveDeferred(ctx context.Context, deferred map[string][]string, c *collector, log *zap.Logger) {
	if len(deferred) == 0 {
		return
	}
	keys := make([]string, 0, len(deferred))
	for k := range deferred {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolved := 0
	_ = p.step(c, StageDeferred, func() error {
		names, err := p.loader.KnownNames(ctx)
		if err != nil {
			c.fail(Failure{Stage: StageDeferred, Reason: err.Error()})
			log.Warn("deferred borders skipped", zap.Error(err))
			return err
		}
		known := normalize.NewResolver(names...)

		var failed error
		for _, key := range keys {
			targets := make([]string, 0, len(deferred[key]))
			for _, k := range deferred[key] {
				if ref, ok := known.ResolveExact(k); ok {
					k = ref.Key
				}
				targets = append(targets, k)
			}
			lctx, cancel := context.WithTimeout(ctx, p.opts.LoadTimeout)
			n, anomalies, err := p.loader.ResolveDeferred(lctx, key, targets)
			cancel()
			if err != nil {
				failed = err
				c.fail(Failure{Country: key, Stage: StageDeferred, Reason: err.Error()})
				log.Warn("deferred borders failed", zap.String("country_key", key), zap.Error(err))
				continue
			}
			resolved += n
			c.anomalies(anomalies)
		}
		return failed
	})
	c.update(func(r *Report) { r.DeferredResolved = resolved })
	metrics.RecordCountry(p.opts.Job, "deferred_resolved", int64(resolved))
	log.Info("deferred borders resolved", zap.Int("countries", len(keys)), zap.Int("edges", resolved))
}

// markStale flags stored countries missing from a complete source list.
func (p *Pipeline) markStale(ctx context.Context, locators []string, c *collector, log *zap.Logger) {
	listed := make([]string, len(locators))
	for i, loc := range locators {
		listed[i] = p.sourceURL(loc)
	}
	var n int
	err := p.step(c, StageStale, func() (err error) {
		n, err = p.loader.MarkStale(ctx, listed)
		return err
	})
	if err != nil {
		c.fail(Failure{Stage: StageStale, Reason: err.Error()})
		log.Warn("stale marking failed", zap.Error(err))
		return
	}
	c.update(func(r *Report) { r.Stale = n })
}

func (p *Pipeline) rebuildIndexes(ctx context.Context, c *collector, log *zap.Logger) {
	start := p.now()
	st, err := p.indexer.Rebuild(ctx)
	c.took(StageIndex, p.now().Sub(start))
	if err != nil {
		c.fail(Failure{Stage: StageIndex, Reason: err.Error()})
		log.Warn("index rebuild failed", zap.Error(err))
		return
	}
	c.update(func(r *Report) { r.Index = st })
}

// dedupe trims locators and drops blanks and repeats, keeping first
// occurrences in order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
