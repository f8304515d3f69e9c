// Package reconcile pairs CV records with PF records. It scores every
// candidate pair on employer identity and time overlap, picks a globally
// optimal one-to-one pairing and classifies what it finds.
package reconcile

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/pf-reconciler/internal/classify"
	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/identity"
	"github.com/spigell/pf-reconciler/internal/interval"
	"github.com/spigell/pf-reconciler/internal/logger"
	"github.com/spigell/pf-reconciler/internal/matching"
	"github.com/spigell/pf-reconciler/internal/normalize"
	"github.com/spigell/pf-reconciler/internal/screening"
)

// weightScale turns scores in [0,1] into integer edge weights.
const weightScale = 1_000_000

// Engine reconciles record collections. It holds no per-run state and may
// serve concurrent calls.
type Engine struct {
	cfg        Config
	logger     *zap.Logger
	names      *normalize.Cache
	matcher    *identity.Matcher
	classifier *classify.Classifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Runs add their own run fields.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNameCache shares a memo of normalized employer names.
func WithNameCache(c *normalize.Cache) Option {
	return func(e *Engine) { e.names = c }
}

// New validates cfg and returns an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	matcher := identity.NewMatcher(cfg.IdentityThreshold)
	e := &Engine{
		cfg:        cfg,
		matcher:    matcher,
		classifier: classify.New(cfg.classifier(), matcher),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.WithFields(e.logger)

	return e, nil
}

// Config returns the validated policy the engine runs with.
func (e *Engine) Config() Config { return e.cfg }

// Reconcile compares the CV and PF collections. It fails only on absent
// collections, records with a missing or foreign source tag and
// cancellation; every other problem is reported inside the Result.
func (e *Engine) Reconcile(ctx context.Context, cv, pf []employment.Record) (*Result, error) {
	if cv == nil {
		return nil, employment.NewInputError("cv", "record collection is absent")
	}
	if pf == nil {
		return nil, employment.NewInputError("pf", "record collection is absent")
	}

	log := logger.WithFields(e.logger, logger.RunFields(uuid.NewString(), len(cv), len(pf))...)

	cvBatch, err := e.screen(ctx, log, employment.SourceCV, cv)
	if err != nil {
		return nil, err
	}
	pfBatch, err := e.screen(ctx, log, employment.SourcePF, pf)
	if err != nil {
		return nil, err
	}

	cvEntries := e.entries(cvBatch)
	pfEntries := e.entries(pfBatch)

	horizon, bounded := e.horizon(cvEntries, pfEntries)
	aligner := interval.NewAligner(e.cfg.AdjacencyToleranceDays, horizon)

	scores, err := e.score(ctx, aligner, cvEntries, pfEntries)
	if err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled before matching: %w", err)
	}

	weights, accepted := e.weights(scores, cvEntries)
	log.Debug("solving pairing",
		zap.Int("cv_entries", len(cvEntries)),
		zap.Int("pf_entries", len(pfEntries)),
		zap.Int("accepted_edges", accepted),
	)
	assignment := matching.Solve(weights)
	total := matching.Total(weights, assignment)
	log.Debug("pairing solved",
		zap.Float64("total_confidence", float64(total.Primary)/weightScale),
		zap.Float64("total_identity", float64(total.Secondary)/weightScale),
	)

	res := &Result{
		Pairs:       []Pair{},
		UnmatchedCV: []Unmatched{},
		UnmatchedPF: []Unmatched{},
		Anomalies:   e.anomalies(cvBatch, pfBatch),
		Config:      e.cfg,
		Stats: Stats{
			CVRecords: len(cv),
			PFRecords: len(pf),
			Accepted:  accepted,
		},
	}
	if bounded {
		res.Horizon = employment.FromTime(interval.Time(horizon))
	}

	pfMatched := make([]bool, len(pfEntries))
	for i, j := range assignment {
		for _, ev := range scores[i] {
			if ev != nil {
				res.Stats.Candidates++
			}
		}

		if j < 0 {
			res.UnmatchedCV = append(res.UnmatchedCV, Unmatched{
				Entry:          cvEntries[i],
				Classification: e.classifier.UnmatchedCV(best(scores[i])),
			})
			continue
		}

		pfMatched[j] = true
		res.Pairs = append(res.Pairs, Pair{
			CV:             cvEntries[i],
			PF:             pfEntries[j],
			Classification: e.classifier.Pair(*scores[i][j]),
		})
	}

	for j, matched := range pfMatched {
		if matched {
			continue
		}
		column := make([]*classify.Evidence, len(scores))
		for i := range scores {
			column[i] = scores[i][j]
		}
		res.UnmatchedPF = append(res.UnmatchedPF, Unmatched{
			Entry:          pfEntries[j],
			Classification: e.classifier.UnmatchedPF(best(column)),
		})
	}

	res.Coverage = coverage(aligner, cvEntries, res.Pairs)

	log.Info("reconciliation finished",
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("unmatched_cv", len(res.UnmatchedCV)),
		zap.Int("unmatched_pf", len(res.UnmatchedPF)),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.Float64("coverage", res.Coverage.Ratio),
	)

	return res, nil
}

func (e *Engine) screen(ctx context.Context, log *zap.Logger, side employment.Source, records []employment.Record) (*screening.Batch, error) {
	steps := screening.Default()
	for _, name := range e.cfg.DisabledSteps {
		if err := screening.DisableByName(steps, name, "disabled by configuration"); err != nil {
			return nil, employment.NewInputError("config.disabled-steps", err.Error())
		}
	}
	log.Debug("screening steps", zap.String("side", string(side)), zap.Any("steps", screening.Describe(steps)))

	deps := screening.Deps{Logger: log, Normalize: e.names.Name}
	batch, err := screening.Run(ctx, deps, steps, screening.NewBatch(side, records))
	if err != nil {
		return nil, fmt.Errorf("screening %s records: %w", side, err)
	}
	return batch, nil
}

func (e *Engine) entries(b *screening.Batch) []Entry {
	out := make([]Entry, 0, b.Len())
	for _, entry := range b.Entries {
		out = append(out, Entry{
			Index:      entry.Index,
			Record:     entry.Record,
			Normalized: e.names.Name(entry.Record.EmployerRaw),
			Unnamed:    entry.Unnamed,
			Interval:   interval.FromRecord(entry.Record),
		})
	}
	return out
}

// horizon picks the day ongoing periods are closed at. It reports false when
// no record carries a concrete day and AsOf is unset.
func (e *Engine) horizon(cv, pf []Entry) (int, bool) {
	if e.cfg.AsOf.Known() {
		return interval.Day(e.cfg.AsOf.Last()), true
	}

	intervals := make([]interval.Interval, 0, len(cv)+len(pf))
	for _, entry := range cv {
		intervals = append(intervals, entry.Interval)
	}
	for _, entry := range pf {
		intervals = append(intervals, entry.Interval)
	}

	latest := interval.LatestDay(intervals...)
	if latest == math.MinInt {
		return 0, false
	}
	return latest, true
}

// score evaluates every (cv, pf) pair, one CV row per task. A nil cell is a
// pair with neither identity nor overlap evidence.
func (e *Engine) score(ctx context.Context, aligner *interval.Aligner, cv, pf []Entry) ([][]*classify.Evidence, error) {
	scores := make([][]*classify.Evidence, len(cv))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.workers())

	for i := range cv {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := make([]*classify.Evidence, len(pf))
			for j := range pf {
				row[j] = e.evaluate(aligner, cv[i], pf[j])
			}
			scores[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// evaluate scores one pair. Entries screened as unnamed get no identity
// score; they may still pair on time overlap.
func (e *Engine) evaluate(aligner *interval.Aligner, cv, pf Entry) *classify.Evidence {
	unnamed := cv.Unnamed || pf.Unnamed

	var identityScore float64
	if !unnamed {
		identityScore = e.matcher.Score(cv.Normalized, pf.Normalized)
	}
	alignment := aligner.Align(cv.Interval, pf.Interval)

	var overlap float64
	if alignment.Relation.Intersects() {
		overlap = alignment.OverlapRatio
	}

	if identityScore == 0 && overlap == 0 {
		return nil
	}

	return &classify.Evidence{
		IdentityScore: identityScore,
		OverlapScore:  overlap,
		Confidence:    e.cfg.IdentityWeight*identityScore + e.cfg.OverlapWeight*overlap,
		Alignment:     alignment,
		EmptyEmployer: unnamed,
	}
}

func (e *Engine) accepts(ev *classify.Evidence) bool {
	return ev != nil && ev.Confidence > 0 && ev.Confidence >= e.cfg.AcceptanceFloor
}

// weights builds the matching input. Edges are ordered by confidence, then
// identity, then by how early the CV period starts.
func (e *Engine) weights(scores [][]*classify.Evidence, cv []Entry) ([][]matching.Weight, int) {
	rank := startRank(cv)

	accepted := 0
	weights := make([][]matching.Weight, len(scores))
	for i, row := range scores {
		weights[i] = make([]matching.Weight, len(row))
		for j, ev := range row {
			if !e.accepts(ev) {
				continue
			}
			weights[i][j] = matching.Weight{
				Primary:   quantize(ev.Confidence),
				Secondary: quantize(ev.IdentityScore),
				Tertiary:  int64(len(cv) - rank[i]),
			}
			accepted++
		}
	}
	return weights, accepted
}

func quantize(v float64) int64 {
	return int64(math.Round(v * weightScale))
}

// startRank orders CV entries by start day. Unknown starts come last and
// equal starts keep input order.
func startRank(cv []Entry) []int {
	order := make([]int, len(cv))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ia, ib := cv[a].Interval, cv[b].Interval
		if ia.Known != ib.Known {
			if ia.Known {
				return -1
			}
			return 1
		}
		return cmp.Compare(ia.Start, ib.Start)
	})

	rank := make([]int, len(cv))
	for pos, i := range order {
		rank[i] = pos
	}
	return rank
}

// best returns the strongest candidate of a row or column, preferring higher
// confidence, then identity, then the earlier position.
func best(candidates []*classify.Evidence) *classify.Evidence {
	var top *classify.Evidence
	for _, ev := range candidates {
		if ev == nil {
			continue
		}
		if top == nil ||
			ev.Confidence > top.Confidence ||
			(ev.Confidence == top.Confidence && ev.IdentityScore > top.IdentityScore) {
			top = ev
		}
	}
	return top
}

func (e *Engine) anomalies(batches ...*screening.Batch) []Anomaly {
	out := []Anomaly{}
	for _, b := range batches {
		for _, a := range b.Anomalies {
			out = append(out, Anomaly{
				Index:          a.Index,
				Record:         a.Record,
				Classification: e.classifier.Invalid(a.Reason),
			})
		}
	}
	return out
}
