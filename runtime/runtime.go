// Package runtime implements ramnet discriminators and the multi-class
// classifier that owns them.
//
// A Discriminator composes RAM nodes over a fixed bit mapping and scores how
// well an input matches the patterns it was trained on. A Classifier holds one
// discriminator per class, trains them in parallel and resolves ties between
// equally scoring classes by bleaching.
//
// Key components:
//   - Discriminator: node collection plus mapping, Train/Response per input
//   - Classifier: one discriminator per label with bleaching tie-break
//   - ClassifierOptions: worker count, bleach bound, stats and logging
//   - ClassificationStats: training and classification counters
//
// Classification model:
//  1. Read every discriminator's per-node counters for the input once
//  2. Score at bleach 0 and find the maximum
//  3. While several classes tie, raise bleach by one for the tied classes
//  4. Stop when one class leads, the bleach bound is hit, or every tied
//     score would drop to zero
//  5. Break any remaining tie by label registration order
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/model"
)

// DefaultMaxBleach bounds the bleaching loop of Classify.
const DefaultMaxBleach = 256

// ClassifierOptions configures classifier behavior
type ClassifierOptions struct {
	// Workers bounds the goroutines used per Classify or TrainBatch call.
	Workers int
	// MaxBleach is the highest bleach level tried while resolving ties.
	// Zero selects DefaultMaxBleach.
	MaxBleach uint64
	// EnableStats turns on ClassificationStats collection.
	EnableStats bool
	// Logger receives debug events; nil selects slog.Default().
	Logger *slog.Logger
}

// DefaultClassifierOptions provides sensible defaults
func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{
		Workers:     runtime.NumCPU(),
		MaxBleach:   DefaultMaxBleach,
		EnableStats: false,
		Logger:      slog.Default(),
	}
}

// ClassificationStats tracks classifier activity
type ClassificationStats struct {
	TrainedSamples   int64
	Classifications  int64
	BleachedTies     int64 // ties that needed bleach > 0
	UnresolvedTies   int64 // ties broken by label order
	MaxBleachReached uint64
	AverageLatency   time.Duration
}

// Sample is one labelled training input.
type Sample struct {
	Label string
	Input []bool
}

// Result is the outcome of Classify.
type Result struct {
	// Label is the winning class.
	Label string
	// Score is the winner's score at Bleach.
	Score int
	// Bleach is the bleach level at which the decision was made.
	Bleach uint64
	// Tied reports that the winner was chosen by label order among classes
	// still tied at Bleach.
	Tied bool
	// Scores holds every class's score at bleach 0.
	Scores map[string]int
}

// Classifier holds one discriminator per class label. Discriminators share a
// single immutable mapping.
type Classifier struct {
	labels  []string
	index   map[string]int
	discs   []*Discriminator
	mapping *model.Mapping
	opts    ClassifierOptions
	logger  *slog.Logger

	mu    sync.RWMutex
	stats ClassificationStats
}

// NewClassifier builds one discriminator per label from cfg. Labels must be
// unique and non-empty.
func NewClassifier(labels []string, cfg DiscriminatorConfig, opts *ClassifierOptions) (*Classifier, error) {
	if len(labels) == 0 {
		return nil, errors.New("classifier needs at least one label")
	}

	c := &Classifier{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
		opts:   resolveOptions(opts),
	}
	c.logger = c.opts.Logger

	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if _, dup := c.index[l]; dup {
			return nil, fmt.Errorf("duplicate label %q", l)
		}
		c.index[l] = i
	}

	mapping, err := cfg.BuildMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	c.mapping = mapping

	specs := cfg.Specs(mapping)
	c.discs = make([]*Discriminator, len(labels))
	for i, l := range labels {
		d, err := NewDiscriminatorWithOptions(specs, mapping, cfg.Node)
		if err != nil {
			return nil, fmt.Errorf("discriminator %q: %w", l, err)
		}
		c.discs[i] = d
	}
	return c, nil
}

func resolveOptions(opts *ClassifierOptions) ClassifierOptions {
	resolved := DefaultClassifierOptions()
	if opts == nil {
		return resolved
	}
	resolved = *opts
	if resolved.Workers <= 0 {
		resolved.Workers = runtime.NumCPU()
	}
	if resolved.MaxBleach == 0 {
		resolved.MaxBleach = DefaultMaxBleach
	}
	if resolved.Logger == nil {
		resolved.Logger = slog.Default()
	}
	return resolved
}

// Labels returns the class labels in registration order.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// InputBits returns the accepted input vector length.
func (c *Classifier) InputBits() int { return c.mapping.TotalBits() }

// Mapping returns the mapping shared by every discriminator.
func (c *Classifier) Mapping() *model.Mapping { return c.mapping }

// Discriminator returns the discriminator of label.
func (c *Classifier) Discriminator(label string) (*Discriminator, error) {
	i, ok := c.index[label]
	if !ok {
		return nil, fmt.Errorf("label %q: %w", label, core.ErrUnknownClass)
	}
	return c.discs[i], nil
}

// Train records input for class label.
func (c *Classifier) Train(label string, input []bool) error {
	d, err := c.Discriminator(label)
	if err != nil {
		return err
	}
	if err := d.Train(input); err != nil {
		return fmt.Errorf("label %q: %w", label, err)
	}
	c.recordTrained(1)
	return nil
}

// TrainBatch validates every sample, then trains each class's discriminator
// on its samples in parallel. An invalid sample rejects the whole batch
// before any counter changes.
func (c *Classifier) TrainBatch(ctx context.Context, samples []Sample) error {
	perClass := make([][][]core.Address, len(c.discs))
	for i, s := range samples {
		ci, ok := c.index[s.Label]
		if !ok {
			return fmt.Errorf("sample %d: label %q: %w", i, s.Label, core.ErrUnknownClass)
		}
		addrs, err := c.mapping.Addresses(s.Input)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		perClass[ci] = append(perClass[ci], addrs)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for ci, batch := range perClass {
		if len(batch) == 0 {
			continue
		}
		d := c.discs[ci]
		g.Go(func() error {
			for _, addrs := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := d.trainAddresses(addrs); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("train batch: %w", err)
	}

	c.recordTrained(int64(len(samples)))
	c.logger.Debug("trained batch", "samples", len(samples), "classes", len(c.discs))
	return nil
}

// Scores returns every class's score at the given bleach level.
func (c *Classifier) Scores(ctx context.Context, input []bool, bleach uint64) (map[string]int, error) {
	counts, err := c.responses(ctx, input)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int, len(c.labels))
	for i, l := range c.labels {
		scores[l] = ScoreCounts(counts[i], bleach)
	}
	return scores, nil
}

// Classify scores input against every class and resolves ties by bleaching.
func (c *Classifier) Classify(ctx context.Context, input []bool) (Result, error) {
	start := time.Now()

	counts, err := c.responses(ctx, input)
	if err != nil {
		return Result{}, err
	}

	res := Result{Scores: make(map[string]int, len(c.labels))}
	scores := make([]int, len(c.labels))
	for i, l := range c.labels {
		scores[i] = ScoreCounts(counts[i], 0)
		res.Scores[l] = scores[i]
	}

	tied, best := leaders(scores, allIndices(len(scores)))
	bleach := uint64(0)
	for len(tied) > 1 && bleach < c.opts.MaxBleach {
		next := bleach + 1
		nextScores := make([]int, len(scores))
		for _, i := range tied {
			nextScores[i] = ScoreCounts(counts[i], next)
		}
		nextTied, nextBest := leaders(nextScores, tied)
		if nextBest == 0 {
			break
		}
		tied, best, bleach = nextTied, nextBest, next
	}

	res.Label = c.labels[tied[0]]
	res.Score = best
	res.Bleach = bleach
	res.Tied = len(tied) > 1

	if bleach > 0 || res.Tied {
		c.logger.Debug("resolved tie",
			"label", res.Label,
			"bleach", bleach,
			"tied", len(tied),
			"score", best,
		)
	}
	c.recordClassification(res, time.Since(start))
	return res, nil
}

// responses reads the per-node counters of every discriminator in parallel.
func (c *Classifier) responses(ctx context.Context, input []bool) ([][]uint64, error) {
	if len(input) != c.InputBits() {
		return nil, fmt.Errorf("input has %d bits, want %d: %w", len(input), c.InputBits(), core.ErrInputSize)
	}

	counts := make([][]uint64, len(c.discs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, d := range c.discs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := d.Responses(input)
			if err != nil {
				return fmt.Errorf("label %q: %w", c.labels[i], err)
			}
			counts[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// leaders returns the candidates holding the maximum score, in order.
func leaders(scores []int, candidates []int) ([]int, int) {
	best := -1
	var top []int
	for _, i := range candidates {
		switch {
		case scores[i] > best:
			best = scores[i]
			top = append(top[:0], i)
		case scores[i] == best:
			top = append(top, i)
		}
	}
	return top, best
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (c *Classifier) recordTrained(n int64) {
	if !c.opts.EnableStats {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.TrainedSamples += n
}

func (c *Classifier) recordClassification(res Result, d time.Duration) {
	if !c.opts.EnableStats {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Classifications++
	if res.Bleach > 0 {
		c.stats.BleachedTies++
	}
	if res.Tied {
		c.stats.UnresolvedTies++
	}
	if res.Bleach > c.stats.MaxBleachReached {
		c.stats.MaxBleachReached = res.Bleach
	}
	n := c.stats.Classifications
	c.stats.AverageLatency = time.Duration((int64(c.stats.AverageLatency)*(n-1) + int64(d)) / n)
}

// Stats returns a snapshot of the collected statistics.
func (c *Classifier) Stats() ClassificationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// MemoryBytes sums the estimated counter storage of every discriminator.
func (c *Classifier) MemoryBytes() int {
	total := 0
	for _, d := range c.discs {
		total += d.MemoryBytes()
	}
	return total
}
