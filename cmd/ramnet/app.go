package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/kernels"
	ramnet_runtime "github.com/sbl8/ramnet/runtime"
)

// maxRowErrors caps the malformed rows reported for one file.
const maxRowErrors = 10

type record struct {
	label  string
	values []float64
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := loadConfig(args, os.Stderr)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	return execute(ctx, cfg, logger, stdout)
}

func execute(ctx context.Context, cfg appConfig, logger *slog.Logger, stdout io.Writer) error {
	trainSet, err := readDataset(cfg.trainPath)
	if err != nil {
		return fmt.Errorf("read training data: %w", err)
	}
	logger.Info("loaded training data", "path", cfg.trainPath, "records", len(trainSet))

	encoder, err := buildEncoder(cfg, trainSet)
	if err != nil {
		return err
	}
	inputBits := paddedWidth(encoder.Width(), cfg.tupleSize)

	labels := collectLabels(trainSet)
	classifier, err := ramnet_runtime.NewClassifier(labels, ramnet_runtime.DiscriminatorConfig{
		InputBits: inputBits,
		TupleSize: cfg.tupleSize,
		Storage:   cfg.storage,
		Seed:      cfg.seed,
		Linear:    cfg.linear,
		Node:      core.NodeOptions{MaxDenseWidth: cfg.maxDenseWidth},
	}, &ramnet_runtime.ClassifierOptions{
		Workers:     cfg.workers,
		MaxBleach:   cfg.maxBleach,
		EnableStats: cfg.stats,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}
	logger.Info("built classifier",
		"classes", len(labels),
		"input_bits", inputBits,
		"nodes_per_class", inputBits/cfg.tupleSize,
		"storage", cfg.storage.String(),
		"kernel", encoder.Op().String(),
	)

	samples := make([]ramnet_runtime.Sample, len(trainSet))
	for i, r := range trainSet {
		bits, err := encoder.Encode(r.values)
		if err != nil {
			return fmt.Errorf("encode training record %d: %w", i+1, err)
		}
		samples[i] = ramnet_runtime.Sample{Label: r.label, Input: pad(bits, inputBits)}
	}

	start := time.Now()
	if err := classifier.TrainBatch(ctx, samples); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	logger.Info("trained", "samples", len(samples), "duration", time.Since(start).String(),
		"memory_bytes", classifier.MemoryBytes())

	if cfg.testPath == "" {
		fmt.Fprintf(stdout, "trained %d samples over %d classes\n", len(samples), len(labels))
		return nil
	}

	testSet, err := readDataset(cfg.testPath)
	if err != nil {
		return fmt.Errorf("read test data: %w", err)
	}

	acc, err := evaluate(ctx, classifier, encoder, inputBits, testSet)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "accuracy %.4f (%d/%d), %d ties broken by label order\n",
		acc.ratio(), acc.correct, acc.total, acc.unresolved)

	if cfg.stats {
		s := classifier.Stats()
		logger.Info("classification stats",
			"trained", s.TrainedSamples,
			"classified", s.Classifications,
			"bleached_ties", s.BleachedTies,
			"unresolved_ties", s.UnresolvedTies,
			"max_bleach", s.MaxBleachReached,
			"avg_latency", s.AverageLatency.String(),
		)
	}
	return nil
}

type accuracy struct {
	correct, total, unresolved int
}

func (a accuracy) ratio() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.correct) / float64(a.total)
}

func evaluate(ctx context.Context, c *ramnet_runtime.Classifier, e *kernels.Encoder, inputBits int, testSet []record) (accuracy, error) {
	pool := kernels.NewVectorPool(inputBits, 1)
	var acc accuracy
	for i, r := range testSet {
		bits, err := e.EncodePooled(pool, r.values)
		if err != nil {
			return acc, fmt.Errorf("encode test record %d: %w", i+1, err)
		}
		res, err := c.Classify(ctx, pad(bits, inputBits))
		pool.Put(bits)
		if err != nil {
			return acc, fmt.Errorf("classify test record %d: %w", i+1, err)
		}

		acc.total++
		if res.Label == r.label {
			acc.correct++
		}
		if res.Tied {
			acc.unresolved++
		}
	}
	return acc, nil
}

func buildEncoder(cfg appConfig, trainSet []record) (*kernels.Encoder, error) {
	if len(trainSet) == 0 {
		return nil, errors.New("training data is empty")
	}
	params := kernels.Params{Levels: cfg.levels, Cut: cfg.cut}
	if cfg.kernel == kernels.OpThermometer || cfg.kernel == kernels.OpOneHot {
		values := make([][]float64, len(trainSet))
		for i, r := range trainSet {
			values[i] = r.values
		}
		fitted, err := kernels.FitRange(values, params)
		if err != nil {
			return nil, fmt.Errorf("fit %s range: %w", cfg.kernel, err)
		}
		params = fitted
	}

	encoder, err := kernels.NewEncoder(cfg.kernel, params, len(trainSet[0].values))
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}
	return encoder, nil
}

// paddedWidth rounds width up to a whole number of tuples.
func paddedWidth(width, tuple int) int {
	if r := width % tuple; r != 0 {
		return width + tuple - r
	}
	return width
}

// pad extends bits with zeros to width, reusing spare capacity.
func pad(bits []bool, width int) []bool {
	for len(bits) < width {
		bits = append(bits, false)
	}
	return bits
}

func collectLabels(records []record) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, r := range records {
		if _, ok := seen[r.label]; ok {
			continue
		}
		seen[r.label] = struct{}{}
		labels = append(labels, r.label)
	}
	return labels
}

// readDataset parses "label,v1,v2,..." rows. Every row must carry the same
// number of values. Lines starting with '#' are skipped.
func readDataset(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseDataset(f)
}

func parseDataset(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var (
		records []record
		errs    error
		bad     int
		width   = -1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row, width)
		if err != nil {
			bad++
			if bad <= maxRowErrors {
				errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
			}
			continue
		}
		width = len(rec.values)
		records = append(records, rec)
	}
	if errs != nil {
		if bad > maxRowErrors {
			errs = multierr.Append(errs, fmt.Errorf("%d more malformed rows", bad-maxRowErrors))
		}
		return nil, errs
	}
	return records, nil
}

func parseRow(row []string, width int) (record, error) {
	if len(row) < 2 {
		return record{}, fmt.Errorf("want label and at least one value, got %d fields", len(row))
	}
	label := strings.TrimSpace(row[0])
	if label == "" {
		return record{}, errors.New("empty label")
	}
	if width >= 0 && len(row)-1 != width {
		return record{}, fmt.Errorf("%d values, want %d", len(row)-1, width)
	}

	values := make([]float64, len(row)-1)
	for i, field := range row[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return record{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		values[i] = v
	}
	return record{label: label, values: values}, nil
}
