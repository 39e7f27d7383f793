package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/kernels"
	ramnet_runtime "github.com/sbl8/ramnet/runtime"
)

var (
	testType = flag.String("test", "all", "Test type: all, node, parallel, encode, classify")
	width    = flag.Int("width", 16, "Node address width")
	inputs   = flag.Int("inputs", 784, "Input vector length for classify tests")
	tuple    = flag.Int("tuple", 28, "Address width for classify tests")
	classes  = flag.Int("classes", 10, "Number of classes for classify tests")
	iter     = flag.Int("iter", 100000, "Number of iterations")
	seed     = flag.Uint64("seed", 1, "Data generator seed")
	verbose  = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	fmt.Printf("ramnet Performance Analysis Tool\n")
	fmt.Printf("================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Node Width: %d bits\n", *width)
	fmt.Printf("Iterations: %d\n", *iter)
	fmt.Printf("\n")

	rng := rand.New(rand.NewPCG(*seed, 0))

	var err error
	switch *testType {
	case "all":
		err = runAllTests(rng)
	case "node":
		err = runNodeTests(rng)
	case "parallel":
		err = runParallelTests(rng)
	case "encode":
		err = runEncodeTests(rng)
	case "classify":
		err = runClassifyTests(rng)
	default:
		fmt.Printf("Unknown test type: %s\n", *testType)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ramperf: %v\n", err)
		os.Exit(1)
	}
}

func runAllTests(rng *rand.Rand) error {
	fmt.Printf("Running comprehensive performance tests...\n\n")
	for _, fn := range []func(*rand.Rand) error{runNodeTests, runParallelTests, runEncodeTests, runClassifyTests} {
		if err := fn(rng); err != nil {
			return err
		}
	}
	return nil
}

func opsPerSecond(n int, d time.Duration) float64 {
	return float64(n) / d.Seconds()
}

func runNodeTests(rng *rand.Rand) error {
	fmt.Printf("Node Storage Performance\n")
	fmt.Printf("------------------------\n")

	addrs := randomAddresses(rng, *iter, *width)
	for _, kind := range []core.StorageKind{core.Dense, core.Sparse} {
		n, err := core.MakeNode(*width, kind)
		if err != nil {
			fmt.Printf("%-6s skipped: %v\n", kind, err)
			continue
		}

		start := time.Now()
		if err := trainAll(n, addrs); err != nil {
			return err
		}
		trainTime := time.Since(start)

		start = time.Now()
		if err := respondAll(n, addrs); err != nil {
			return err
		}
		responseTime := time.Since(start)

		fmt.Printf("%-6s Train:     %v (%.2f Mops/s)\n", kind, trainTime, opsPerSecond(len(addrs), trainTime)/1e6)
		fmt.Printf("%-6s Response:  %v (%.2f Mops/s)\n", kind, responseTime, opsPerSecond(len(addrs), responseTime)/1e6)
		if *verbose {
			fmt.Printf("  Memory: %d bytes, Hamming weight %d of %d cells\n", n.MemoryBytes(), n.HammingWeight(), n.Size())
		}
	}

	fmt.Printf("Dense preferred for %d entries: %t\n", *iter, core.PreferDense(*width, *iter, core.DefaultMaxDenseWidth))
	fmt.Printf("\n")
	return nil
}

func runParallelTests(rng *rand.Rand) error {
	fmt.Printf("Concurrent Training Performance\n")
	fmt.Printf("-------------------------------\n")

	workers := runtime.NumCPU()
	addrs := randomAddresses(rng, *iter, *width)
	for _, kind := range []core.StorageKind{core.Dense, core.Sparse} {
		n, err := core.MakeNode(*width, kind)
		if err != nil {
			fmt.Printf("%-6s skipped: %v\n", kind, err)
			continue
		}

		start := time.Now()
		g, _ := errgroup.WithContext(context.Background())
		chunk := (len(addrs) + workers - 1) / workers
		for lo := 0; lo < len(addrs); lo += chunk {
			part := addrs[lo:min(lo+chunk, len(addrs))]
			g.Go(func() error { return trainAll(n, part) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
		d := time.Since(start)

		fmt.Printf("%-6s Train x%d:  %v (%.2f Mops/s)\n", kind, workers, d, opsPerSecond(len(addrs), d)/1e6)
	}

	fmt.Printf("\n")
	return nil
}

func runEncodeTests(rng *rand.Rand) error {
	fmt.Printf("Encoding Kernel Performance\n")
	fmt.Printf("---------------------------\n")

	values := make([]float64, *inputs)
	for i := range values {
		values[i] = rng.Float64() * 255
	}
	rounds := max(*iter / *inputs, 1)

	tests := []struct {
		op     kernels.Op
		params kernels.Params
	}{
		{kernels.OpThreshold, kernels.Params{Cut: 128}},
		{kernels.OpThermometer, kernels.Params{Max: 255, Levels: 8}},
		{kernels.OpOneHot, kernels.Params{Max: 255, Levels: 8}},
		{kernels.OpBytes, kernels.Params{}},
	}
	for _, test := range tests {
		e, err := kernels.NewEncoder(test.op, test.params, *inputs)
		if err != nil {
			return err
		}
		pool := kernels.NewVectorPool(e.Width(), 1)

		start := time.Now()
		for i := 0; i < rounds; i++ {
			v, err := e.EncodePooled(pool, values)
			if err != nil {
				return err
			}
			pool.Put(v)
		}
		d := time.Since(start)

		fmt.Printf("%-12s: %v (%.2f Mvalues/s, %d bits per record)\n",
			test.op, d, opsPerSecond(rounds*(*inputs), d)/1e6, e.Width())
	}

	fmt.Printf("\n")
	return nil
}

func runClassifyTests(rng *rand.Rand) error {
	fmt.Printf("Classifier Performance\n")
	fmt.Printf("----------------------\n")

	labels := make([]string, *classes)
	for i := range labels {
		labels[i] = fmt.Sprintf("class-%d", i)
	}
	rounds := max(*iter / 100, 1)

	for _, kind := range []core.StorageKind{core.Dense, core.Sparse} {
		c, err := ramnet_runtime.NewClassifier(labels, ramnet_runtime.DiscriminatorConfig{
			InputBits: *inputs,
			TupleSize: *tuple,
			Storage:   kind,
			Seed:      *seed,
		}, nil)
		if err != nil {
			fmt.Printf("%-6s skipped: %v\n", kind, err)
			continue
		}

		samples := make([]ramnet_runtime.Sample, rounds)
		for i := range samples {
			samples[i] = ramnet_runtime.Sample{Label: labels[i%len(labels)], Input: randomBits(rng, *inputs)}
		}

		ctx := context.Background()
		start := time.Now()
		if err := c.TrainBatch(ctx, samples); err != nil {
			return err
		}
		trainTime := time.Since(start)

		start = time.Now()
		for _, s := range samples {
			if _, err := c.Classify(ctx, s.Input); err != nil {
				return err
			}
		}
		classifyTime := time.Since(start)

		fmt.Printf("%-6s TrainBatch: %v (%.2f samples/s)\n", kind, trainTime, opsPerSecond(len(samples), trainTime))
		fmt.Printf("%-6s Classify:   %v (%.2f samples/s)\n", kind, classifyTime, opsPerSecond(len(samples), classifyTime))
		if *verbose {
			fmt.Printf("  Memory: %d bytes across %d classes\n", c.MemoryBytes(), len(labels))
		}
	}

	fmt.Printf("\n")
	return nil
}

func trainAll(n core.Node, addrs []core.Address) error {
	for _, a := range addrs {
		if err := n.Train(a); err != nil {
			return fmt.Errorf("%s train: %w", n.StorageKind(), err)
		}
	}
	return nil
}

func respondAll(n core.Node, addrs []core.Address) error {
	for _, a := range addrs {
		if _, err := n.Response(a); err != nil {
			return fmt.Errorf("%s response: %w", n.StorageKind(), err)
		}
	}
	return nil
}

func randomAddresses(rng *rand.Rand, n, width int) []core.Address {
	mask := uint64(1)<<uint(width) - 1
	addrs := make([]core.Address, n)
	for i := range addrs {
		addrs[i] = core.Address(rng.Uint64() & mask)
	}
	return addrs
}

func randomBits(rng *rand.Rand, n int) []bool {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = rng.IntN(2) == 1
	}
	return bits
}
