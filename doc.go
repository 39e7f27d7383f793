// Package ramnet implements a weightless, RAM-based neural network engine.
//
// A ramnet class is not a set of weighted connections but a discriminator:
// a group of binary lookup tables (RAM nodes), each addressed by a few bits
// of the input. Training increments the counter each node finds at its
// address; classification counts how many nodes have seen their address
// before. There are no gradients and no floating point in the core.
//
// # Architecture Overview
//
// The engine consists of several key components:
//
//   - Nodes: fixed-width lookup tables with dense or sparse counter storage
//   - Mappings: seeded, reproducible partitions of input bits across nodes
//   - Discriminators: one node set per class, scored with a bleach threshold
//   - Classifier: one discriminator per label, ties resolved by bleaching
//   - Kernels: encoders turning numeric features into binary vectors
//
// # Basic Usage
//
//	cfg := runtime.DiscriminatorConfig{
//	    InputBits: 784,
//	    TupleSize: 28,
//	    Storage:   core.Sparse,
//	    Seed:      1,
//	}
//	c, err := runtime.NewClassifier([]string{"cat", "dog"}, cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := c.Train("cat", catBits); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Classify(ctx, unknownBits)
//
// # Package Structure
//
//   - core: nodes, bit addressing, error kinds and memory layout helpers
//   - model: input bit mappings
//   - runtime: discriminators and the multi-class classifier
//   - kernels: input binarization kernels
//   - binding: handle-based adapter for foreign callers
//   - cmd: command-line tools (ramnet, ramperf)
package ramnet
