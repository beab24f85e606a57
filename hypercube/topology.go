// Package hypercube implements a distributed maximum
// reduction over a hypercube interconnect: 2^dim workers,
// each holding one value, exchange values pairwise along
// the cube's edges until every worker holds the global
// maximum ("recursive doubling"), while a distinguished
// distributor process seeds the workers and collects the
// result.
package hypercube

import "github.com/hypercube-reduce/comm"

// Neighbors returns the ranks a worker exchanges with,
// one per dimension of the cube.
//
// cubeIndex is the worker's 0-based position inside the
// cube, i.e. its rank minus one. The k-th neighbor is the
// node whose index differs in exactly bit k. The order is
// increasing k; the exchange rounds must run in this order
// for the reduction to converge.
func Neighbors(cubeIndex, dim int) []comm.Rank {
	neighbors := make([]comm.Rank, dim)
	for k := 0; k < dim; k++ {
		neighbors[k] = comm.Rank((cubeIndex ^ (1 << k)) + 1)
	}
	return neighbors
}
