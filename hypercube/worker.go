package hypercube

import (
	"fmt"
	"math"

	"github.com/hypercube-reduce/comm"
)

const (
	// DistributorRank is the rank reserved for the
	// distributor; workers occupy ranks 1..2^dim.
	DistributorRank comm.Rank = 0

	// TagSeed marks initial-distribution and exchange
	// messages.
	TagSeed comm.Tag = 0

	// TagFinalResult marks a worker's converged value on
	// its way back to the distributor.
	TagFinalResult comm.Tag = 42
)

// Worker runs the reduction protocol for one worker rank.
//
// It receives its seed value from the distributor, then
// performs dim exchange rounds: in round k it sends its
// current value to neighbor k and receives that neighbor's
// value, keeping the larger of the two. After round k a
// worker's value is the maximum over all workers whose
// cube index differs from its own only in bits 0..k, so
// after the last round every worker holds the group-wide
// maximum. The converged value is sent to the distributor
// and returned for inspection.
func Worker(c *comm.Comm, dim int) (float64, error) {
	rank := c.Context().Rank

	seed, err := c.Recv(DistributorRank, comm.AnyTag)
	if err != nil {
		return 0, fmt.Errorf("worker %d: receive seed: %w", rank, err)
	}
	value := seed.Value

	for _, neighbor := range Neighbors(int(rank)-1, dim) {
		// Send before receive: the paired neighbor does the
		// same, which is safe because Send never blocks.
		if err := c.Send(neighbor, TagSeed, value); err != nil {
			return 0, fmt.Errorf("worker %d: send to %d: %w", rank, neighbor, err)
		}
		msg, err := c.Recv(neighbor, comm.AnyTag)
		if err != nil {
			return 0, fmt.Errorf("worker %d: receive from %d: %w", rank, neighbor, err)
		}
		value = math.Max(value, msg.Value)
	}

	if err := c.Send(DistributorRank, TagFinalResult, value); err != nil {
		return 0, fmt.Errorf("worker %d: report result: %w", rank, err)
	}
	return value, nil
}
