package hypercube

import (
	"fmt"
	"io"
	"os"

	"github.com/hypercube-reduce/comm"
	"github.com/hypercube-reduce/config"
	"github.com/hypercube-reduce/numscan"
)

// ProgName prefixes every diagnostic line.
const ProgName = "maxreduce"

// Run performs one full reduction described by cfg and
// writes the result to out.
//
// It spawns one group member per rank: rank 0 runs the
// distributor, ranks 1..2^dim run workers. Ranks beyond
// the cube, if the group is larger than the topology
// needs, never participate: the distributor seeds only
// cube ranks and the extra members return immediately, so
// an oversubscribed group still terminates.
//
// Any fatal condition on any member tears the whole group
// down and is returned as a non-nil error.
func Run(cfg config.Config, out io.Writer) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	dim := cfg.Dimension
	cube := 1 << dim
	group := comm.NewGroup(ProgName, cfg.GroupSize)

	group.Go(DistributorRank, func(c *comm.Comm) error {
		c.Logf("group %s: dim=%d size=%d", c.GroupID(), dim, group.Size())
		f, err := os.Open(cfg.InputPath)
		if err != nil {
			return fmt.Errorf("could not open file %q for reading: %w", cfg.InputPath, err)
		}
		defer f.Close()
		sc := numscan.NewScanner(f)
		sc.Warnf = c.Logf
		return Distributor(c, dim, sc, out)
	})

	for r := 1; r < cfg.GroupSize; r++ {
		rank := comm.Rank(r)
		if r > cube {
			group.Go(rank, func(c *comm.Comm) error { return nil })
			continue
		}
		group.Go(rank, func(c *comm.Comm) error {
			_, err := Worker(c, dim)
			return err
		})
	}

	return group.Run()
}
