package hypercube

import (
	"fmt"
	"io"

	"github.com/hypercube-reduce/comm"
	"github.com/hypercube-reduce/numscan"
)

// Distributor runs the distinguished rank-0 role.
//
// It reads numeric values from sc and sends the n-th value
// to rank n+1 until every one of the 2^dim workers has
// been seeded. Surplus values are discarded with a
// diagnostic; fewer values than workers is a fatal
// configuration error detected before fan-in. Once the
// workers are seeded, the first value tagged as a final
// result is written to out as the reduction result. Every
// worker converges to the same value, so one message from
// any of them suffices.
func Distributor(c *comm.Comm, dim int, sc *numscan.Scanner, out io.Writer) error {
	workers := 1 << dim

	n := 0
	for {
		value, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if n >= workers {
			c.Logf("warning: too many numeric entities on the list. "+
				"%d values were expected but this is the %dth. "+
				"Only first %d values will be taken into account",
				workers, 1+n, workers)
			break
		}
		// The first worker is rank 1; rank 0 is us.
		if err := c.Send(comm.Rank(1+n), TagSeed, value); err != nil {
			return fmt.Errorf("seed rank %d: %w", 1+n, err)
		}
		n++
	}

	if n < workers {
		return fmt.Errorf("invalid number of values on the list: expected exactly %d but got %d", workers, n)
	}

	msg, err := c.Recv(comm.AnySource, TagFinalResult)
	if err != nil {
		return fmt.Errorf("receive result: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%f\n", msg.Value); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
