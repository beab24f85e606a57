package comm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairOrdering(t *testing.T) {
	const count = 100
	g := NewGroup("test", 2)
	g.Go(0, func(c *Comm) error {
		for i := 0; i < count; i++ {
			if err := c.Send(1, Tag(i%3), float64(i)); err != nil {
				return err
			}
		}
		return nil
	})
	received := make([]float64, 0, count)
	g.Go(1, func(c *Comm) error {
		for i := 0; i < count; i++ {
			msg, err := c.Recv(0, AnyTag)
			if err != nil {
				return err
			}
			received = append(received, msg.Value)
		}
		return nil
	})
	require.NoError(t, g.Run())
	for i, v := range received {
		require.Equal(t, float64(i), v, "message %d out of order", i)
	}
}

func TestRecvMatching(t *testing.T) {
	g := NewGroup("test", 3)
	g.Go(0, func(c *Comm) error {
		return c.Send(2, 7, 1.0)
	})
	g.Go(1, func(c *Comm) error {
		return c.Send(2, 9, 2.0)
	})
	var bySource, byTag Message
	g.Go(2, func(c *Comm) error {
		// Match on source regardless of arrival order.
		msg, err := c.Recv(1, AnyTag)
		if err != nil {
			return err
		}
		bySource = msg
		// Then match the remaining message by tag.
		msg, err = c.Recv(AnySource, 7)
		if err != nil {
			return err
		}
		byTag = msg
		return nil
	})
	require.NoError(t, g.Run())
	require.Equal(t, Message{Source: 1, Tag: 9, Value: 2.0}, bySource)
	require.Equal(t, Message{Source: 0, Tag: 7, Value: 1.0}, byTag)
}

// TestMutualExchange checks that two members which both
// send before receiving in every round make progress, the
// pattern the reduction protocol relies on.
func TestMutualExchange(t *testing.T) {
	const rounds = 50
	g := NewGroup("test", 2)
	for r := 0; r < 2; r++ {
		rank := Rank(r)
		peer := Rank(1 - r)
		g.Go(rank, func(c *Comm) error {
			for i := 0; i < rounds; i++ {
				if err := c.Send(peer, 0, float64(i)); err != nil {
					return err
				}
				msg, err := c.Recv(peer, AnyTag)
				if err != nil {
					return err
				}
				if msg.Value != float64(i) {
					return fmt.Errorf("round %d: got %f", i, msg.Value)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Run())
}

func TestAbortUnblocksReceiver(t *testing.T) {
	cause := errors.New("boom")
	g := NewGroup("test", 2)
	g.Go(0, func(c *Comm) error {
		return cause
	})
	var recvErr error
	g.Go(1, func(c *Comm) error {
		_, recvErr = c.Recv(AnySource, AnyTag)
		return nil
	})
	require.ErrorIs(t, g.Run(), cause)
	require.ErrorIs(t, recvErr, ErrAborted)
}

func TestDeadlockDetection(t *testing.T) {
	g := NewGroup("test", 2)
	for r := 0; r < 2; r++ {
		rank := Rank(r)
		g.Go(rank, func(c *Comm) error {
			_, err := c.Recv(AnySource, AnyTag)
			return err
		})
	}
	require.ErrorIs(t, g.Run(), ErrDeadlock)
}

// A member that finishes cleanly while the rest are parked
// must still trigger deadlock detection for the remainder.
func TestDeadlockAfterMemberExit(t *testing.T) {
	g := NewGroup("test", 2)
	g.Go(0, func(c *Comm) error {
		return nil
	})
	g.Go(1, func(c *Comm) error {
		_, err := c.Recv(0, AnyTag)
		return err
	})
	require.ErrorIs(t, g.Run(), ErrDeadlock)
}

// TestEchoNoSpuriousDeadlock drives the interleaving where
// one member has been handed a message but not yet woken
// while the last active member parks: the group must not
// mistake that for a deadlock.
func TestEchoNoSpuriousDeadlock(t *testing.T) {
	for i := 0; i < 200; i++ {
		g := NewGroup("test", 2)
		g.Go(0, func(c *Comm) error {
			if err := c.Send(1, 0, 1.0); err != nil {
				return err
			}
			_, err := c.Recv(1, AnyTag)
			return err
		})
		g.Go(1, func(c *Comm) error {
			msg, err := c.Recv(0, AnyTag)
			if err != nil {
				return err
			}
			return c.Send(0, 0, msg.Value)
		})
		require.NoError(t, g.Run())
	}
}

// A pending message that matches no parked receiver's
// source/tag criteria must not mask a real deadlock.
func TestDeadlockWithUnmatchedPending(t *testing.T) {
	g := NewGroup("test", 2)
	g.Go(0, func(c *Comm) error {
		if err := c.Send(1, 7, 1.0); err != nil {
			return err
		}
		_, err := c.Recv(1, AnyTag)
		return err
	})
	g.Go(1, func(c *Comm) error {
		// Waits for a tag that is never sent.
		_, err := c.Recv(0, 5)
		return err
	})
	require.ErrorIs(t, g.Run(), ErrDeadlock)
}

func TestSendInvalidRank(t *testing.T) {
	g := NewGroup("test", 2)
	var sendErr error
	g.Go(0, func(c *Comm) error {
		sendErr = c.Send(5, 0, 1.0)
		return nil
	})
	g.Go(1, func(c *Comm) error {
		return nil
	})
	require.NoError(t, g.Run())
	require.ErrorIs(t, sendErr, ErrInvalidRank)
}

func TestSendAfterAbort(t *testing.T) {
	cause := errors.New("boom")
	g := NewGroup("test", 2)
	g.Go(0, func(c *Comm) error {
		return cause
	})
	var sendErr error
	g.Go(1, func(c *Comm) error {
		// Wait until the abort has propagated.
		if _, err := c.Recv(0, AnyTag); !errors.Is(err, ErrAborted) {
			return fmt.Errorf("expected abort, got %v", err)
		}
		sendErr = c.Send(0, 0, 1.0)
		return nil
	})
	require.ErrorIs(t, g.Run(), cause)
	require.ErrorIs(t, sendErr, ErrAborted)
}
