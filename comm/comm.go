// Package comm implements a fixed-size group of concurrent
// processes that communicate through blocking, tagged
// point-to-point message passing.
//
// Each member runs in its own Goroutine and owns a mailbox
// of incoming messages. Sends never block the caller; a
// receive blocks its own member until a matching message
// arrives. Messages between a fixed pair of ranks are
// delivered in send order.
package comm

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/unixpickle/essentials"
)

// A Rank identifies one member of a group.
type Rank int

// A Tag distinguishes kinds of messages between the same
// pair of ranks.
type Tag int

const (
	// AnySource matches a message from any rank in Recv.
	AnySource Rank = -1

	// AnyTag matches a message with any tag in Recv.
	AnyTag Tag = -1
)

// A GroupContext is a member's immutable identity within
// its group.
type GroupContext struct {
	Rank Rank
	Size int
}

// A Message is a single payload passed between two ranks.
type Message struct {
	Source Rank
	Tag    Tag
	Value  float64
}

type mailbox struct {
	cond    *sync.Cond
	pending []Message

	// Set while the owning member is parked in Recv with
	// no deliverable message. A matching Send clears it
	// before signaling, so the group's parked count never
	// includes a member that has mail waiting for it.
	waiting bool
	wantSrc Rank
	wantTag Tag
}

// A Group is a fixed set of members which communicate by
// message passing and fail as a unit.
//
// Members are registered with Go and started together by
// Run. A member function returning a non-nil error aborts
// the entire group: every parked receiver is unblocked
// with ErrAborted and Run reports the first cause.
type Group struct {
	id     string
	name   string
	size   int
	logger *log.Logger

	mu        sync.Mutex
	mailboxes []*mailbox
	members   []func(c *Comm) error

	running int
	parked  int
	aborted bool
	cause   error
}

// NewGroup creates a group with the given number of
// members. The name prefixes every diagnostic line the
// members log.
func NewGroup(name string, size int) *Group {
	if size < 1 {
		panic("group must have at least one member")
	}
	g := &Group{
		id:        uuid.NewString(),
		name:      name,
		size:      size,
		logger:    log.New(os.Stderr, "", 0),
		mailboxes: make([]*mailbox, size),
		members:   make([]func(c *Comm) error, size),
	}
	for i := range g.mailboxes {
		g.mailboxes[i] = &mailbox{cond: sync.NewCond(&g.mu)}
	}
	return g
}

// ID returns the unique identifier of this group instance.
func (g *Group) ID() string {
	return g.id
}

// Size returns the number of members in the group.
func (g *Group) Size() int {
	return g.size
}

// SetOutput redirects the group's diagnostic output.
func (g *Group) SetOutput(logger *log.Logger) {
	g.logger = logger
}

// Go registers the function run by the member with the
// given rank. It must be called before Run, exactly once
// per participating rank.
func (g *Group) Go(rank Rank, f func(c *Comm) error) {
	if rank < 0 || int(rank) >= g.size {
		panic(fmt.Sprintf("rank %d outside group of size %d", rank, g.size))
	}
	if g.members[rank] != nil {
		panic(fmt.Sprintf("rank %d registered twice", rank))
	}
	g.members[rank] = f
}

// Run starts every registered member in its own Goroutine
// and blocks until all of them have returned.
//
// The return value is nil on a clean run, or the first
// fatal error if the group was aborted.
func (g *Group) Run() error {
	var wg sync.WaitGroup
	g.mu.Lock()
	for rank, f := range g.members {
		if f == nil {
			continue
		}
		g.running++
		wg.Add(1)
		c := &Comm{group: g, ctx: GroupContext{Rank: Rank(rank), Size: g.size}}
		fn := f
		go func() {
			defer wg.Done()
			err := fn(c)
			g.mu.Lock()
			g.running--
			if err != nil {
				g.abortLocked(err)
			} else {
				g.checkDeadlockLocked()
			}
			g.mu.Unlock()
		}()
	}
	g.mu.Unlock()
	wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cause
}

// abortLocked records the first fatal error and wakes
// every parked receiver. Callers must hold g.mu.
func (g *Group) abortLocked(err error) {
	if g.aborted {
		return
	}
	g.aborted = true
	g.cause = err
	for _, mb := range g.mailboxes {
		mb.cond.Broadcast()
	}
}

// checkDeadlockLocked aborts the group when every member
// that is still running is parked in Recv with nothing
// deliverable: no send can ever happen again, so none of
// them can make progress. A member that has already been
// handed a matching message is not counted as parked even
// if it has not woken up yet. Callers must hold g.mu.
func (g *Group) checkDeadlockLocked() {
	if !g.aborted && g.running > 0 && g.parked == g.running {
		g.abortLocked(ErrDeadlock)
	}
}

// A Comm is one member's handle on its group.
//
// A Comm must only be used from the Goroutine of the
// member it was created for.
type Comm struct {
	group *Group
	ctx   GroupContext
}

// Context returns the member's rank and the group size.
func (c *Comm) Context() GroupContext {
	return c.ctx
}

// GroupID returns the identifier of the enclosing group.
func (c *Comm) GroupID() string {
	return c.group.id
}

// Send hands one value off to the destination's mailbox
// and returns immediately. The payload is copied before
// return, so two members sending to each other in the
// same round cannot deadlock.
//
// Send fails only for a destination outside the group or
// after the group has been aborted; both are fatal to the
// caller.
func (c *Comm) Send(dst Rank, tag Tag, value float64) error {
	if dst < 0 || int(dst) >= c.group.size {
		return fmt.Errorf("send from rank %d to %d: %w", c.ctx.Rank, dst, ErrInvalidRank)
	}
	g := c.group
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return ErrAborted
	}
	mb := g.mailboxes[dst]
	msg := Message{Source: c.ctx.Rank, Tag: tag, Value: value}
	mb.pending = append(mb.pending, msg)
	if mb.waiting && msg.matches(mb.wantSrc, mb.wantTag) {
		// Hand the message to the parked receiver: its
		// parked state must be cleared here, not when it
		// wakes, or the deadlock check could count a
		// member that has deliverable mail.
		mb.waiting = false
		g.parked--
		mb.cond.Signal()
	}
	return nil
}

// matches reports whether the message satisfies a Recv
// with the given source and tag, honoring wildcards.
func (m Message) matches(src Rank, tag Tag) bool {
	return (src == AnySource || m.Source == src) && (tag == AnyTag || m.Tag == tag)
}

// Recv blocks until the oldest message matching the given
// source and tag is available in the member's mailbox and
// returns it. AnySource and AnyTag act as wildcards.
//
// Recv returns ErrAborted once the group is torn down.
func (c *Comm) Recv(src Rank, tag Tag) (Message, error) {
	g := c.group
	mb := g.mailboxes[c.ctx.Rank]
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if g.aborted {
			return Message{}, ErrAborted
		}
		for i, msg := range mb.pending {
			if msg.matches(src, tag) {
				essentials.OrderedDelete(&mb.pending, i)
				return msg, nil
			}
		}
		mb.waiting = true
		mb.wantSrc, mb.wantTag = src, tag
		g.parked++
		// Parking may complete a deadlock; recheck before
		// waiting or this member would miss its own wakeup.
		g.checkDeadlockLocked()
		if g.aborted {
			mb.waiting = false
			g.parked--
			return Message{}, ErrAborted
		}
		mb.cond.Wait()
		if mb.waiting {
			// Woken by an abort broadcast rather than by a
			// delivering Send.
			mb.waiting = false
			g.parked--
		}
	}
}

// Logf writes a diagnostic line prefixed with the group
// name and the member's rank.
func (c *Comm) Logf(format string, args ...interface{}) {
	prefix := fmt.Sprintf("%s(%d): ", c.group.name, c.ctx.Rank)
	c.group.logger.Printf(prefix+format, args...)
}
