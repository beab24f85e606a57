package comm

import "errors"

var (
	// ErrAborted is returned from Send and Recv once the
	// group has been torn down by a fatal error on any
	// member. The cause is reported by Group.Run.
	ErrAborted = errors.New("group aborted")

	// ErrDeadlock is the abort cause when every running
	// member of the group is blocked in Recv at once, so
	// no message can ever arrive again.
	ErrDeadlock = errors.New("deadlock: all members are blocked in Recv")

	// ErrInvalidRank is returned by Send for a destination
	// outside the group.
	ErrInvalidRank = errors.New("rank outside group")
)
