package engine

import "errors"

var (
	// ErrAlreadyActive is returned when a quiz start is requested for a
	// (guild, channel) pair that already has an unfinished session.
	ErrAlreadyActive = errors.New("engine: a quiz is already active in this channel")

	// ErrNoSession is returned by stop/status/leaderboard queries when no
	// session exists for the (guild, channel) pair.
	ErrNoSession = errors.New("engine: no active quiz in this channel")

	// ErrSessionClosed is returned when a command is submitted to a session
	// whose owning task has already terminated.
	ErrSessionClosed = errors.New("engine: session closed")

	// ErrInvariant marks a detected internal invariant breach. Sessions
	// terminate defensively when it occurs.
	ErrInvariant = errors.New("engine: internal invariant violated")
)
