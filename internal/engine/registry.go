package engine

import (
	"sync"
	"time"
)

// sessionKey identifies a session slot: one active quiz per (guild, channel).
type sessionKey struct {
	guildID   string
	channelID string
}

// SessionRegistry maps (guild, channel) to the running session's Runner.
// It is the only process-global mutable structure in the engine; all methods
// run under a short critical section.
type SessionRegistry struct {
	mu      sync.Mutex
	runners map[sessionKey]*Runner
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{runners: make(map[sessionKey]*Runner)}
}

// Add claims the (guild, channel) slot for r. Returns [ErrAlreadyActive]
// when an unfinished session already holds it.
func (reg *SessionRegistry) Add(r *Runner) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := sessionKey{guildID: r.GuildID(), channelID: r.ChannelID()}
	if _, exists := reg.runners[k]; exists {
		return ErrAlreadyActive
	}
	reg.runners[k] = r
	return nil
}

// Get returns the runner holding the slot, if any.
func (reg *SessionRegistry) Get(guildID, channelID string) (*Runner, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.runners[sessionKey{guildID: guildID, channelID: channelID}]
	return r, ok
}

// Remove releases the slot, but only while r still holds it, so a finished
// runner cannot evict its successor. Idempotent.
func (reg *SessionRegistry) Remove(r *Runner) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := sessionKey{guildID: r.GuildID(), channelID: r.ChannelID()}
	if reg.runners[k] == r {
		delete(reg.runners, k)
	}
}

// Len returns the number of live sessions.
func (reg *SessionRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.runners)
}

// Snapshot returns the current runners. The slice is a copy; the runners
// themselves are shared.
func (reg *SessionRegistry) Snapshot() []*Runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]*Runner, 0, len(reg.runners))
	for _, r := range reg.runners {
		out = append(out, r)
	}
	return out
}

// Sweep signals expiry to every session idle longer than inactivity or
// alive longer than hardCap. Returns how many sessions were signalled.
func (reg *SessionRegistry) Sweep(now time.Time, inactivity, hardCap time.Duration) int {
	expired := 0
	for _, r := range reg.Snapshot() {
		switch {
		case now.Sub(r.LastActivity()) > inactivity:
			r.Expire("inactivity")
			expired++
		case now.Sub(r.StartedAt()) > hardCap:
			r.Expire("time limit reached")
			expired++
		}
	}
	return expired
}
