// Package control holds the operator-settable switches read on every call.
package control

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Flag is a process-wide boolean with single-writer/many-reader semantics.
type Flag struct {
	v atomic.Bool
}

// Active reports whether the flag is set.
func (f *Flag) Active() bool {
	return f != nil && f.v.Load()
}

// Set sets the flag and returns the previous value.
func (f *Flag) Set(on bool) bool {
	return f.v.Swap(on)
}

// KillSwitch is a global switch plus per-agent switches.
type KillSwitch struct {
	global atomic.Bool

	mu     sync.RWMutex
	agents map[string]bool
}

// NewKillSwitch returns a kill switch with everything off.
func NewKillSwitch() *KillSwitch {
	return &KillSwitch{agents: make(map[string]bool)}
}

// SetGlobal engages or releases the global switch.
func (k *KillSwitch) SetGlobal(on bool) {
	k.global.Store(on)
}

// SetAgent engages or releases the switch for one agent.
func (k *KillSwitch) SetAgent(agentID string, on bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if on {
		k.agents[agentID] = true
	} else {
		delete(k.agents, agentID)
	}
}

// Set engages or releases the switch for agentID, or the global switch
// when agentID is empty.
func (k *KillSwitch) Set(agentID string, on bool) {
	if agentID == "" {
		k.SetGlobal(on)
		return
	}
	k.SetAgent(agentID, on)
}

// Active reports whether calls from agentID must be killed.
func (k *KillSwitch) Active(agentID string) bool {
	if k == nil {
		return false
	}
	if k.global.Load() {
		return true
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.agents[agentID]
}

// Status returns the global state and the sorted list of killed agents.
func (k *KillSwitch) Status() (bool, []string) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ids := make([]string, 0, len(k.agents))
	for id := range k.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return k.global.Load(), ids
}
