package service

import (
	"time"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/gate"
)

// Status is a point-in-time view of the control plane.
type Status struct {
	Degraded         bool     `json:"degraded"`
	KillSwitchGlobal bool     `json:"kill_switch_global"`
	KillSwitchAgents []string `json:"kill_switch_agents,omitempty"`
	PolicyHash       string   `json:"policy_hash"`
	Policies         int      `json:"policies"`
	Agents           int      `json:"agents"`
}

// SetDegraded turns degraded mode on or off and returns the previous state.
func (s *Service) SetDegraded(on bool) bool {
	prev := s.degraded.Set(on)
	if prev != on {
		s.log.Warn("degraded mode changed", "degraded", on)
		if on {
			s.alerts.Dispatch(alert.Event{
				Timestamp:   s.now().UTC().Format(audit.TimestampFormat),
				Kind:        alert.KindDegraded,
				Decision:    "block",
				Risk:        100,
				Policy:      gate.PolicyDegraded,
				Explanation: "degraded mode enabled: every call is blocked",
			})
		}
	}
	return prev
}

// SetKillSwitch flips the kill switch for agentID, or the global switch
// when agentID is empty.
func (s *Service) SetKillSwitch(agentID string, on bool) {
	s.kill.Set(agentID, on)
	s.log.Warn("kill switch changed", "agent_id", agentID, "active", on)
	if on {
		s.alerts.Dispatch(alert.Event{
			Timestamp:   s.now().UTC().Format(audit.TimestampFormat),
			Kind:        alert.KindKillSwitch,
			AgentID:     agentID,
			Decision:    "block",
			Risk:        100,
			Policy:      gate.PolicyKillSwitch,
			Explanation: "kill switch engaged",
		})
	}
}

// Status reports degraded mode, kill switches and the loaded configuration.
func (s *Service) Status() Status {
	global, agents := s.kill.Status()
	snap := s.eval.Snapshot()
	return Status{
		Degraded:         s.degraded.Active(),
		KillSwitchGlobal: global,
		KillSwitchAgents: agents,
		PolicyHash:       snap.PolicyHash,
		Policies:         len(snap.Engine.Policies()),
		Agents:           len(snap.Registry.IDs()),
	}
}

// Pending lists review items still waiting on a reviewer.
func (s *Service) Pending() ([]approval.Item, error) {
	if s.reviews == nil {
		return nil, ErrNoReviewQueue
	}
	return s.reviews.List(approval.StatusPending)
}

// Resolve approves or denies a pending review item.
func (s *Service) Resolve(id string, approve bool, reviewer, note string) (*approval.Item, error) {
	if s.reviews == nil {
		return nil, ErrNoReviewQueue
	}
	var (
		it  *approval.Item
		err error
	)
	if approve {
		it, err = s.reviews.Approve(id, reviewer, note)
	} else {
		it, err = s.reviews.Deny(id, reviewer, note)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("review resolved", "receipt_id", id, "status", it.Status, "reviewer", reviewer,
		"waited", time.Since(it.CreatedAt).Round(time.Second))
	return it, nil
}
