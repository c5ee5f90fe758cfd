// Package service wraps the decision pipeline with the state around it:
// call history, receipts, the review queue, alerts and the decision stream.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/agentgate/internal/alert"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/audit"
	"github.com/ppiankov/agentgate/internal/control"
	"github.com/ppiankov/agentgate/internal/events"
	"github.com/ppiankov/agentgate/internal/gate"
	"github.com/ppiankov/agentgate/internal/history"
	"github.com/ppiankov/agentgate/internal/identity"
	"github.com/ppiankov/agentgate/internal/policy"
)

// Paths locates the reloadable configuration files. Empty paths use the
// defaults under ~/.agentgate.
type Paths struct {
	Policy   string
	Registry string
	Tables   string
}

// Options wires a Service. Nil collaborators are replaced by in-memory or
// no-op implementations.
type Options struct {
	Paths      Paths
	History    history.Store
	Audit      *audit.Log
	Reviews    *approval.Store
	Alerts     *alert.Dispatcher
	Events     events.Publisher
	Degraded   *control.Flag
	KillSwitch *control.KillSwitch
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	eval     *gate.Evaluator
	paths    Paths
	history  history.Store
	audit    *audit.Log
	reviews  *approval.Store
	alerts   *alert.Dispatcher
	events   events.Publisher
	degraded *control.Flag
	kill     *control.KillSwitch
	log      *slog.Logger
	now      func() time.Time

	reloadMu sync.Mutex
}

// New loads configuration from opts.Paths and builds the service.
func New(opts Options) (*Service, error) {
	snap, warnings, err := LoadSnapshot(opts.Paths)
	if err != nil {
		return nil, err
	}

	s := &Service{
		paths:    opts.Paths,
		history:  opts.History,
		audit:    opts.Audit,
		reviews:  opts.Reviews,
		alerts:   opts.Alerts,
		events:   opts.Events,
		degraded: opts.Degraded,
		kill:     opts.KillSwitch,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.degraded == nil {
		s.degraded = &control.Flag{}
	}
	if s.kill == nil {
		s.kill = control.NewKillSwitch()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.warn(warnings)
	s.eval = gate.NewEvaluator(snap, gate.Config{Degraded: s.degraded, Now: s.now})
	return s, nil
}

// LoadSnapshot reads the policy file, agent registry and pattern tables and
// compiles them into one snapshot. Unreadable or unparseable files and
// duplicate active policy ids are errors. Other validation problems (bad
// regexes, unknown actions) come back as warnings; the offending entries
// never match or fail closed.
func LoadSnapshot(p Paths) (*gate.Snapshot, []error, error) {
	pcfg, hash, err := policy.LoadConfigWithHash(p.Policy)
	if err != nil {
		return nil, nil, fmt.Errorf("load policies: %w", err)
	}
	policies := pcfg.Effective()
	warnings := policy.Validate(policies)
	for _, w := range warnings {
		if errors.Is(w, policy.ErrDuplicateID) {
			return nil, nil, fmt.Errorf("load policies: %w", w)
		}
	}

	reg, err := identity.LoadRegistry(p.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("load registry: %w", err)
	}

	tables, err := gate.LoadTables(p.Tables)
	if err != nil {
		return nil, nil, fmt.Errorf("load tables: %w", err)
	}
	warnings = append(warnings, tables.Validate()...)

	return gate.NewSnapshot(policies, reg, tables, hash), warnings, nil
}

func (s *Service) warn(warnings []error) {
	for _, w := range warnings {
		s.log.Warn("configuration problem", "error", w)
	}
}

// Reload rebuilds the snapshot from disk and swaps it in. On error the
// current snapshot stays in effect.
func (s *Service) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, warnings, err := LoadSnapshot(s.paths)
	if err != nil {
		s.log.Error("reload failed, keeping current configuration", "error", err)
		return err
	}
	s.warn(warnings)
	old := s.eval.Swap(snap)
	s.log.Info("configuration reloaded", "policy_hash", snap.PolicyHash, "previous_hash", old.PolicyHash)
	return nil
}

// Snapshot returns the configuration in effect.
func (s *Service) Snapshot() *gate.Snapshot {
	return s.eval.Snapshot()
}

// Paths returns the files Reload reads.
func (s *Service) Paths() Paths {
	return s.paths
}

// Close waits for in-flight alerts and releases every backend.
func (s *Service) Close() error {
	s.alerts.Wait()
	var errs []error
	if err := s.history.Close(); err != nil && !errors.Is(err, history.ErrStoreClosed) {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit log: %w", err))
		}
	}
	if err := s.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close events: %w", err))
	}
	return errors.Join(errs...)
}
