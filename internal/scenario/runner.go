package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentgate/internal/gate"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// Run evaluates all cases in a scenario against snap with a private
// evaluator. Nothing is recorded outside the run.
func Run(s *Scenario, snap *gate.Snapshot) *RunResult {
	ev := gate.NewEvaluator(snap, gate.Config{})
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	var history []model.HistoryEntry
	for i, c := range s.Cases {
		cr := CaseResult{
			Index:    i + 1,
			Tool:     c.Tool,
			Expected: strings.ToLower(strings.TrimSpace(c.Expect)),
		}

		if c.Output != "" {
			cr.Tool = "<output>"
			octx := model.OutputContext{}
			ctx := model.ContextFromMap(c.Context)
			octx.AgentID = ctx.AgentID
			octx.SessionID = ctx.SessionID
			d := ev.EvaluateOutput(c.Output, octx)
			cr.Actual = string(d.Decision)
			cr.Risk = d.Risk
			cr.Reason = d.Explanation
			cr.Layer = decidingLayer(d.Trace)
			for _, f := range d.Flags {
				if cr.Policy != "" {
					cr.Policy += ","
				}
				cr.Policy += f.ID
			}
		} else {
			req := model.ActionRequest{
				Tool:    c.Tool,
				Args:    model.ArgsFromMap(c.Args),
				Context: model.ContextFromMap(c.Context),
			}
			var prior []model.HistoryEntry
			if s.Sequential {
				prior = history
			}
			d := ev.Evaluate(req, nil, false, prior)
			cr.Actual = string(d.Decision)
			cr.Risk = d.Risk
			cr.Policy = d.Policy
			cr.Reason = d.Explanation
			cr.Layer = decidingLayer(d.Trace)
			if s.Sequential {
				history = model.CapHistory(append(history, model.HistoryEntry{
					Tool:      c.Tool,
					Policy:    d.Policy,
					Decision:  d.Decision,
					Risk:      d.Risk,
					Timestamp: time.Now().UTC(),
				}))
			}
		}

		cr.Passed = cr.Actual == cr.Expected &&
			(c.Policy == "" || strings.Contains(cr.Policy, c.Policy))
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// decidingLayer returns the last step that did not pass, or the final step
// of a clean trace.
func decidingLayer(trace []model.TraceStep) string {
	if len(trace) == 0 {
		return ""
	}
	st := trace[len(trace)-1]
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Outcome != model.OutcomePass {
			st = trace[i]
			break
		}
	}
	return fmt.Sprintf("L%d %s", st.Layer, st.Key)
}

// Load parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	for i, c := range s.Cases {
		if c.Tool == "" && c.Output == "" {
			return nil, fmt.Errorf("scenario %s: case %d has neither tool nor output", path, i+1)
		}
		if c.Expect == "" {
			return nil, fmt.Errorf("scenario %s: case %d has no expect", path, i+1)
		}
	}
	return &s, nil
}

// LoadAndRun loads a scenario file and the configuration named by paths,
// then runs it.
func LoadAndRun(path string, paths service.Paths) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	snap, _, err := service.LoadSnapshot(paths)
	if err != nil {
		return nil, err
	}

	result := Run(s, snap)
	result.File = path
	return result, nil
}
