package scenario

// Case is one expectation against the gate. When Output is set the case
// screens that text; otherwise it evaluates the tool call.
type Case struct {
	Tool    string         `yaml:"tool,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Context map[string]any `yaml:"context,omitempty"`
	Output  string         `yaml:"output,omitempty"`
	Expect  string         `yaml:"expect"`
	// Policy, when set, must appear in the decision's policy field.
	Policy string `yaml:"policy,omitempty"`
}

// Scenario is a named collection of gate test cases. Sequential scenarios
// share one caller history across cases, so chain and velocity rules see
// the earlier calls; otherwise every case starts clean.
type Scenario struct {
	Name       string `yaml:"name"`
	Sequential bool   `yaml:"sequential,omitempty"`
	Cases      []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Tool     string `json:"tool"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Policy   string `json:"policy"`
	Risk     int    `json:"risk"`
	// Layer names the trace step that settled the decision, e.g. "L4 policy".
	Layer  string `json:"layer,omitempty"`
	Reason string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
