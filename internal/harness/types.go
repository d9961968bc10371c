package harness

import (
	"fmt"
	"strings"
)

// StepResult records one flow step.
type StepResult struct {
	// Args are the CLI arguments; nil for server steps.
	Args []string `json:"args,omitempty"`

	// Server describes a server step; empty for CLI runs.
	Server string `json:"server,omitempty"`

	Exit   int    `json:"exit"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Steps holds the flow in execution order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Transcript renders the flow as a shell session: each CLI run with its
// stdout and exit code, and each server step as a comment. Stderr is left
// out because it carries timestamped logs.
func (r *Result) Transcript() string {
	var b strings.Builder
	for _, s := range r.Steps {
		if s.Server != "" {
			fmt.Fprintf(&b, "# server: %s\n\n", s.Server)
			continue
		}
		fmt.Fprintf(&b, "$ foodking %s\n", shellJoin(s.Args))
		b.WriteString(s.Stdout)
		fmt.Fprintf(&b, "[exit %d]\n\n", s.Exit)
	}
	return b.String()
}

func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

func (s ServerStep) String() string {
	switch s.Action {
	case ActionSetStatus:
		return fmt.Sprintf("set_status order=%d status=%q", s.Order, s.Status)
	case ActionFailNext:
		return fmt.Sprintf("fail_next code=%d count=%d", s.Code, s.Count)
	default:
		return s.Action
	}
}
