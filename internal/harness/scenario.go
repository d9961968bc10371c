package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/foodking/internal/model"
)

// Scenario is an end-to-end run of the CLI against a demo server.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup changes the server before the flow starts.
	Setup []ServerStep `yaml:"setup,omitempty"`

	// Flow is the sequence of CLI runs and server changes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final server and client state.
	Assertions []Assertion `yaml:"assertions"`
}

// ServerStep changes the demo server directly.
type ServerStep struct {
	Action string `yaml:"action"`
	Order  int    `yaml:"order,omitempty"`
	Status string `yaml:"status,omitempty"`
	Code   int    `yaml:"code,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Server action constants.
const (
	ActionSetStatus = "set_status"
	ActionFailNext  = "fail_next"
	ActionExpire    = "expire"
)

// FlowStep is either a CLI run or a server change.
type FlowStep struct {
	// Run holds the CLI arguments, without the program name.
	Run []string `yaml:"run,omitempty"`

	// Server changes the server instead of running the CLI.
	Server *ServerStep `yaml:"server,omitempty"`

	// Expect checks the run. If nil, the run must exit 0.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies how a CLI run must end.
type ExpectClause struct {
	Exit int `yaml:"exit"`

	// Stdout and Stderr list substrings the output must contain.
	Stdout []string `yaml:"stdout,omitempty"`
	Stderr []string `yaml:"stderr,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	Type     string `yaml:"type"`
	Order    int    `yaml:"order,omitempty"`
	Status   string `yaml:"status,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	LoggedIn bool   `yaml:"logged_in,omitempty"`
}

// Assertion type constants.
const (
	AssertOrderCount  = "order_count"
	AssertOrderStatus = "order_status"
	AssertCartCount   = "cart_count"
	AssertLoggedIn    = "logged_in"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateServerStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		switch {
		case step.Server != nil && len(step.Run) > 0:
			return fmt.Errorf("flow[%d]: run and server are mutually exclusive", i)
		case step.Server != nil:
			if step.Expect != nil {
				return fmt.Errorf("flow[%d]: expect only applies to run steps", i)
			}
			if err := validateServerStep(*step.Server); err != nil {
				return fmt.Errorf("flow[%d].server: %w", i, err)
			}
		case len(step.Run) == 0:
			return fmt.Errorf("flow[%d]: run or server is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateServerStep(step ServerStep) error {
	switch step.Action {
	case ActionSetStatus:
		if step.Order < 1 {
			return fmt.Errorf("order must be 1 or more for set_status")
		}
		if _, err := model.ParseStatus(step.Status); err != nil {
			return err
		}
	case ActionFailNext:
		if step.Code < 400 || step.Code > 599 {
			return fmt.Errorf("code must be an HTTP error status for fail_next")
		}
		if step.Count < 1 {
			return fmt.Errorf("count must be 1 or more for fail_next")
		}
	case ActionExpire:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown server action %q", step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertOrderCount, AssertCartCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertOrderStatus:
		if a.Order < 1 {
			return fmt.Errorf("assertions[%d]: order must be 1 or more for order_status", index)
		}
		if _, err := model.ParseStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertLoggedIn:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
