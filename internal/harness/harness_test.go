package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosMatchGolden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "Expectations that cannot hold",
		Flow: []FlowStep{
			{Run: []string{"cart", "add", "no-such-dish"}},
			{Run: []string{"cart"}, Expect: &ExpectClause{Exit: 0, Stdout: []string{"Margherita"}}},
		},
		Assertions: []Assertion{
			{Type: AssertOrderCount, Count: 1},
			{Type: AssertLoggedIn, LoggedIn: true},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, 1, result.Steps[0].Exit, "unknown dish is NOT_FOUND")
	assert.Contains(t, result.Steps[0].Stderr, "menu item no-such-dish was not found")
	assert.Contains(t, result.Steps[1].Stdout, "Your cart is empty.")

	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "exit 1, want 0")
	assert.Contains(t, result.Errors[1], `stdout does not contain "Margherita"`)
	assert.Contains(t, result.Errors[2], "server has 0 orders, want 1")
	assert.Contains(t, result.Errors[3], "staff token persisted = false, want true")
}

func TestRun_ServerStepOnMissingOrder(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_order",
		Description: "set_status before any order exists",
		Flow: []FlowStep{
			{Server: &ServerStep{Action: ActionSetStatus, Order: 1, Status: "Accepted"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 1 does not exist")
}

func TestRun_JSONOutput(t *testing.T) {
	scenario := &Scenario{
		Name:        "json_cart",
		Description: "Machine-readable cart output",
		Flow: []FlowStep{
			{Run: []string{"cart", "add", "drink-lassi"}},
			{Run: []string{"--format", "json", "cart"}},
			{Run: []string{"--format", "json", "cart", "add", "drink-cola"}, Expect: &ExpectClause{Exit: 1}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.JSONEq(t, `{
		"status": "ok",
		"data": {
			"items": [{"_id": "drink-lassi", "name": "Sweet Lassi", "price": 60, "category": "Drinks", "quantity": 1}],
			"count": 1,
			"subtotal": 60,
			"tax": 3,
			"total": 63
		}
	}`, result.Steps[1].Stdout)
	assert.JSONEq(t, `{
		"status": "error",
		"error": {"code": "VALIDATION", "message": "Cola is currently unavailable"}
	}`, result.Steps[2].Stdout)
}
