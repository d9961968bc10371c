package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/foodking/internal/cli"
	"github.com/roach88/foodking/internal/devserver"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/testutil"
)

// Start is the fixed time of every demo server the harness creates.
var Start = time.Date(2026, time.March, 14, 12, 30, 0, 0, time.UTC)

// Harness holds one scenario's server and client state.
type Harness struct {
	server *devserver.Server
	http   *httptest.Server
	dir    string
	config string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh demo server with a fresh state
// directory. Execution flow:
// 1. Start the demo server and write a client config pointing at it
// 2. Apply setup steps to the server
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the final state
//
// Failed expectations and assertions are reported in the result; the
// returned error is for scenarios that could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness()
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		if err := h.apply(step); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Flow {
		if step.Server != nil {
			if err := h.apply(*step.Server); err != nil {
				return nil, fmt.Errorf("flow[%d]: %w", i, err)
			}
			result.Steps = append(result.Steps, StepResult{Server: step.Server.String()})
			continue
		}
		sr := h.runCLI(ctx, step.Run)
		result.Steps = append(result.Steps, sr)
		for _, msg := range checkExpect(i, step.Expect, sr) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Server:    h.server,
		StatePath: h.statePath(),
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness() (*Harness, error) {
	dir, err := os.MkdirTemp("", "foodking-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	ids := testutil.NewSequentialKeys("fk")
	srv, err := devserver.NewDemo(
		devserver.WithClock(func() time.Time { return Start }),
		devserver.WithIDs(func() string {
			id, _ := ids.Next()
			return id
		}),
		devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to seed demo server: %w", err)
	}

	h := &Harness{
		server: srv,
		http:   httptest.NewServer(srv),
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
	}
	cfg, err := yaml.Marshal(map[string]string{
		"api_url":    h.http.URL + "/api",
		"state_path": h.statePath(),
	})
	if err == nil {
		err = os.WriteFile(h.config, cfg, 0o600)
	}
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to write client config: %w", err)
	}
	return h, nil
}

func (h *Harness) close() {
	h.http.Close()
	os.RemoveAll(h.dir)
}

func (h *Harness) statePath() string {
	return filepath.Join(h.dir, "state.db")
}

// runCLI runs the CLI once with output captured.
func (h *Harness) runCLI(ctx context.Context, args []string) StepResult {
	full := append([]string{"--config", h.config, "--env-file", ""}, args...)
	var stdout, stderr bytes.Buffer
	code := cli.Execute(ctx, full, &stdout, &stderr)
	return StepResult{
		Args:   args,
		Exit:   code,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
}

// apply performs a server step.
func (h *Harness) apply(step ServerStep) error {
	switch step.Action {
	case ActionSetStatus:
		orders := h.server.Orders()
		if step.Order > len(orders) {
			return fmt.Errorf("set_status: order %d does not exist, the server has %d", step.Order, len(orders))
		}
		status, err := model.ParseStatus(step.Status)
		if err != nil {
			return fmt.Errorf("set_status: %w", err)
		}
		return h.server.SetStatus(orders[step.Order-1].ID, status)
	case ActionFailNext:
		h.server.FailNext(step.Code, step.Count)
		return nil
	case ActionExpire:
		h.server.Expire()
		return nil
	default:
		return fmt.Errorf("unknown server action %q", step.Action)
	}
}

// checkExpect compares a CLI run against its expect clause.
func checkExpect(index int, expect *ExpectClause, sr StepResult) []string {
	want := ExpectClause{}
	if expect != nil {
		want = *expect
	}

	var errs []string
	if sr.Exit != want.Exit {
		errs = append(errs, fmt.Sprintf("flow[%d] %v: exit %d, want %d (stderr: %s)",
			index, sr.Args, sr.Exit, want.Exit, strings.TrimSpace(sr.Stderr)))
	}
	for _, s := range want.Stdout {
		if !strings.Contains(sr.Stdout, s) {
			errs = append(errs, fmt.Sprintf("flow[%d] %v: stdout does not contain %q", index, sr.Args, s))
		}
	}
	for _, s := range want.Stderr {
		if !strings.Contains(sr.Stderr, s) {
			errs = append(errs, fmt.Sprintf("flow[%d] %v: stderr does not contain %q", index, sr.Args, s))
		}
	}
	return errs
}
