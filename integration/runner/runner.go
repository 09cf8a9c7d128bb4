package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes scenario suites through a Driver
type Runner struct {
	Driver            Driver
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(driver Driver) *Runner {
	return &Runner{
		Driver:            driver,
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	// Every run gets a fresh world ID so suites never collide.
	seed := suite.SeedWorld.Clone()
	seed.ID = uuid.New()

	worldID, err := r.Driver.Seed(ctx, seed)
	if err != nil {
		result.Error = fmt.Errorf("failed to seed world: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.WorldID = worldID
	seed.ID = worldID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, worldID, seed, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, worldID uuid.UUID, seed *state.WorldState, step TestStep) TestResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	result := TestResult{StepName: step.Name}

	outcome, err := r.executeStep(stepCtx, worldID, seed, step)
	result.Duration = time.Since(start)
	result.Outcome = outcome
	if err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

func (r *Runner) executeStep(ctx context.Context, worldID uuid.UUID, seed *state.WorldState, step TestStep) (*StepOutcome, error) {
	if step.Reset {
		if err := r.Driver.Replace(ctx, seed.Clone()); err != nil {
			return nil, fmt.Errorf("failed to reset world: %w", err)
		}
	}
	if step.SetObsession != nil {
		ws, err := r.Driver.World(ctx, worldID)
		if err != nil {
			return nil, err
		}
		o := *step.SetObsession
		ws.BertObsession = &o
		if err := r.Driver.Replace(ctx, ws); err != nil {
			return nil, fmt.Errorf("failed to set obsession: %w", err)
		}
	}

	pre, err := r.Driver.World(ctx, worldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load world before step: %w", err)
	}

	var outcome *StepOutcome
	if len(step.Action) > 0 {
		outcome, err = r.Driver.Apply(ctx, worldID, step.Action, step.At)
		if err != nil {
			return nil, fmt.Errorf("failed to apply action: %w", err)
		}
	}

	post, err := r.Driver.World(ctx, worldID)
	if err != nil {
		return outcome, fmt.Errorf("failed to load world after step: %w", err)
	}
	return outcome, CheckExpectations(step.Expectations, outcome, pre, post)
}

// CheckExpectations compares a step's outcome and resulting world against exp.
func CheckExpectations(exp Expectations, outcome *StepOutcome, pre, post *state.WorldState) error {
	if exp.Failure != "" {
		if outcome == nil {
			return fmt.Errorf("expected failure %s but the step ran no action", exp.Failure)
		}
		if outcome.Applied {
			return fmt.Errorf("expected failure %s, action was applied", exp.Failure)
		}
		if outcome.Failure != exp.Failure {
			return fmt.Errorf("expected failure %s, got %s (%s)", exp.Failure, outcome.Failure, outcome.Message)
		}
	}
	if exp.Applied != nil {
		if outcome == nil {
			return fmt.Errorf("expected applied=%v but the step ran no action", *exp.Applied)
		}
		if outcome.Applied != *exp.Applied {
			return fmt.Errorf("expected applied=%v, got %v (failure %s: %s)", *exp.Applied, outcome.Applied, outcome.Failure, outcome.Message)
		}
	}

	if exp.Unchanged {
		same, err := sameWorld(pre, post)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("expected world to be unchanged")
		}
	}

	if exp.Balance != nil {
		if err := expectDecimal("balance", *exp.Balance, post.Balance); err != nil {
			return err
		}
	}
	for item, want := range exp.Inventory {
		if err := expectDecimal("inventory "+item, want, post.Inventory.Balance(item)); err != nil {
			return err
		}
	}
	for slot, want := range exp.Equipped {
		var got string
		if post.Bumpkin != nil {
			got = post.Bumpkin.Equipped[slot]
		}
		if got != want {
			return fmt.Errorf("expected %q in slot %s, got %q", want, slot, got)
		}
	}
	for npcID, want := range exp.NPCDeliveries {
		got := 0
		if npc, ok := post.NPCs.Get(npcID); ok {
			got = npc.DeliveryCount
		}
		if got != want {
			return fmt.Errorf("expected %d deliveries to %s, got %d", want, npcID, got)
		}
	}
	if exp.QuestCompletedAt != nil {
		bert, ok := post.NPCs.Get(state.BertID)
		if !ok || bert.QuestCompletedAt == nil {
			return fmt.Errorf("expected quest completed at %d, bert has no completion", *exp.QuestCompletedAt)
		}
		if *bert.QuestCompletedAt != *exp.QuestCompletedAt {
			return fmt.Errorf("expected quest completed at %d, got %d", *exp.QuestCompletedAt, *bert.QuestCompletedAt)
		}
	}
	if exp.ActivityCount != nil && len(post.FarmActivity) != *exp.ActivityCount {
		return fmt.Errorf("expected %d activity entries, got %d", *exp.ActivityCount, len(post.FarmActivity))
	}
	if exp.LastActivity != "" {
		if len(post.FarmActivity) == 0 {
			return fmt.Errorf("expected last activity %q, log is empty", exp.LastActivity)
		}
		if got := post.FarmActivity[len(post.FarmActivity)-1].Label; got != exp.LastActivity {
			return fmt.Errorf("expected last activity %q, got %q", exp.LastActivity, got)
		}
	}
	return nil
}

func expectDecimal(what, want string, got decimal.Decimal) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return fmt.Errorf("bad expectation for %s: %w", what, err)
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", what, w, got)
	}
	return nil
}

// sameWorld compares snapshots, ignoring the storage-maintained UpdatedAt.
func sameWorld(a, b *state.WorldState) (bool, error) {
	x, y := a.Clone(), b.Clone()
	x.UpdatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	xa, err := json.Marshal(x)
	if err != nil {
		return false, err
	}
	yb, err := json.Marshal(y)
	if err != nil {
		return false, err
	}
	return string(xa) == string(yb), nil
}
