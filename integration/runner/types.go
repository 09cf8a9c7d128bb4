package runner

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string           `json:"name"`
	SeedWorld state.WorldState `json:"seed_world,omitempty"` // Used for regular tests
	Steps     []TestStep       `json:"steps,omitempty"`      // Used for regular tests
	Cases     []string         `json:"cases,omitempty"`      // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one action against the suite's world and its expected outcome.
// A step may replace Bert's obsession or reset the world to the seed before
// its action runs. A step without an action only checks expectations.
type TestStep struct {
	Name         string           `json:"name,omitempty"`
	Reset        bool             `json:"reset,omitempty"`
	SetObsession *state.Obsession `json:"set_obsession,omitempty"`
	Action       json.RawMessage  `json:"action,omitempty"`
	At           int64            `json:"at,omitempty"`
	Expectations Expectations     `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Outcome of the action
	Applied *bool  `json:"applied,omitempty"`
	Failure string `json:"failure,omitempty"` // rules.Kind; implies the action was rejected

	// Unchanged requires the world to equal its pre-step snapshot
	Unchanged bool `json:"unchanged,omitempty"`

	// World properties - aligned with pkg/state/world.go
	Balance          *string           `json:"balance,omitempty"`
	Inventory        map[string]string `json:"inventory,omitempty"` // exact decimal strings, listed keys only
	Equipped         map[string]string `json:"equipped,omitempty"`
	NPCDeliveries    map[string]int    `json:"npc_deliveries,omitempty"`
	QuestCompletedAt *int64            `json:"quest_completed_at,omitempty"` // Bert's record
	ActivityCount    *int              `json:"activity_count,omitempty"`
	LastActivity     string            `json:"last_activity,omitempty"`
}

// StepOutcome is what a driver reports after applying one action.
type StepOutcome struct {
	Applied bool
	Failure string
	Message string
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Outcome  *StepOutcome
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	WorldID  uuid.UUID // ID of the world used for this test
}
