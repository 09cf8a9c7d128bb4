package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/jwebster45206/farm-engine/integration/runner"
)

const casesDir = "cases"

// failureDetail tracks information about a specific step failure
type failureDetail struct {
	caseName string
	stepName string
	error    string
}

// loadJobs loads every case file under dir, expanding sequences. Cases
// referenced by a sequence are run once, not once per reference.
func loadJobs(t *testing.T, files []string) []runner.TestJob {
	t.Helper()

	seen := map[string]bool{}
	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, casesDir)
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		for _, job := range expanded {
			if seen[job.CaseFile] {
				continue
			}
			seen[job.CaseFile] = true
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}
	return jobs
}

// runJobs runs each job through r as a subtest and returns the step failures.
func runJobs(ctx context.Context, t *testing.T, r *runner.Runner, jobs []runner.TestJob) []failureDetail {
	t.Helper()

	var failures []failureDetail
	for _, job := range jobs {
		t.Run(job.Name, func(t *testing.T) {
			result, err := r.RunSuite(ctx, job.Suite)
			if err != nil && result.Error == nil {
				result.Error = err
			}
			t.Logf("World ID: %s", result.WorldID.String())

			for _, step := range result.Results {
				if step.Success {
					t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
					continue
				}
				t.Errorf("   ✗ %s: %v", step.StepName, step.Error)
				failures = append(failures, failureDetail{
					caseName: job.Name,
					stepName: step.StepName,
					error:    step.Error.Error(),
				})
			}
			if result.Error != nil && len(result.Results) == 0 {
				t.Errorf("Test suite '%s' failed: %v", job.Name, result.Error)
			}
		})
	}
	return failures
}

// buildFailureReport groups step failures by case for the final log
func buildFailureReport(failures []failureDetail) string {
	var sb strings.Builder
	sb.WriteString("\n========================================\n")
	sb.WriteString("Detailed Failure Report\n")
	sb.WriteString("========================================\n")

	byCase := make(map[string][]failureDetail)
	for _, f := range failures {
		byCase[f.caseName] = append(byCase[f.caseName], f)
	}
	names := make([]string, 0, len(byCase))
	for name := range byCase {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&sb, "\n%s (%d step failure(s)):\n", name, len(byCase[name]))
		for _, f := range byCase[name] {
			fmt.Fprintf(&sb, "  ✗ %s:\n      %s\n", f.stepName, f.error)
		}
	}
	sb.WriteString("\n========================================\n")
	return sb.String()
}

// discoverTestFiles returns the JSON case files in dir, sorted.
func discoverTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// caseFiles maps -case style names ("market,delivery") to paths.
func caseFiles(names string) []string {
	var files []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		files = append(files, filepath.Join(casesDir, name))
	}
	return files
}

func getIntEnv(name string, defaultValue int) int {
	str := os.Getenv(name)
	if str == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}
	return val
}
