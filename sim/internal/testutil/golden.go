// Package testutil provides shared test infrastructure for the simcraft
// kernel. It consolidates golden scenario fixtures and assertion helpers
// used across sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ScenarioDataset represents the structure of testdata/scenarios.json.
type ScenarioDataset struct {
	Scenarios []Scenario `json:"scenarios"`
}

// Scenario is one of the concrete testable scenarios (spec.md §8, S1-S6):
// a small model description, a step count to run, and the expected final
// clock and per-process state.
type Scenario struct {
	Name          string                     `json:"name"`
	Steps         int                        `json:"steps"`
	ExpectedTime  float64                    `json:"expected_time"`
	ExpectedStep  uint64                     `json:"expected_step"`
	ExpectedState map[string]map[string]float64 `json:"expected_state"` // process id -> field -> value
}

// LoadScenarioDataset loads the golden scenario dataset from the testdata
// directory. The path is resolved relative to this source file:
// sim/internal/testutil/ -> testdata/.
func LoadScenarioDataset(t *testing.T) *ScenarioDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "testdata", "scenarios.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read scenario dataset: %v", err)
	}

	var dataset ScenarioDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("failed to parse scenario dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
