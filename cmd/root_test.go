package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeModelFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing model file: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

const sourceToPoolYAML = `
processes:
  - id: source1
    type: Source
  - id: pool1
    type: Pool
    capacity: 10
connections:
  - id: conn1
    source_id: source1
    target_id: pool1
    flow_rate: 2.0
`

func TestRunCmd_ValidModel_PrintsFinalSnapshot(t *testing.T) {
	path := writeModelFile(t, "model.yaml", sourceToPoolYAML)
	modelPath, steps, until, traceFlag, logLevel = path, 3, 0, "none", "error"

	output := captureStdout(t, func() { runCmd.Run(runCmd, nil) })

	assert.Contains(t, output, `"Step": 3`, "run must print the post-run snapshot")
	assert.Contains(t, output, "pool1", "snapshot must include every registered process")
}

func TestValidateCmd_ValidModel_PrintsOK(t *testing.T) {
	path := writeModelFile(t, "model.yaml", sourceToPoolYAML)
	modelPath, logLevel = path, "error"

	output := captureStdout(t, func() { validateCmd.Run(validateCmd, nil) })

	assert.Equal(t, "OK\n", output)
}

func TestStepCmd_JSONFormat_IncludesEventsAndSnapshot(t *testing.T) {
	path := writeModelFile(t, "model.yaml", sourceToPoolYAML)
	modelPath, steps, outFormat, logLevel = path, 1, "json", "error"

	output := captureStdout(t, func() { stepCmd.Run(stepCmd, nil) })

	assert.Contains(t, output, `"events"`)
	assert.Contains(t, output, `"snapshot"`)
}

func TestStepCmd_DSLFormat_PrintsYAMLDump(t *testing.T) {
	path := writeModelFile(t, "model.yaml", sourceToPoolYAML)
	modelPath, steps, outFormat, logLevel = path, 1, "dsl", "error"

	output := captureStdout(t, func() { stepCmd.Run(stepCmd, nil) })

	assert.Contains(t, output, "processes:")
	assert.Contains(t, output, "connections:")
}

func TestLoadModel_DSLSource_BuildsSameShapeAsYAML(t *testing.T) {
	dsl := `
processes {
    source "source1" {}
    pool "pool1" { capacity: 10 }
}
connections {
    "source1.out" -> "pool1.in" { id: "conn1", flow_rate: 2.0 }
}
`
	path := writeModelFile(t, "model.dsl", dsl)
	s, err := loadModel(path)
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	if len(s.Processes()) != 2 { // source1, pool1 — no Stepper is auto-inserted
		t.Errorf("expected 2 processes, got %d", len(s.Processes()))
	}
}
