package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simcraft/simcraft/sim"
	"github.com/simcraft/simcraft/sim/loader"
	"github.com/simcraft/simcraft/sim/trace"
)

var (
	// CLI flags shared across subcommands
	modelPath string // path to a model file (.yaml/.yml or DSL)
	logLevel  string // log verbosity level
	traceFlag string // "none" or "decisions"

	// run/step flags
	steps     int
	until     float64
	outFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "simcraft",
	Short: "Discrete-event simulator for resource-flow models",
}

// loadModel builds a Simulation from modelPath, picking the DSL or YAML
// surface by file extension. Both surfaces lower to the same loader.Document
// before a process is constructed, so a model behaves identically either
// way (spec.md §6).
func loadModel(path string) (*sim.Simulation, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return loader.BuildFromYAMLFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return loader.BuildFromDSL(string(src))
}

// attachTrace installs a trace.Recorder on s per the --trace flag, or does
// nothing for "none"/"". It returns the trace so the caller can print
// trace.Summarize after the run.
func attachTrace(s *sim.Simulation) *trace.SimulationTrace {
	if !trace.IsValidLevel(traceFlag) {
		logrus.Fatalf("invalid trace level: %s", traceFlag)
	}
	level := trace.Level(traceFlag)
	if level == trace.LevelNone || level == "" {
		return nil
	}
	tr := trace.NewSimulationTrace(trace.Config{Level: level})
	s.AttachTrace(tr)
	return tr
}

func printTraceSummary(tr *trace.SimulationTrace) {
	if tr == nil {
		return
	}
	summary := trace.Summarize(tr)
	b, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(b))
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd loads a model and steps it to completion, printing the final
// state.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model to a step count or a target time",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if modelPath == "" {
			logrus.Fatalf("--model is required")
		}

		s, err := loadModel(modelPath)
		if err != nil {
			logrus.Fatalf("loading model: %v", err)
		}
		tr := attachTrace(s)

		if until > 0 {
			if _, err := s.StepUntil(until); err != nil {
				logrus.Fatalf("run: %v", err)
			}
		} else {
			if _, err := s.StepN(steps); err != nil {
				logrus.Fatalf("run: %v", err)
			}
		}

		snap := s.GetSimulationState()
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			logrus.Fatalf("encoding snapshot: %v", err)
		}
		fmt.Println(string(b))
		printTraceSummary(tr)
	},
}

// validateCmd loads a model without stepping it, reporting parse and
// construction errors without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and build a model without running it",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if modelPath == "" {
			logrus.Fatalf("--model is required")
		}
		if _, err := loadModel(modelPath); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Println("OK")
	},
}

// stepCmd loads a model, steps it, and prints the events delivered and the
// resulting state as JSON, or with --format dsl the model's YAML dump
// (without the delivered events).
var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Step a model and print the events delivered",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if modelPath == "" {
			logrus.Fatalf("--model is required")
		}

		s, err := loadModel(modelPath)
		if err != nil {
			logrus.Fatalf("loading model: %v", err)
		}
		tr := attachTrace(s)

		events, err := s.StepN(steps)
		if err != nil {
			logrus.Fatalf("step: %v", err)
		}

		switch outFormat {
		case "dsl":
			printDSLDump(s)
		default:
			out := struct {
				Events   []sim.Event  `json:"events"`
				Snapshot sim.Snapshot `json:"snapshot"`
			}{Events: events, Snapshot: s.GetSimulationState()}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				logrus.Fatalf("encoding result: %v", err)
			}
			fmt.Println(string(b))
		}
		printTraceSummary(tr)
	},
}

// printDSLDump prints s's current configuration as YAML, via loader.Dump
// and loader.DumpYAML. There is no dedicated DSL writer — YAML is the
// canonical dump form (spec.md §6), so --format dsl prints YAML, not the
// inline block DSL.
func printDSLDump(s *sim.Simulation) {
	doc := loader.Dump(s)
	b, err := loader.DumpYAML(doc)
	if err != nil {
		logrus.Fatalf("encoding dump: %v", err)
	}
	fmt.Print(string(b))
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&traceFlag, "trace", "none", "Decision trace level (none, decisions)")

	runCmd.Flags().StringVar(&modelPath, "model", "", "Path to a model file (.yaml or DSL)")
	runCmd.Flags().IntVar(&steps, "steps", math.MaxInt32, "Number of steps to run")
	runCmd.Flags().Float64Var(&until, "until", 0, "Run until the clock reaches this time (overrides --steps)")

	validateCmd.Flags().StringVar(&modelPath, "model", "", "Path to a model file (.yaml or DSL)")

	stepCmd.Flags().StringVar(&modelPath, "model", "", "Path to a model file (.yaml or DSL)")
	stepCmd.Flags().IntVar(&steps, "steps", 1, "Number of steps to take")
	stepCmd.Flags().StringVar(&outFormat, "format", "json", "Output format (json, dsl)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(stepCmd)
}
