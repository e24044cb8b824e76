// Package benchmarks provides a harness running canonical assembly
// programs through the out-of-order simulator and the VLIW compiler.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
	"github.com/thecodehen/epfl-cs470-s25-hw/ooo"
	"github.com/thecodehen/epfl-cs470-s25-hw/vliw"
)

// Result holds the measurements for a single benchmark run.
type Result struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the cycle count of the out-of-order run
	SimulatedCycles uint64 `json:"simulated_cycles,omitempty"`

	// InstructionsRetired is the number of committed instructions
	InstructionsRetired uint64 `json:"instructions_retired,omitempty"`

	// ExceptionOccurred reports whether the run ended in a rollback
	ExceptionOccurred bool `json:"exception_occurred,omitempty"`

	// LoopBundles is the non-pipelined schedule length
	LoopBundles int `json:"loop_bundles,omitempty"`

	// LoopPipBundles is the software-pipelined schedule length
	LoopPipBundles int `json:"looppip_bundles,omitempty"`

	// WallTime is the actual time taken to run the benchmark
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the assembly source, one instruction per line
	Program []string

	// Simulate runs the program through the out-of-order pipeline
	Simulate bool

	// Compile runs the program through both VLIW compilers
	Compile bool
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// MaxCycles bounds each simulation run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		MaxCycles: 100000,
		Output:    os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) (Result, error) {
	result := Result{
		Name:        bench.Name,
		Description: bench.Description,
	}

	start := time.Now()

	if bench.Simulate {
		simulator := ooo.NewSimulator(bench.Program)
		if _, _, err := simulator.Run(h.config.MaxCycles); err != nil {
			return result, err
		}
		result.SimulatedCycles = simulator.Cycles()
		result.InstructionsRetired = simulator.InstructionsRetired()
		result.ExceptionOccurred = simulator.ExceptionOccurred()
	}

	if bench.Compile {
		program, err := insts.NewParser().ParseProgram(bench.Program)
		if err != nil {
			return result, err
		}
		result.LoopBundles = len(vliw.NewLoopCompiler(program).Compile())
		result.LoopPipBundles = len(vliw.NewLoopPipCompiler(program).Compile())
	}

	result.WallTime = time.Since(start)
	return result, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		if r.SimulatedCycles > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
			_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
			_, _ = fmt.Fprintf(h.config.Output, "  Exception Occurred:   %v\n", r.ExceptionOccurred)
		}
		if r.LoopBundles > 0 || r.LoopPipBundles > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Loop Bundles:         %d\n", r.LoopBundles)
			_, _ = fmt.Fprintf(h.config.Output, "  Loop.pip Bundles:     %d\n", r.LoopPipBundles)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,exception,loop_bundles,looppip_bundles")
	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%v,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.ExceptionOccurred,
			r.LoopBundles,
			r.LoopPipBundles,
		)
	}
}

// PrintJSON outputs benchmark results as indented JSON.
func (h *Harness) PrintJSON(results []Result) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
