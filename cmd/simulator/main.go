// Package main provides the out-of-order simulator CLI.
//
// Usage: simulator [options] <input.json> <output.json>
//
// The input is a JSON array of assembly strings. The output is a JSON
// array whose element i is the processor state at the end of cycle i,
// with element 0 holding the initial state.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/thecodehen/epfl-cs470-s25-hw/ooo"
)

var (
	useEngine = flag.Bool("engine", false, "Drive the pipeline on an Akita simulation engine")
	maxCycles = flag.Uint64("max-cycles", 100000, "Stop the simulation after this many cycles")
	verbose   = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: simulator [options] <input.json> <output.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	program, err := readProgram(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading program: %v\n", err)
		os.Exit(1)
	}

	simulator := ooo.NewSimulator(program)

	var snapshots []ooo.Snapshot
	var capped bool
	if *useEngine {
		snapshots, capped, err = ooo.RunOnEngine(simulator, *maxCycles)
	} else {
		snapshots, capped, err = simulator.Run(*maxCycles)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error simulating: %v\n", err)
		os.Exit(1)
	}
	if capped {
		fmt.Fprintf(os.Stderr, "Warning: stopped after %d cycles\n", *maxCycles)
	}

	if *verbose {
		fmt.Printf("Program: %d instructions\n", len(program))
		fmt.Printf("Cycles: %d\n", simulator.Cycles())
		fmt.Printf("Exception occurred: %v\n", simulator.ExceptionOccurred())
	}

	if err := writeJSON(flag.Arg(1), snapshots); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

// readProgram loads the JSON array of assembly lines.
func readProgram(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var program []string
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, err
	}
	return program, nil
}

// writeJSON dumps a value as indented JSON.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
