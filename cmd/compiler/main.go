// Package main provides the VLIW scheduling compiler CLI.
//
// Usage: compiler [options] <input.json> <loop_out.json> <looppip_out.json>
//
// The input is a JSON array of assembly strings. Each output is a
// JSON array of 5-element bundles, one string per functional slot in
// the order [ALU0, ALU1, MUL, MEM, BRANCH].
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
	"github.com/thecodehen/epfl-cs470-s25-hw/vliw"
)

var verbose = flag.Bool("v", false, "Print the parsed program and the schedules")

func main() {
	flag.Parse()

	if flag.NArg() != 3 {
		fmt.Fprintf(os.Stderr,
			"Usage: compiler [options] <input.json> <loop_out.json> <looppip_out.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	lines, err := readProgram(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading program: %v\n", err)
		os.Exit(1)
	}

	parser := insts.NewParser()
	program, err := parser.ParseProgram(lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		for i, inst := range program {
			fmt.Printf("%05d: %s\n", i, inst)
		}
	}

	loopSchedule := vliw.NewLoopCompiler(program).Compile()
	if *verbose {
		fmt.Printf("\nloop schedule:\n%s", loopSchedule.Format())
	}
	if err := writeJSON(flag.Arg(1), loopSchedule.Render()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing loop output: %v\n", err)
		os.Exit(1)
	}

	loopPipSchedule := vliw.NewLoopPipCompiler(program).Compile()
	if *verbose {
		fmt.Printf("\nloop.pip schedule:\n%s", loopPipSchedule.Format())
	}
	if err := writeJSON(flag.Arg(2), loopPipSchedule.Render()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing loop.pip output: %v\n", err)
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
