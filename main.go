// Package main provides the entry point overview for the CS-470
// homework tools: an out-of-order superscalar processor simulator and
// a VLIW scheduling compiler.
//
// For the actual CLIs, use: go run ./cmd/simulator or go run ./cmd/compiler
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("CS-470 homework tools")
	fmt.Println("")
	fmt.Println("Binaries:")
	fmt.Println("  simulator <input.json> <output.json>")
	fmt.Println("      Cycle-accurate out-of-order pipeline simulation with")
	fmt.Println("      per-cycle state snapshots.")
	fmt.Println("  compiler <input.json> <loop_out.json> <looppip_out.json>")
	fmt.Println("      VLIW scheduling: a non-pipelined loop schedule and a")
	fmt.Println("      software-pipelined (modulo) schedule.")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/simulator' or 'go run ./cmd/compiler' for the full CLIs.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use the cmd binaries instead.")
	}
}
