package vliw

import (
	"fmt"
	"strings"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// Functional-unit slot indices within a bundle.
const (
	SlotALU0 = iota
	SlotALU1
	SlotMul
	SlotMem
	SlotBranch
	NumSlots
)

// Per-class functional unit counts of the machine.
const (
	numALUUnits    = 2
	numMulUnits    = 1
	numMemUnits    = 1
	numBranchUnits = 1
)

// noInst marks an empty bundle slot.
const noInst = -1

// Bundle holds one cycle's worth of operations as instruction indices
// into the working program, one per functional slot.
type Bundle [NumSlots]int

func emptyBundle() Bundle {
	return Bundle{noInst, noInst, noInst, noInst, noInst}
}

// slotsFor returns the slots an opcode may occupy, in preference
// order. ALU-class operations try ALU0 before ALU1.
func slotsFor(op insts.Op) []int {
	switch op {
	case insts.OpAdd, insts.OpAddi, insts.OpSub,
		insts.OpMovReg, insts.OpMovImm, insts.OpMovPred, insts.OpNop:
		return []int{SlotALU0, SlotALU1}
	case insts.OpMulu:
		return []int{SlotMul}
	case insts.OpLd, insts.OpSt:
		return []int{SlotMem}
	case insts.OpLoop, insts.OpLoopPip:
		return []int{SlotBranch}
	}
	panic(fmt.Sprintf("vliw: no functional unit for opcode %v", op))
}

// MinInitiationInterval computes the resource-limited lower bound on
// the initiation interval of the loop body: for each functional-unit
// class, the body's operation count divided by the unit count, rounded
// up.
func MinInitiationInterval(prog []insts.Instruction, blocks []Block) int {
	if len(blocks) == 1 {
		return 0
	}

	var alu, mul, mem, branch int
	body := blocks[1]
	for i := body.Start; i < body.End; i++ {
		switch prog[i].Op {
		case insts.OpAdd, insts.OpAddi, insts.OpSub,
			insts.OpMovReg, insts.OpMovImm, insts.OpMovPred:
			alu++
		case insts.OpMulu:
			mul++
		case insts.OpLd, insts.OpSt:
			mem++
		case insts.OpLoop, insts.OpLoopPip:
			branch++
		}
	}

	ii := ceilDiv(alu, numALUUnits)
	ii = max(ii, ceilDiv(mul, numMulUnits))
	ii = max(ii, ceilDiv(mem, numMemUnits))
	ii = max(ii, ceilDiv(branch, numBranchUnits))
	return ii
}

func ceilDiv(a, b int) int {
	if a == 0 {
		return 0
	}
	return 1 + (a-1)/b
}

// Schedule is the emitted form of a compilation: one row per bundle,
// one rendered instruction per slot.
type Schedule [][NumSlots]insts.Instruction

// Render serializes the schedule into the JSON shape: a 5-element
// string array per bundle, empty slots rendered as "nop".
func (s Schedule) Render() [][]string {
	out := make([][]string, 0, len(s))
	for _, bundle := range s {
		row := make([]string, NumSlots)
		for slot, inst := range bundle {
			row[slot] = inst.String()
		}
		out = append(out, row)
	}
	return out
}

// Format renders the schedule as an aligned table for debugging.
func (s Schedule) Format() string {
	const width = 25
	var b strings.Builder
	for i, bundle := range s {
		fmt.Fprintf(&b, "%05d|", i)
		for _, inst := range bundle {
			fmt.Fprintf(&b, "%*s", width, inst.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
