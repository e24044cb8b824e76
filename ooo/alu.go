package ooo

import (
	"fmt"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// ALU models one execution pipe: a one-slot issue buffer feeding a
// compute stage, and a one-slot result latch behind it. Results move
// from the latch onto the ALU's result bus one cycle after they are
// computed, giving the pipe its two-cycle occupancy.
type ALU struct {
	id    int
	latch *aluResult
}

// NewALU creates the execution pipe with the given index. The index
// breaks ties when several ready instructions issue in the same cycle.
func NewALU(id int) *ALU {
	return &ALU{id: id}
}

// Step advances the pipe by one cycle. The latched result from the
// previous cycle is published on the result bus, then a newly issued
// entry (if any) is computed into the latch.
func (a *ALU) Step(state *State) {
	if a.latch != nil && state.resultBuses[a.id] == nil {
		state.resultBuses[a.id] = a.latch
		a.latch = nil
	}

	if a.latch != nil || state.aluQueues[a.id] == nil {
		return
	}

	entry := state.aluQueues[a.id]
	state.aluQueues[a.id] = nil
	a.latch = a.compute(entry)
}

// compute evaluates one integer operation. Division and remainder by
// zero raise the exception flag instead of producing a value.
func (a *ALU) compute(entry *aluQueueEntry) *aluResult {
	result := &aluResult{
		destRegister: entry.destRegister,
		pc:           entry.pc,
	}

	switch entry.op {
	case insts.OpAdd, insts.OpAddi:
		result.result = entry.opAValue + entry.opBValue
	case insts.OpSub:
		result.result = entry.opAValue - entry.opBValue
	case insts.OpMulu:
		result.result = entry.opAValue * entry.opBValue
	case insts.OpDivu:
		if entry.opBValue == 0 {
			result.exception = true
			break
		}
		result.result = entry.opAValue / entry.opBValue
	case insts.OpRemu:
		if entry.opBValue == 0 {
			result.exception = true
			break
		}
		result.result = entry.opAValue % entry.opBValue
	default:
		panic(fmt.Sprintf("ooo: unknown opcode %q at execute", entry.op.Mnemonic()))
	}

	return result
}

// flush drops any in-flight work in the pipe.
func (a *ALU) flush(state *State) {
	a.latch = nil
	state.aluQueues[a.id] = nil
	state.resultBuses[a.id] = nil
}
