// Package insts provides the shared RISC instruction model and the
// textual assembly parser.
//
// Both executables of this repository share this parser, which accepts
// the following assembly subset. The out-of-order simulator executes
// only the arithmetic group; the VLIW compiler schedules every form
// except divu and remu:
//   - arithmetic: add, addi, sub, mulu, divu, remu
//   - memory: ld, st
//   - control: loop, loop.pip, nop
//   - moves: mov rD, rA / mov rD, imm / mov LC|EC, imm / mov pD, true|false
//
// Usage:
//
//	parser := insts.NewParser()
//	prog, err := parser.ParseProgram([]string{"addi x1, x0, 5"})
package insts

import "fmt"

// Op represents an opcode.
type Op uint8

// Opcodes.
const (
	OpUnknown Op = iota
	OpAdd
	OpAddi
	OpSub
	OpMulu
	OpDivu
	OpRemu
	OpLd
	OpSt
	OpLoop
	OpLoopPip
	OpNop
	OpMovReg  // mov rD, rA
	OpMovImm  // mov rD, imm and mov LC|EC, imm
	OpMovPred // mov pD, true|false
)

// Special destination ids for the loop counters. They live above the
// general register space so that a plain uint32 destination field can
// carry them.
const (
	RegLC uint32 = 96
	RegEC uint32 = 97
)

// Mnemonic returns the textual opcode name.
func (o Op) Mnemonic() string {
	switch o {
	case OpAdd:
		return "add"
	case OpAddi:
		return "addi"
	case OpSub:
		return "sub"
	case OpMulu:
		return "mulu"
	case OpDivu:
		return "divu"
	case OpRemu:
		return "remu"
	case OpLd:
		return "ld"
	case OpSt:
		return "st"
	case OpLoop:
		return "loop"
	case OpLoopPip:
		return "loop.pip"
	case OpNop:
		return "nop"
	case OpMovReg, OpMovImm, OpMovPred:
		return "mov"
	}
	return "unknown"
}

// Latency returns the producer-to-consumer latency in cycles.
// Multiplication takes 3 cycles, everything else 1.
func (o Op) Latency() int {
	if o == OpMulu {
		return 3
	}
	return 1
}

// IsProducer reports whether the opcode writes a general register.
// Stores, branches, nop and predicate moves do not produce a value.
func (o Op) IsProducer() bool {
	switch o {
	case OpSt, OpLoop, OpLoopPip, OpNop, OpMovPred, OpUnknown:
		return false
	}
	return true
}

// IsBranch reports whether the opcode terminates a loop body.
func (o Op) IsBranch() bool {
	return o == OpLoop || o == OpLoopPip
}

// Instruction represents a decoded assembly instruction.
type Instruction struct {
	Op Op

	// Dest is the destination register. For st it names the data
	// source; for mov pD it is the predicate index; RegLC/RegEC mark
	// the loop counters.
	Dest uint32

	// OpA is the first source register (the address base for ld/st,
	// the source for mov rD, rA).
	OpA uint32

	// OpB is the second source register of three-operand arithmetic.
	OpB uint32

	// Imm holds the immediate: the addi constant, the ld/st
	// displacement, the loop target, the mov constant, or 1/0 for
	// mov pD, true|false.
	Imm int64

	// ID is the instruction's position in the source program.
	ID int

	// Pred is the predicate register guarding the instruction, valid
	// only when HasPred is set. Only the software-pipelined emitter
	// attaches predicates.
	Pred    uint32
	HasPred bool
}

// Reads returns the general registers the instruction reads, in
// operand order. st reads its data register (Dest) before the address
// base.
func (i Instruction) Reads() []uint32 {
	switch i.Op {
	case OpAdd, OpSub, OpMulu, OpDivu, OpRemu:
		return []uint32{i.OpA, i.OpB}
	case OpAddi, OpLd, OpMovReg:
		return []uint32{i.OpA}
	case OpSt:
		return []uint32{i.Dest, i.OpA}
	}
	return nil
}

// String renders the instruction in the textual assembly form, with
// the predicate prefix when one is attached.
func (i Instruction) String() string {
	s := ""
	if i.HasPred {
		s = fmt.Sprintf("(p%d) ", i.Pred)
	}
	s += i.Op.Mnemonic()

	switch i.Op {
	case OpAdd, OpSub, OpMulu, OpDivu, OpRemu:
		s += fmt.Sprintf(" x%d, x%d, x%d", i.Dest, i.OpA, i.OpB)
	case OpAddi:
		s += fmt.Sprintf(" x%d, x%d, %d", i.Dest, i.OpA, i.Imm)
	case OpLd, OpSt:
		s += fmt.Sprintf(" x%d, %d(x%d)", i.Dest, i.Imm, i.OpA)
	case OpLoop, OpLoopPip:
		s += fmt.Sprintf(" %d", i.Imm)
	case OpMovReg:
		s += fmt.Sprintf(" x%d, x%d", i.Dest, i.OpA)
	case OpMovImm:
		switch i.Dest {
		case RegLC:
			s += fmt.Sprintf(" LC, %d", i.Imm)
		case RegEC:
			s += fmt.Sprintf(" EC, %d", i.Imm)
		default:
			s += fmt.Sprintf(" x%d, %d", i.Dest, i.Imm)
		}
	case OpMovPred:
		if i.Imm != 0 {
			s += fmt.Sprintf(" p%d, true", i.Dest)
		} else {
			s += fmt.Sprintf(" p%d, false", i.Dest)
		}
	}
	return s
}
