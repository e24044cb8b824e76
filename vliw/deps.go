// Package vliw provides the VLIW scheduling compiler.
//
// The compiler ingests a straight-line RISC program, optionally
// wrapped by a single counted loop, and emits two bundled schedules: a
// non-pipelined loop schedule and a software-pipelined schedule built
// by modulo scheduling with rotating registers and predicate-driven
// stage control.
package vliw

import (
	"sort"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// Block is a half-open index range of the program forming a basic
// block.
type Block struct {
	Start int
	End   int
}

// Len returns the number of instructions in the block.
func (b Block) Len() int {
	return b.End - b.Start
}

// Contains reports whether the instruction index lies in the block.
func (b Block) Contains(i int) bool {
	return b.Start <= i && i < b.End
}

// registerSpace covers the general registers plus the LC and EC ids.
const registerSpace = 98

// Dependency lists, per instruction, the producers its reads depend
// on, split by edge class. Producer entries are instruction indices,
// sorted and de-duplicated.
type Dependency struct {
	Local         []int
	Interloop     []int
	LoopInvariant []int
	PostLoop      []int
}

// FindBasicBlocks splits the program at its unique loop or loop.pip
// instruction. Without a loop the whole program is one block; with a
// loop at position L targeting S the blocks are [0,S), [S,L+1) and
// [L+1,N).
func FindBasicBlocks(prog []insts.Instruction) []Block {
	for i, inst := range prog {
		if inst.Op.IsBranch() {
			start := int(inst.Imm)
			return []Block{
				{Start: 0, End: start},
				{Start: start, End: i + 1},
				{Start: i + 1, End: len(prog)},
			}
		}
	}
	return []Block{{Start: 0, End: len(prog)}}
}

// producerTable maps each register to the index of its most recent
// producer, or -1.
type producerTable [registerSpace]int

func newProducerTable() producerTable {
	var t producerTable
	for i := range t {
		t[i] = -1
	}
	return t
}

// update records inst as the latest producer of its destination.
func (t *producerTable) update(prog []insts.Instruction, i int) {
	if inst := prog[i]; inst.Op.IsProducer() && inst.Dest < registerSpace {
		t[inst.Dest] = i
	}
}

// readEdge is one consumer read satisfied by a producer.
type readEdge struct {
	producer int
	register uint32
}

// readsOf resolves the registers an instruction reads against a
// producer table.
func (t *producerTable) readsOf(inst insts.Instruction) []readEdge {
	var edges []readEdge
	for _, r := range inst.Reads() {
		if r >= registerSpace {
			continue
		}
		if p := t[r]; p >= 0 {
			edges = append(edges, readEdge{producer: p, register: r})
		}
	}
	return edges
}

// FindDependencies classifies every consumer-producer edge of the
// program as local, interloop, loop-invariant or post-loop.
func FindDependencies(prog []insts.Instruction, blocks []Block) []Dependency {
	deps := make([]Dependency, len(prog))

	// Local edges: a forward sweep per block, tracking the most
	// recent in-block producer of each register.
	for _, block := range blocks {
		producers := newProducerTable()
		for i := block.Start; i < block.End; i++ {
			for _, e := range producers.readsOf(prog[i]) {
				deps[i].Local = append(deps[i].Local, e.producer)
			}
			producers.update(prog, i)
		}
	}

	if len(blocks) == 1 {
		normalizeDependencies(deps)
		return deps
	}

	bb0, bb1, bb2 := blocks[0], blocks[1], blocks[2]

	bb0Producers := newProducerTable()
	for i := bb0.Start; i < bb0.End; i++ {
		bb0Producers.update(prog, i)
	}
	bb1Producers := newProducerTable()
	for i := bb1.Start; i < bb1.End; i++ {
		bb1Producers.update(prog, i)
	}

	// Interloop edges: sweep the loop body backwards so only
	// producers at or after the consumer are visible; the value then
	// comes from the previous iteration. When the same register is
	// also produced in BB0, the preheader producer joins the edge
	// list.
	producers := newProducerTable()
	for i := bb1.End - 1; i >= bb1.Start; i-- {
		producers.update(prog, i)
		for _, e := range producers.readsOf(prog[i]) {
			deps[i].Interloop = append(deps[i].Interloop, e.producer)
			if p0 := bb0Producers[e.register]; p0 >= 0 {
				deps[i].Interloop = append(deps[i].Interloop, p0)
			}
		}
	}

	// Loop-invariant edges: a BB0 producer feeding a BB1 or BB2
	// consumer, unless a body producer masks the register or a local
	// edge already covers it.
	for i := bb1.Start; i < bb1.End; i++ {
		for _, e := range bb0Producers.readsOf(prog[i]) {
			if hasLocalProducer(prog, deps[i], e.register) {
				continue
			}
			if containsInt(deps[i].Interloop, e.producer) {
				continue
			}
			deps[i].LoopInvariant = append(deps[i].LoopInvariant, e.producer)
		}
	}
	for i := bb2.Start; i < bb2.End; i++ {
		for _, e := range bb0Producers.readsOf(prog[i]) {
			if bb1Producers[e.register] >= 0 {
				continue
			}
			if hasLocalProducer(prog, deps[i], e.register) {
				continue
			}
			deps[i].LoopInvariant = append(deps[i].LoopInvariant, e.producer)
		}
	}

	// Post-loop edges: a BB1 producer feeding a BB2 consumer.
	for i := bb2.Start; i < bb2.End; i++ {
		for _, e := range bb1Producers.readsOf(prog[i]) {
			deps[i].PostLoop = append(deps[i].PostLoop, e.producer)
		}
	}

	normalizeDependencies(deps)
	return deps
}

// hasLocalProducer reports whether a local edge of dep already
// produces the register.
func hasLocalProducer(prog []insts.Instruction, dep Dependency, register uint32) bool {
	for _, p := range dep.Local {
		if prog[p].Op.IsProducer() && prog[p].Dest == register {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// normalizeDependencies sorts and de-duplicates every edge list.
func normalizeDependencies(deps []Dependency) {
	for i := range deps {
		deps[i].Local = sortUnique(deps[i].Local)
		deps[i].Interloop = sortUnique(deps[i].Interloop)
		deps[i].LoopInvariant = sortUnique(deps[i].LoopInvariant)
		deps[i].PostLoop = sortUnique(deps[i].PostLoop)
	}
}

func sortUnique(list []int) []int {
	if len(list) < 2 {
		return list
	}
	sort.Ints(list)
	out := list[:1]
	for _, v := range list[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
