package vliw

import (
	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// unsetReg marks an operand that has not been linked to a producer.
const unsetReg = ^uint32(0)

// LoopCompiler builds the non-pipelined schedule: ASAP list scheduling
// into bundles per basic block, followed by fresh-destination register
// allocation with interloop mov fixups.
type LoopCompiler struct {
	prog     []insts.Instruction
	origSize int
	blocks   []Block
	deps     []Dependency

	bundles   []Bundle
	timeTable []int
	loopStart int
	loopEnd   int

	// Register allocation state. newDest is 0 while unassigned
	// (register x0 is never reallocated); for st it carries the data
	// register.
	newDest []uint32
	newOpA  []uint32
	newOpB  []uint32
	nextReg uint32
}

// NewLoopCompiler creates a compiler over a copy of the program.
func NewLoopCompiler(prog []insts.Instruction) *LoopCompiler {
	c := &LoopCompiler{
		prog:     append([]insts.Instruction{}, prog...),
		origSize: len(prog),
		nextReg:  1,
	}
	return c
}

// Compile schedules the program and allocates registers, returning
// the emitted bundle list.
func (c *LoopCompiler) Compile() Schedule {
	c.blocks = FindBasicBlocks(c.prog)
	c.deps = FindDependencies(c.prog, c.blocks)
	c.timeTable = make([]int, len(c.prog))
	for i := range c.timeTable {
		c.timeTable[i] = -1
	}

	c.scheduleBB0()
	if len(c.blocks) > 1 {
		c.scheduleBB1()
		c.scheduleBB2()
	}

	c.allocateRegisters()

	return c.emit()
}

// earliest computes the ASAP floor of an instruction from the already
// scheduled producers in the given dependency lists.
func (c *LoopCompiler) earliest(floor int, depLists ...[]int) int {
	t := floor
	for _, list := range depLists {
		for _, d := range list {
			if c.timeTable[d] < 0 {
				continue
			}
			t = max(t, c.timeTable[d]+c.prog[d].Op.Latency())
		}
	}
	return t
}

// place walks the bundle list from the earliest feasible time and
// occupies the first free compatible slot, growing the list as needed.
func (c *LoopCompiler) place(i, earliestTime int) {
	for t := earliestTime; ; t++ {
		for len(c.bundles) <= t {
			c.bundles = append(c.bundles, emptyBundle())
		}
		for _, slot := range slotsFor(c.prog[i].Op) {
			if c.bundles[t][slot] == noInst {
				c.bundles[t][slot] = i
				c.timeTable[i] = t
				return
			}
		}
	}
}

func (c *LoopCompiler) scheduleBB0() {
	bb0 := c.blocks[0]
	for i := bb0.Start; i < bb0.End; i++ {
		c.place(i, c.earliest(0, c.deps[i].Local))
	}
}

// scheduleBB1 schedules the loop body. The body floor is pushed past
// every BB0 value the body consumes; the terminating branch lands in
// the last bundle holding body work.
func (c *LoopCompiler) scheduleBB1() {
	bb1 := c.blocks[1]
	if bb1.Len() == 0 {
		c.loopStart = len(c.bundles)
		c.loopEnd = len(c.bundles)
		return
	}

	floor := len(c.bundles)
	for i := bb1.Start; i < bb1.End-1; i++ {
		floor = c.earliest(floor, c.deps[i].LoopInvariant)
		for _, d := range c.deps[i].Interloop {
			if d < bb1.Start {
				floor = max(floor, c.timeTable[d]+c.prog[d].Op.Latency())
			}
		}
	}
	c.loopStart = floor

	for i := bb1.Start; i < bb1.End-1; i++ {
		c.place(i, c.earliest(floor, c.deps[i].Local))
	}

	// The branch prefers the last bundle that holds body work.
	branch := bb1.End - 1
	c.prog[branch].Imm = int64(c.loopStart)
	latest := c.loopStart
	for i := bb1.Start; i < bb1.End-1; i++ {
		latest = max(latest, c.timeTable[i])
	}
	c.place(branch, latest)

	c.loopEnd = len(c.bundles)
}

func (c *LoopCompiler) scheduleBB2() {
	bb2 := c.blocks[2]
	for i := bb2.Start; i < bb2.End; i++ {
		t := c.earliest(len(c.bundles),
			c.deps[i].LoopInvariant, c.deps[i].PostLoop, c.deps[i].Local)
		c.place(i, t)
	}
}

// allocateRegisters runs the four allocation phases in this order:
// fresh destinations in execution order, operand linking through the
// dependency lists, fresh registers for reads with no producer, and
// interloop mov insertion at the loop tail.
func (c *LoopCompiler) allocateRegisters() {
	c.newDest = make([]uint32, len(c.prog))
	c.newOpA = make([]uint32, len(c.prog))
	c.newOpB = make([]uint32, len(c.prog))
	for i := range c.newOpA {
		c.newOpA[i] = unsetReg
		c.newOpB[i] = unsetReg
	}

	c.assignDestinations()
	c.linkOperands()
	c.assignFreshOperands()
	if len(c.blocks) > 1 {
		c.insertInterloopMovs()
	}
}

// assignDestinations gives every producing instruction a fresh
// register, in execution order. Writes to LC and EC keep their special
// ids.
func (c *LoopCompiler) assignDestinations() {
	for _, bundle := range c.bundles {
		for _, id := range bundle {
			if id == noInst {
				continue
			}
			inst := c.prog[id]
			if !inst.Op.IsProducer() {
				continue
			}
			if inst.Dest == insts.RegLC || inst.Dest == insts.RegEC {
				c.newDest[id] = inst.Dest
				continue
			}
			c.newDest[id] = c.nextReg
			c.nextReg++
		}
	}
}

// linkOperands substitutes each consumer's reads with the registers
// its producers were assigned. The first dependency fills op_a and the
// second op_b; st fills dest (the stored data) first; a binary
// operation naming the same source twice takes the producer register
// for both operands at once.
func (c *LoopCompiler) linkOperands() {
	for i := 0; i < c.origSize; i++ {
		dep := c.deps[i]
		c.linkDeps(i, dep.Local)
		c.linkDeps(i, dep.LoopInvariant)
		c.linkDeps(i, dep.PostLoop)

		if len(c.blocks) > 1 && c.blocks[1].Contains(i) {
			for _, d := range dep.Interloop {
				if d < c.blocks[1].Start {
					c.linkOne(i, c.newDest[d])
				}
			}
		}
	}
}

func (c *LoopCompiler) linkDeps(i int, producers []int) {
	for _, d := range producers {
		c.linkOne(i, c.newDest[d])
	}
}

func (c *LoopCompiler) linkOne(i int, r uint32) {
	if r == 0 {
		return
	}
	inst := c.prog[i]
	switch inst.Op {
	case insts.OpAdd, insts.OpSub, insts.OpMulu:
		same := inst.OpA == inst.OpB
		if c.newOpA[i] == unsetReg {
			c.newOpA[i] = r
			if same && c.newOpB[i] == unsetReg {
				c.newOpB[i] = r
			}
		} else if c.newOpB[i] == unsetReg && !same {
			c.newOpB[i] = r
		}
	case insts.OpAddi, insts.OpLd, insts.OpMovReg:
		if c.newOpA[i] == unsetReg {
			c.newOpA[i] = r
		}
	case insts.OpSt:
		if c.newDest[i] == 0 {
			c.newDest[i] = r
		} else if c.newOpA[i] == unsetReg {
			c.newOpA[i] = r
		}
	}
}

// interloopMov is one pending loop-tail copy: the register the body
// reads at iteration entry receives the register the body produced.
type interloopMov struct {
	destReg  uint32
	srcReg   uint32
	producer int
}

// findInterloopMovs collects the loop-tail copies the body needs: one
// per register produced both in BB0 and in the body, and one per
// producer that reads its own register with no in-loop
// initialization. Each register is fixed up at most once.
func (c *LoopCompiler) findInterloopMovs() []interloopMov {
	bb1 := c.blocks[1]
	var movs []interloopMov
	handled := make(map[uint32]bool)

	for i := bb1.Start; i < bb1.End; i++ {
		for _, d0 := range c.deps[i].Interloop {
			if d0 >= bb1.Start {
				continue
			}
			for _, d1 := range c.deps[i].Interloop {
				if !bb1.Contains(d1) || c.prog[d1].Dest != c.prog[d0].Dest {
					continue
				}
				if handled[c.prog[d0].Dest] {
					continue
				}
				handled[c.prog[d0].Dest] = true
				movs = append(movs, interloopMov{
					destReg:  c.newDest[d0],
					srcReg:   c.newDest[d1],
					producer: d1,
				})
			}
		}
	}

	initialized := make(map[uint32]bool)
	for i := bb1.Start; i < bb1.End-1; i++ {
		if op := c.prog[i].Op; op == insts.OpLd || op == insts.OpMovImm {
			initialized[c.prog[i].Dest] = true
		}
	}
	for i := bb1.Start; i < bb1.End-1; i++ {
		inst := c.prog[i]
		if !inst.Op.IsProducer() || handled[inst.Dest] || initialized[inst.Dest] {
			continue
		}
		var entry uint32
		switch {
		case inst.Op == insts.OpAddi && inst.Dest == inst.OpA:
			entry = c.newOpA[i]
		case isBinaryOp(inst.Op) && inst.Dest == inst.OpA:
			entry = c.newOpA[i]
		case isBinaryOp(inst.Op) && inst.Dest == inst.OpB:
			entry = c.newOpB[i]
		default:
			continue
		}
		handled[inst.Dest] = true
		movs = append(movs, interloopMov{
			destReg:  entry,
			srcReg:   c.newDest[i],
			producer: i,
		})
	}

	return movs
}

// isBinaryOp reports whether the opcode reads two source registers.
func isBinaryOp(op insts.Op) bool {
	return op == insts.OpAdd || op == insts.OpSub || op == insts.OpMulu
}

// insertInterloopMovs synthesizes a mov at the loop tail for every
// register that is produced both in BB0 and in the body, copying the
// body value back for the next iteration. The movs pack into the ALU
// slots of the final body bundles; when none are free, the branch is
// pushed into a freshly inserted bundle.
func (c *LoopCompiler) insertInterloopMovs() {
	movs := c.findInterloopMovs()
	if len(movs) == 0 {
		return
	}

	bb1 := c.blocks[1]
	branch := bb1.End - 1
	branchTime := c.timeTable[branch]

	for _, m := range movs {
		id := len(c.prog)
		c.prog = append(c.prog, insts.Instruction{
			Op:   insts.OpMovReg,
			Dest: m.destReg,
			OpA:  m.srcReg,
			ID:   id,
		})
		c.timeTable = append(c.timeTable, -1)
		c.newDest = append(c.newDest, m.destReg)
		c.newOpA = append(c.newOpA, m.srcReg)
		c.newOpB = append(c.newOpB, unsetReg)

		lowest := c.timeTable[m.producer] + c.prog[m.producer].Op.Latency()
		for branchTime < lowest {
			branchTime = c.shiftBranchDown(branch, branchTime)
		}
		for {
			if c.bundles[branchTime][SlotALU0] == noInst {
				c.bundles[branchTime][SlotALU0] = id
				break
			}
			if c.bundles[branchTime][SlotALU1] == noInst {
				c.bundles[branchTime][SlotALU1] = id
				break
			}
			branchTime = c.shiftBranchDown(branch, branchTime)
		}
		c.timeTable[id] = branchTime
	}

	c.loopEnd = branchTime + 1
}

// shiftBranchDown moves the loop branch one bundle later, inserting a
// fresh bundle for it, and returns the branch's new time.
func (c *LoopCompiler) shiftBranchDown(branch, branchTime int) int {
	c.bundles[branchTime][SlotBranch] = noInst
	c.bundles = append(c.bundles, Bundle{})
	copy(c.bundles[branchTime+2:], c.bundles[branchTime+1:])
	c.bundles[branchTime+1] = emptyBundle()
	c.bundles[branchTime+1][SlotBranch] = branch
	c.timeTable[branch] = branchTime + 1
	return branchTime + 1
}

// assignFreshOperands gives a fresh register to every read that no
// producer inside the program satisfies. Load and store address
// operands are exempt: with no producer they are function-argument
// live-ins and keep their original register.
func (c *LoopCompiler) assignFreshOperands() {
	for _, bundle := range c.bundles {
		for _, id := range bundle {
			if id == noInst {
				continue
			}
			switch c.prog[id].Op {
			case insts.OpAdd, insts.OpSub, insts.OpMulu:
				if c.newOpA[id] == unsetReg {
					c.newOpA[id] = c.nextReg
					c.nextReg++
				}
				if c.newOpB[id] == unsetReg {
					c.newOpB[id] = c.nextReg
					c.nextReg++
				}
			case insts.OpAddi, insts.OpMovReg:
				if c.newOpA[id] == unsetReg {
					c.newOpA[id] = c.nextReg
					c.nextReg++
				}
			case insts.OpSt:
				if c.newDest[id] == 0 {
					c.newDest[id] = c.nextReg
					c.nextReg++
				}
			}
		}
	}
}

// emit materializes the bundle list, substituting the allocated
// registers into instruction copies.
func (c *LoopCompiler) emit() Schedule {
	schedule := make(Schedule, 0, len(c.bundles))
	for _, bundle := range c.bundles {
		var row [NumSlots]insts.Instruction
		for slot := range row {
			row[slot] = insts.Instruction{Op: insts.OpNop}
		}
		for slot, id := range bundle {
			if id == noInst {
				continue
			}
			inst := c.prog[id]
			if c.newDest[id] != 0 &&
				inst.Dest != insts.RegLC && inst.Dest != insts.RegEC {
				inst.Dest = c.newDest[id]
			}
			if c.newOpA[id] != unsetReg {
				inst.OpA = c.newOpA[id]
			}
			if c.newOpB[id] != unsetReg {
				inst.OpB = c.newOpB[id]
			}
			row[slot] = inst
		}
		schedule = append(schedule, row)
	}
	return schedule
}
