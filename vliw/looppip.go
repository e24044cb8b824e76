package vliw

import (
	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// Rotating register file geometry: registers 0..31 are non-rotating,
// 32..95 rotate by one per loop trip. Predicate p32 guards stage 0.
const (
	numNonRotatingRegisters = 32
	predicateBase           = 32
)

// unassigned marks a destination no rename pass has touched yet.
const unassigned = -1

// LoopPipCompiler builds the software-pipelined schedule: modulo
// scheduling of the loop body at an initiation interval II (bumped on
// infeasibility), rotating-register renaming, predicate-driven stage
// control and kernel compression.
type LoopPipCompiler struct {
	prog   []insts.Instruction
	blocks []Block
	deps   []Dependency

	bundles   []Bundle
	timeTable []int
	ii        int
	loopStart int
	loopEnd   int
	numStages int

	// slotStatus is the modulo reservation table: II rows, one
	// column per functional slot; true = reserved.
	slotStatus [][NumSlots]bool

	// stageOf maps an instruction id to its pipeline stage, -1
	// outside the loop body.
	stageOf []int

	// Rename state.
	newDest     []int32
	opARenamed  []bool
	opBRenamed  []bool
	destRenamed []bool
	nextNonRot  uint32
}

// NewLoopPipCompiler creates a compiler over a copy of the program.
func NewLoopPipCompiler(prog []insts.Instruction) *LoopPipCompiler {
	return &LoopPipCompiler{
		prog:       append([]insts.Instruction{}, prog...),
		nextNonRot: 1,
	}
}

// Compile schedules, renames and predicates the program, returning
// the emitted bundle list.
func (c *LoopPipCompiler) Compile() Schedule {
	c.blocks = FindBasicBlocks(c.prog)
	c.deps = FindDependencies(c.prog, c.blocks)

	c.ii = max(1, MinInitiationInterval(c.prog, c.blocks))
	c.timeTable = make([]int, len(c.prog))
	c.stageOf = make([]int, len(c.prog))
	for i := range c.timeTable {
		c.timeTable[i] = -1
		c.stageOf[i] = -1
	}

	hasLoop := len(c.blocks) > 1

	c.scheduleBB0()
	if hasLoop {
		c.scheduleLoopBody()
		c.loopEnd = len(c.bundles)
		c.scheduleBB2()
		c.organizeStages()
	}

	c.rename()

	if hasLoop {
		c.assignPredicates()
		c.compress()
		c.setupInit()
	}

	return c.emit()
}

// earliest computes the ASAP floor from already scheduled producers.
func (c *LoopPipCompiler) earliest(floor int, depLists ...[]int) int {
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

// place performs plain ASAP placement, used outside the loop body.
func (c *LoopPipCompiler) place(i, earliestTime int) {
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

func (c *LoopPipCompiler) scheduleBB0() {
	bb0 := c.blocks[0]
	for i := bb0.Start; i < bb0.End; i++ {
		c.place(i, c.earliest(0, c.deps[i].Local))
	}
}

func (c *LoopPipCompiler) scheduleBB2() {
	bb2 := c.blocks[2]
	for i := bb2.Start; i < bb2.End; i++ {
		t := c.earliest(len(c.bundles),
			c.deps[i].LoopInvariant, c.deps[i].PostLoop, c.deps[i].Local)
		c.place(i, t)
	}
}

// scheduleLoopBody modulo-schedules the body at the current II,
// bumping II and restarting from a clean bundle list until every
// placement fits the reservation table and every interloop edge
// satisfies the modulo constraint.
func (c *LoopPipCompiler) scheduleLoopBody() {
	bb1 := c.blocks[1]

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

	saved := len(c.bundles)
	for {
		c.bundles = c.bundles[:saved]
		c.slotStatus = make([][NumSlots]bool, c.ii)

		ok := true
		for i := bb1.Start; i < bb1.End-1; i++ {
			earliestTime := c.earliest(c.loopStart, c.deps[i].Local)
			if !c.placeModulo(i, earliestTime) {
				ok = false
				break
			}
		}

		if ok {
			branch := bb1.End - 1
			c.prog[branch].Imm = int64(c.loopStart)
			c.placeBranch(branch)
			c.padBody()

			if c.verifyInterloop() {
				return
			}
		}

		c.ii++
		for i := bb1.Start; i < bb1.End; i++ {
			c.timeTable[i] = -1
		}
	}
}

// placeModulo finds the first time at or after earliestTime whose
// bundle slot is free and whose reservation-table cell is open. It
// gives up once the instruction's unit class has no open cell left in
// any row, which forces an II bump.
func (c *LoopPipCompiler) placeModulo(i, earliestTime int) bool {
	slots := slotsFor(c.prog[i].Op)
	for t := earliestTime; c.classOpen(slots); t++ {
		for len(c.bundles) <= t {
			c.bundles = append(c.bundles, emptyBundle())
		}
		row := (t - c.loopStart) % c.ii
		for _, slot := range slots {
			if c.bundles[t][slot] == noInst && !c.slotStatus[row][slot] {
				c.bundles[t][slot] = i
				c.slotStatus[row][slot] = true
				c.timeTable[i] = t
				return true
			}
		}
	}
	return false
}

// classOpen reports whether the reservation table still has an open
// cell for any of the given slots.
func (c *LoopPipCompiler) classOpen(slots []int) bool {
	for _, row := range c.slotStatus {
		for _, slot := range slots {
			if !row[slot] {
				return true
			}
		}
	}
	return false
}

// placeBranch puts loop.pip into the branch slot of the last bundle
// of stage 0.
func (c *LoopPipCompiler) placeBranch(branch int) {
	t := c.loopStart + c.ii - 1
	for len(c.bundles) <= t {
		c.bundles = append(c.bundles, emptyBundle())
	}
	c.bundles[t][SlotBranch] = branch
	c.timeTable[branch] = t
}

// padBody extends the body with empty bundles until its length is a
// multiple of II.
func (c *LoopPipCompiler) padBody() {
	for (len(c.bundles)-c.loopStart)%c.ii != 0 {
		c.bundles = append(c.bundles, emptyBundle())
	}
}

// verifyInterloop checks the modulo-scheduling feasibility of every
// interloop edge inside the body: the producer must complete no later
// than one II past the consumer's slot.
func (c *LoopPipCompiler) verifyInterloop() bool {
	bb1 := c.blocks[1]
	for i := bb1.Start; i < bb1.End; i++ {
		for _, d := range c.deps[i].Interloop {
			if !bb1.Contains(d) {
				continue
			}
			if c.timeTable[d]+c.prog[d].Op.Latency() > c.timeTable[i]+c.ii {
				return false
			}
		}
	}
	return true
}

// organizeStages splits the body into groups of II bundles and maps
// every body instruction to its stage.
func (c *LoopPipCompiler) organizeStages() {
	c.numStages = (c.loopEnd - c.loopStart) / c.ii
	for t := c.loopStart; t < c.loopEnd; t++ {
		stage := (t - c.loopStart) / c.ii
		for _, id := range c.bundles[t] {
			if id != noInst {
				c.stageOf[id] = stage
			}
		}
	}
}
