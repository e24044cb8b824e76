package vliw

import (
	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// rename performs the register allocation passes of the pipelined
// compiler: rotating destinations for body producers, non-rotating
// registers for loop invariants and non-loop code, stage-adjusted
// consumer links, and fresh registers for reads nothing produces.
func (c *LoopPipCompiler) rename() {
	c.newDest = make([]int32, len(c.prog))
	for i := range c.newDest {
		c.newDest[i] = unassigned
	}
	c.opARenamed = make([]bool, len(c.prog))
	c.opBRenamed = make([]bool, len(c.prog))
	c.destRenamed = make([]bool, len(c.prog))

	hasLoop := len(c.blocks) > 1

	if hasLoop {
		c.renameLoopBodyDest()
	}
	c.renameLoopInvariant()
	if hasLoop {
		c.renameLoopBodyConsumers()
		c.renamePostLoopConsumers()
	}
	c.renameNonLoop(c.blocks[0])
	if hasLoop {
		c.renameNonLoop(c.blocks[2])
	}
	c.renameUnwrittenReads()
}

// renameLoopBodyDest assigns every body producer a fresh rotating
// register, in bundle order, spaced numStages+1 apart so that each
// in-flight generation of the value owns a distinct name.
func (c *LoopPipCompiler) renameLoopBodyDest() {
	cur := int32(numNonRotatingRegisters)
	for t := c.loopStart; t < c.loopEnd; t++ {
		for _, id := range c.bundles[t] {
			if id == noInst {
				continue
			}
			inst := c.prog[id]
			if !inst.Op.IsProducer() ||
				inst.Dest == insts.RegLC || inst.Dest == insts.RegEC {
				continue
			}
			c.newDest[id] = cur
			cur += int32(c.numStages) + 1
		}
	}
}

// renameConsumer substitutes a consumer's reads of oldReg with
// newReg. The store data operand lives in Dest and is also a read.
func (c *LoopPipCompiler) renameConsumer(i int, oldReg uint32, newReg int32) {
	inst := &c.prog[i]
	if inst.OpA == oldReg && !c.opARenamed[i] {
		inst.OpA = uint32(newReg)
		c.opARenamed[i] = true
	}
	if inst.OpB == oldReg && !c.opBRenamed[i] {
		inst.OpB = uint32(newReg)
		c.opBRenamed[i] = true
	}
	if inst.Op == insts.OpSt && inst.Dest == oldReg && !c.destRenamed[i] {
		inst.Dest = uint32(newReg)
		c.destRenamed[i] = true
	}
}

// renameLoopInvariant gives every loop-invariant producer a
// non-rotating register and renames all its consumers.
func (c *LoopPipCompiler) renameLoopInvariant() {
	var producers []int
	for i := range c.deps {
		for _, d := range c.deps[i].LoopInvariant {
			if !containsInt(producers, d) {
				producers = append(producers, d)
			}
		}
	}

	newReg := make(map[uint32]int32)
	for _, d := range producers {
		newReg[c.prog[d].Dest] = int32(c.nextNonRot)
		c.nextNonRot++
	}

	for i := range c.prog {
		for _, d := range c.deps[i].LoopInvariant {
			oldDest := c.prog[d].Dest
			c.renameConsumer(i, oldDest, newReg[oldDest])
		}
	}

	for _, d := range producers {
		c.newDest[d] = newReg[c.prog[d].Dest]
	}
}

// renameLoopBodyConsumers adjusts body reads by the stage distance to
// their producer: a same-iteration (local) producer at stage s1 read
// at stage s2 appears s2-s1 names later; a previous-iteration
// (interloop) producer appears one further. A preheader producer
// feeding the same register is renamed so the first iteration reads
// it through the identical rotated name.
func (c *LoopPipCompiler) renameLoopBodyConsumers() {
	bb1 := c.blocks[1]
	for i := bb1.Start; i < bb1.End; i++ {
		dep := c.deps[i]

		for _, d := range dep.Local {
			adj := int32(c.stageOf[i] - c.stageOf[d])
			c.renameConsumer(i, c.prog[d].Dest, c.newDest[d]+adj)
		}

		for _, d := range dep.Interloop {
			if !bb1.Contains(d) {
				continue
			}
			adj := int32(c.stageOf[i] - c.stageOf[d] + 1)
			bodyDest := c.prog[d].Dest
			c.renameConsumer(i, bodyDest, c.newDest[d]+adj)

			for _, d0 := range dep.Interloop {
				if d0 < bb1.Start && c.prog[d0].Dest == bodyDest {
					c.newDest[d0] = c.newDest[d] + int32(1-c.stageOf[d])
				}
			}
		}
	}
}

// renamePostLoopConsumers links epilogue reads to body producers; the
// consumer behaves as if it sat in the final stage.
func (c *LoopPipCompiler) renamePostLoopConsumers() {
	bb2 := c.blocks[2]
	for i := bb2.Start; i < bb2.End; i++ {
		for _, d := range c.deps[i].PostLoop {
			adj := int32((c.numStages - 1) - c.stageOf[d])
			c.renameConsumer(i, c.prog[d].Dest, c.newDest[d]+adj)
		}
	}
}

// renameNonLoop allocates non-rotating registers to the producers of
// a non-loop block, then links the block's local consumers.
func (c *LoopPipCompiler) renameNonLoop(block Block) {
	for _, bundle := range c.bundles {
		for _, id := range bundle {
			if id == noInst || !block.Contains(c.prog[id].ID) {
				continue
			}
			inst := c.prog[id]
			if !inst.Op.IsProducer() || c.newDest[id] != unassigned ||
				inst.Dest == insts.RegLC || inst.Dest == insts.RegEC {
				continue
			}
			c.newDest[id] = int32(c.nextNonRot)
			c.nextNonRot++
		}
	}

	for _, bundle := range c.bundles {
		for _, id := range bundle {
			if id == noInst || !block.Contains(c.prog[id].ID) {
				continue
			}
			for _, d := range c.deps[c.prog[id].ID].Local {
				c.renameConsumer(id, c.prog[d].Dest, c.newDest[d])
			}
		}
	}
}

// renameUnwrittenReads assigns a fresh non-rotating register to every
// read no pass has renamed.
func (c *LoopPipCompiler) renameUnwrittenReads() {
	freshA := func(id int) {
		if !c.opARenamed[id] {
			c.opARenamed[id] = true
			c.prog[id].OpA = c.nextNonRot
			c.nextNonRot++
		}
	}
	freshB := func(id int) {
		if !c.opBRenamed[id] {
			c.opBRenamed[id] = true
			c.prog[id].OpB = c.nextNonRot
			c.nextNonRot++
		}
	}

	for _, bundle := range c.bundles {
		for _, id := range bundle {
			if id == noInst {
				continue
			}
			switch c.prog[id].Op {
			case insts.OpAdd, insts.OpSub, insts.OpMulu:
				freshA(id)
				freshB(id)
			case insts.OpAddi, insts.OpLd, insts.OpMovReg:
				freshA(id)
			case insts.OpSt:
				if !c.destRenamed[id] {
					c.destRenamed[id] = true
					c.prog[id].Dest = c.nextNonRot
					c.nextNonRot++
				}
				freshA(id)
			}
		}
	}
}

// assignPredicates guards every stage-k body instruction with
// predicate register p(32+k). The branch stays unpredicated.
func (c *LoopPipCompiler) assignPredicates() {
	for t := c.loopStart; t < c.loopEnd; t++ {
		stage := (t - c.loopStart) / c.ii
		for _, id := range c.bundles[t] {
			if id == noInst || c.prog[id].Op == insts.OpLoopPip {
				continue
			}
			c.prog[id].Pred = uint32(predicateBase + stage)
			c.prog[id].HasPred = true
		}
	}
}

// compress folds every later stage slot-wise into the first II
// bundles of the body and erases the emptied tail. The modulo
// reservation table guarantees the target slots are free.
func (c *LoopPipCompiler) compress() {
	for stage := 1; stage < c.numStages; stage++ {
		for k := 0; k < c.ii; k++ {
			from := c.loopStart + stage*c.ii + k
			to := c.loopStart + k
			for slot, id := range c.bundles[from] {
				if id == noInst {
					continue
				}
				if c.bundles[to][slot] != noInst {
					panic("vliw: kernel compression found an occupied slot")
				}
				c.bundles[to][slot] = id
			}
		}
	}

	c.bundles = append(c.bundles[:c.loopStart+c.ii], c.bundles[c.loopEnd:]...)
	c.loopEnd = c.loopStart + c.ii
}

// setupInit seeds the pipeline before the kernel: p32 starts true and
// EC holds numStages-1. The two movs take the ALU slots of the bundle
// right before the kernel; when they do not fit, a new bundle is
// inserted and the branch target moves down by one.
func (c *LoopPipCompiler) setupInit() {
	movP := c.appendInst(insts.Instruction{
		Op:   insts.OpMovPred,
		Dest: predicateBase,
		Imm:  1,
	})
	movEC := c.appendInst(insts.Instruction{
		Op:   insts.OpMovImm,
		Dest: insts.RegEC,
		Imm:  int64(c.numStages - 1),
	})

	// Placed from the back: EC first, then the predicate.
	pending := []int{movP, movEC}
	if c.loopStart > 0 {
		bundle := &c.bundles[c.loopStart-1]
		for _, slot := range []int{SlotALU0, SlotALU1} {
			if len(pending) == 0 {
				break
			}
			if bundle[slot] == noInst {
				bundle[slot] = pending[len(pending)-1]
				pending = pending[:len(pending)-1]
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	inserted := emptyBundle()
	for slot := SlotALU0; slot <= SlotALU1 && len(pending) > 0; slot++ {
		inserted[slot] = pending[len(pending)-1]
		pending = pending[:len(pending)-1]
	}

	c.bundles = append(c.bundles, Bundle{})
	copy(c.bundles[c.loopStart+1:], c.bundles[c.loopStart:])
	c.bundles[c.loopStart] = inserted
	c.loopStart++
	c.loopEnd++

	branch := c.blocks[1].End - 1
	c.prog[branch].Imm++
}

// appendInst adds a synthesized instruction to the working program
// and grows the per-instruction tables alongside it.
func (c *LoopPipCompiler) appendInst(inst insts.Instruction) int {
	id := len(c.prog)
	inst.ID = id
	c.prog = append(c.prog, inst)
	c.timeTable = append(c.timeTable, -1)
	c.stageOf = append(c.stageOf, -1)
	c.newDest = append(c.newDest, unassigned)
	c.opARenamed = append(c.opARenamed, false)
	c.opBRenamed = append(c.opBRenamed, false)
	c.destRenamed = append(c.destRenamed, false)
	return id
}

// emit materializes the bundle list, substituting renamed
// destinations into instruction copies. Operand renames were applied
// in place by the rename passes.
func (c *LoopPipCompiler) emit() Schedule {
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
			if c.newDest[id] != unassigned &&
				inst.Dest != insts.RegLC && inst.Dest != insts.RegEC {
				inst.Dest = uint32(c.newDest[id])
			}
			row[slot] = inst
		}
		schedule = append(schedule, row)
	}
	return schedule
}
