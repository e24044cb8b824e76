package ooo

import (
	"fmt"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// fetchDecode refills the decode buffer once the rename stage has
// drained it. Fetch is suppressed while an exception is pending, and
// the buffer is cleared so that no squashed instruction is renamed.
func (s *Simulator) fetchDecode() error {
	state := s.state

	if state.Exception {
		state.DecodedPCs = state.DecodedPCs[:0]
		return nil
	}

	// Backpressure: rename has not consumed the previous group yet.
	if len(state.DecodedPCs) > 0 {
		return nil
	}

	for i := 0; i < FetchWidth && state.PC < uint64(len(s.program)); i++ {
		inst, err := s.decode(s.program[state.PC])
		if err != nil {
			return fmt.Errorf("decode at pc %d: %w", state.PC, err)
		}
		state.DecodedPCs = append(state.DecodedPCs, DecodedInstruction{
			PC:   state.PC,
			Inst: inst,
		})
		state.PC++
	}
	return nil
}

// decode parses one textual line and checks it against the integer
// subset this pipeline executes.
func (s *Simulator) decode(line string) (insts.Instruction, error) {
	inst, err := s.parser.ParseLine(line)
	if err != nil {
		return insts.Instruction{}, err
	}
	switch inst.Op {
	case insts.OpAdd, insts.OpAddi, insts.OpSub,
		insts.OpMulu, insts.OpDivu, insts.OpRemu:
	default:
		return insts.Instruction{}, fmt.Errorf("unsupported opcode %q", inst.Op.Mnemonic())
	}

	regs := append([]uint32{inst.Dest}, inst.Reads()...)
	for _, r := range regs {
		if r >= NumLogicalRegisters {
			return insts.Instruction{}, fmt.Errorf("register x%d out of range", r)
		}
	}
	return inst, nil
}

// rename maps logical to physical registers and dispatches the decoded
// group into the active list and the integer queue. The group renames
// atomically: if the active list, the integer queue, or the free list
// cannot take all of it, the stage stalls with no side effects.
func (s *Simulator) rename() {
	state := s.state

	if state.Exception {
		state.IntegerQueue = state.IntegerQueue[:0]
		return
	}

	n := len(state.DecodedPCs)
	if n == 0 {
		return
	}
	if len(state.ActiveList)+n > ActiveListCapacity {
		return
	}
	if len(state.IntegerQueue)+n > IntegerQueueCapacity {
		return
	}
	if len(state.FreeList) < n {
		return
	}

	for _, decoded := range state.DecodedPCs {
		inst := decoded.Inst

		opAReady, opATag, opAValue := s.readOperand(inst.OpA)

		var opBReady bool
		var opBTag uint32
		var opBValue uint64
		if inst.Op == insts.OpAddi {
			opBReady = true
			opBValue = uint64(inst.Imm)
		} else {
			opBReady, opBTag, opBValue = s.readOperand(inst.OpB)
		}

		newDest := state.FreeList[0]
		state.FreeList = state.FreeList[1:]
		state.BusyBitTable[newDest] = true

		oldDest := state.RegisterMapTable[inst.Dest]
		state.RegisterMapTable[inst.Dest] = newDest

		state.ActiveList = append(state.ActiveList, ActiveListEntry{
			LogicalDestination: inst.Dest,
			OldDestination:     oldDest,
			PC:                 decoded.PC,
		})

		state.IntegerQueue = append(state.IntegerQueue, IntegerQueueEntry{
			DestRegister: newDest,
			OpAIsReady:   opAReady,
			OpARegTag:    opATag,
			OpAValue:     opAValue,
			OpBIsReady:   opBReady,
			OpBRegTag:    opBTag,
			OpBValue:     opBValue,
			Op:           inst.Op,
			PC:           decoded.PC,
		})
	}
	state.DecodedPCs = state.DecodedPCs[:0]
}

// readOperand resolves a logical source register through the map
// table. A non-busy physical register supplies its value directly; a
// busy one may still be satisfied by this cycle's forwarding
// broadcast, otherwise the tag is kept pending.
func (s *Simulator) readOperand(logical uint32) (ready bool, tag uint32, value uint64) {
	state := s.state
	phys := state.RegisterMapTable[logical]

	if !state.BusyBitTable[phys] {
		return true, 0, state.PhysicalRegisterFile[phys]
	}
	if v, ok := state.lookupForwardBus(phys); ok {
		return true, 0, v
	}
	return false, phys, 0
}

// issue wakes pending operands against the forwarding broadcast, then
// moves ready integer-queue entries into free ALU issue buffers, in
// insertion order, lowest ALU index first.
func (s *Simulator) issue() {
	state := s.state

	if state.Exception {
		return
	}

	s.wakeup()

	remaining := state.IntegerQueue[:0]
	for _, entry := range state.IntegerQueue {
		issued := false
		if entry.OpAIsReady && entry.OpBIsReady {
			for id := 0; id < NumALUs; id++ {
				if state.aluQueues[id] != nil {
					continue
				}
				state.aluQueues[id] = &aluQueueEntry{
					destRegister: entry.DestRegister,
					opAValue:     entry.OpAValue,
					opBValue:     entry.OpBValue,
					op:           entry.Op,
					pc:           entry.PC,
				}
				issued = true
				break
			}
		}
		if !issued {
			remaining = append(remaining, entry)
		}
	}
	state.IntegerQueue = remaining
}

// wakeup captures broadcast values into integer-queue entries whose
// tags match, clearing the tag so the entry can issue.
func (s *Simulator) wakeup() {
	state := s.state
	for i := range state.IntegerQueue {
		entry := &state.IntegerQueue[i]
		if !entry.OpAIsReady {
			if v, ok := state.lookupForwardBus(entry.OpARegTag); ok {
				entry.OpAIsReady = true
				entry.OpARegTag = 0
				entry.OpAValue = v
			}
		}
		if !entry.OpBIsReady {
			if v, ok := state.lookupForwardBus(entry.OpBRegTag); ok {
				entry.OpBIsReady = true
				entry.OpBRegTag = 0
				entry.OpBValue = v
			}
		}
	}
}

// forward snapshots the front of every ALU result bus onto the
// broadcast vector. Issue and rename read the vector later this cycle;
// commit drains it at the start of the next one.
func (s *Simulator) forward() {
	state := s.state
	state.forwardBus = state.forwardBus[:0]
	for id := 0; id < NumALUs; id++ {
		if r := state.resultBuses[id]; r != nil {
			state.forwardBus = append(state.forwardBus, *r)
			state.resultBuses[id] = nil
		}
	}
}

// commit retires completed instructions in program order, or unwinds
// the rename history while recovering from an exception.
func (s *Simulator) commit() {
	if s.mode == commitRollback {
		s.rollback()
		return
	}

	state := s.state

	// Retire up to FetchWidth completed heads.
	for retired := 0; retired < FetchWidth && len(state.ActiveList) > 0; retired++ {
		head := state.ActiveList[0]
		if !head.Done {
			break
		}
		if head.Exception {
			state.Exception = true
			state.ExceptionPC = head.PC
			state.PC = ExceptionVectorPC
			s.mode = commitRollback
			s.flushPipeline()
			break
		}
		state.FreeList = append(state.FreeList, head.OldDestination)
		state.ActiveList = state.ActiveList[1:]
		s.retired++
	}

	// Drain last cycle's broadcast: complete the matching active-list
	// entries and write the register file.
	for _, r := range state.forwardBus {
		for i := range state.ActiveList {
			entry := &state.ActiveList[i]
			if entry.PC != r.pc {
				continue
			}
			entry.Done = true
			entry.Exception = r.exception
			state.BusyBitTable[r.destRegister] = false
			if !r.exception {
				state.PhysicalRegisterFile[r.destRegister] = r.result
			}
			break
		}
	}
	state.forwardBus = state.forwardBus[:0]
}

// rollback unwinds up to FetchWidth active-list tails per cycle,
// restoring the map table and the free list to their pre-dispatch
// state. Draining the list ends the recovery.
func (s *Simulator) rollback() {
	state := s.state

	for reverted := 0; reverted < FetchWidth && len(state.ActiveList) > 0; reverted++ {
		tail := state.ActiveList[len(state.ActiveList)-1]

		cur := state.RegisterMapTable[tail.LogicalDestination]
		state.FreeList = append(state.FreeList, cur)
		state.RegisterMapTable[tail.LogicalDestination] = tail.OldDestination
		state.BusyBitTable[cur] = false

		state.ActiveList = state.ActiveList[:len(state.ActiveList)-1]
	}

	if len(state.ActiveList) == 0 {
		state.Exception = false
		s.hasExceptionOccurred = true
	}
}

// flushPipeline squashes all in-flight work when an exception reaches
// the head of the active list.
func (s *Simulator) flushPipeline() {
	for _, alu := range s.alus {
		alu.flush(s.state)
	}
	s.state.forwardBus = s.state.forwardBus[:0]
}
