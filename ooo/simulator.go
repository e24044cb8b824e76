package ooo

import (
	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

// commitMode tracks the commit state machine: normal retirement until
// a fault reaches the head of the active list, then rollback until the
// list drains.
type commitMode int

const (
	commitNormal commitMode = iota
	commitRollback
)

// Simulator is the cycle-accurate out-of-order pipeline model. One
// Step call advances every stage by one cycle.
type Simulator struct {
	program []string
	parser  *insts.Parser
	state   *State
	alus    [NumALUs]*ALU

	mode                 commitMode
	hasExceptionOccurred bool
	cycles               uint64
	retired              uint64
}

// NewSimulator creates a simulator over the given textual program.
func NewSimulator(program []string) *Simulator {
	s := &Simulator{
		program: program,
		parser:  insts.NewParser(),
		state:   NewState(),
	}
	for i := 0; i < NumALUs; i++ {
		s.alus[i] = NewALU(i)
	}
	return s
}

// State exposes the current processor state.
func (s *Simulator) State() *State {
	return s.state
}

// Cycles returns the number of cycles simulated so far.
func (s *Simulator) Cycles() uint64 {
	return s.cycles
}

// InstructionsRetired returns the number of instructions committed in
// program order so far.
func (s *Simulator) InstructionsRetired() uint64 {
	return s.retired
}

// ExceptionOccurred reports whether an exception was raised and fully
// rolled back at some point of the simulation.
func (s *Simulator) ExceptionOccurred() bool {
	return s.hasExceptionOccurred
}

// CanStep reports whether the machine still has work: instructions to
// fetch, in-flight instructions, or a pending exception recovery. A
// completed rollback permanently halts the machine.
func (s *Simulator) CanStep() bool {
	if s.hasExceptionOccurred {
		return false
	}
	state := s.state
	return len(state.DecodedPCs) > 0 ||
		len(state.ActiveList) > 0 ||
		state.PC < uint64(len(s.program)) ||
		state.Exception
}

// Step advances the pipeline by one cycle. Stages run in reverse
// pipeline order so that every latch written this cycle is observed by
// its upstream reader only in the next cycle.
func (s *Simulator) Step() error {
	if !s.CanStep() {
		return nil
	}

	s.commit()
	s.forward()
	if !s.state.Exception {
		for _, alu := range s.alus {
			alu.Step(s.state)
		}
	}
	s.issue()
	s.rename()
	if err := s.fetchDecode(); err != nil {
		return err
	}

	s.cycles++
	return nil
}

// Run steps the simulator until it halts or maxCycles is reached,
// collecting one state snapshot per cycle. The first snapshot is the
// initial state. capped reports whether the cycle budget ran out
// before the machine halted.
func (s *Simulator) Run(maxCycles uint64) (snapshots []Snapshot, capped bool, err error) {
	snapshots = append(snapshots, s.Snapshot())
	for s.CanStep() {
		if s.cycles >= maxCycles {
			return snapshots, true, nil
		}
		if err := s.Step(); err != nil {
			return snapshots, false, err
		}
		snapshots = append(snapshots, s.Snapshot())
	}
	return snapshots, false, nil
}
