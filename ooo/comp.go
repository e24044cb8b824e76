package ooo

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Comp exposes the simulator as an Akita ticking component so it can
// run on an event-driven simulation engine alongside other components.
// Each engine tick advances the pipeline by one cycle and records the
// end-of-cycle snapshot.
type Comp struct {
	*sim.TickingComponent

	simulator *Simulator
	maxCycles uint64
	snapshots []Snapshot
	err       error
}

// NewComp wraps a simulator in a ticking component registered with the
// given engine. maxCycles bounds the run; 0 means no bound.
func NewComp(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	simulator *Simulator,
	maxCycles uint64,
) *Comp {
	c := &Comp{
		simulator: simulator,
		maxCycles: maxCycles,
		snapshots: []Snapshot{simulator.Snapshot()},
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)
	return c
}

// Tick advances the pipeline by one cycle. It stops making progress,
// and therefore lets the engine run dry, when the simulator halts,
// errors, or exhausts its cycle budget.
func (c *Comp) Tick() bool {
	if c.err != nil || !c.simulator.CanStep() {
		return false
	}
	if c.maxCycles > 0 && c.simulator.Cycles() >= c.maxCycles {
		return false
	}
	c.err = c.simulator.Step()
	if c.err != nil {
		return false
	}
	c.snapshots = append(c.snapshots, c.simulator.Snapshot())
	return true
}

// Snapshots returns the per-cycle state dumps collected so far, the
// initial state first.
func (c *Comp) Snapshots() []Snapshot {
	return c.snapshots
}

// Err returns the decode error that stopped the run, if any.
func (c *Comp) Err() error {
	return c.err
}

// RunOnEngine drives a simulator to completion on a serial Akita
// engine and returns the same per-cycle snapshots as Simulator.Run.
func RunOnEngine(
	simulator *Simulator,
	maxCycles uint64,
) (snapshots []Snapshot, capped bool, err error) {
	engine := sim.NewSerialEngine()
	comp := NewComp("OoO", engine, 1*sim.GHz, simulator, maxCycles)

	comp.TickLater()
	if err := engine.Run(); err != nil {
		return comp.Snapshots(), false, err
	}
	if comp.Err() != nil {
		return comp.Snapshots(), false, comp.Err()
	}

	capped = maxCycles > 0 && simulator.CanStep()
	return comp.Snapshots(), capped, nil
}
