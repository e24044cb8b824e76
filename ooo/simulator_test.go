package ooo_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thecodehen/epfl-cs470-s25-hw/ooo"
)

// run drives a program to completion and returns the snapshots.
func run(program []string) []ooo.Snapshot {
	simulator := ooo.NewSimulator(program)
	snapshots, capped, err := simulator.Run(100000)
	Expect(err).NotTo(HaveOccurred())
	Expect(capped).To(BeFalse())
	return snapshots
}

// retireCycle returns the snapshot index at which the instruction at
// pc left the active list after having entered it.
func retireCycle(snapshots []ooo.Snapshot, pc uint64) int {
	seen := false
	for i, snap := range snapshots {
		present := false
		for _, e := range snap.ActiveList {
			if e.PC == pc {
				present = true
				break
			}
		}
		if present {
			seen = true
		} else if seen {
			return i
		}
	}
	Fail(fmt.Sprintf("instruction at pc %d never retired", pc))
	return -1
}

// checkRegisterPartition asserts that the map table, the active-list
// old destinations and the free list together name every physical
// register exactly once.
func checkRegisterPartition(snap ooo.Snapshot) {
	counts := make([]int, ooo.NumPhysicalRegisters)
	for _, p := range snap.RegisterMapTable {
		counts[p]++
	}
	for _, e := range snap.ActiveList {
		counts[e.OldDestination]++
	}
	for _, p := range snap.FreeList {
		counts[p]++
	}
	for p, n := range counts {
		Expect(n).To(Equal(1),
			"physical register %d appears %d times", p, n)
	}
}

var _ = Describe("Simulator", func() {
	Describe("initial state", func() {
		It("should start with the identity map table and a full free list", func() {
			simulator := ooo.NewSimulator(nil)
			snap := simulator.Snapshot()

			Expect(snap.PC).To(Equal(uint64(0)))
			Expect(snap.RegisterMapTable).To(HaveLen(32))
			for i, p := range snap.RegisterMapTable {
				Expect(p).To(Equal(uint32(i)))
			}
			Expect(snap.FreeList).To(HaveLen(32))
			Expect(snap.FreeList[0]).To(Equal(uint32(32)))
			Expect(snap.BusyBitTable).To(HaveLen(64))
			checkRegisterPartition(snap)
		})
	})

	Describe("empty program", func() {
		It("should produce only the initial snapshot", func() {
			snapshots := run(nil)

			Expect(snapshots).To(HaveLen(1))
			Expect(snapshots[0].Exception).To(BeFalse())
		})
	})

	Describe("straight-line arithmetic", func() {
		It("should compute a dependent sum", func() {
			snapshots := run([]string{
				"addi x1, x0, 5",
				"addi x2, x0, 7",
				"add x3, x1, x2",
			})

			final := snapshots[len(snapshots)-1]
			Expect(final.Exception).To(BeFalse())
			Expect(final.ActiveList).To(BeEmpty())
			Expect(final.PC).To(BeNumerically(">=", 3))
			Expect(final.PhysicalRegisterFile[final.RegisterMapTable[3]]).
				To(Equal(uint64(12)))
		})

		It("should wrap 64-bit subtraction", func() {
			snapshots := run([]string{
				"addi x1, x0, 1",
				"addi x2, x0, 2",
				"sub x3, x1, x2",
			})

			final := snapshots[len(snapshots)-1]
			Expect(final.PhysicalRegisterFile[final.RegisterMapTable[3]]).
				To(Equal(^uint64(0)))
		})

		It("should keep the register partition invariant every cycle", func() {
			snapshots := run([]string{
				"addi x1, x0, 5",
				"addi x2, x0, 7",
				"add x3, x1, x2",
				"mulu x4, x3, x3",
				"sub x5, x4, x1",
			})

			for _, snap := range snapshots {
				checkRegisterPartition(snap)
			}
		})

		It("should clear the tag of every ready operand", func() {
			snapshots := run([]string{
				"addi x1, x0, 5",
				"add x2, x1, x1",
				"add x3, x2, x1",
			})

			for _, snap := range snapshots {
				for _, e := range snap.IntegerQueue {
					if e.OpAIsReady {
						Expect(e.OpARegTag).To(Equal(uint32(0)))
					}
					if e.OpBIsReady {
						Expect(e.OpBRegTag).To(Equal(uint32(0)))
					}
				}
			}
		})

		It("should retire strictly in program order", func() {
			snapshots := run([]string{
				"mulu x1, x0, x0",
				"addi x2, x0, 1",
				"addi x3, x0, 2",
			})

			first := retireCycle(snapshots, 0)
			Expect(retireCycle(snapshots, 1)).To(BeNumerically(">=", first))
			Expect(retireCycle(snapshots, 2)).To(BeNumerically(">=", first))
		})
	})

	Describe("dependent multiply chain", func() {
		It("should space commits by exactly three cycles", func() {
			snapshots := run([]string{
				"mulu x1, x0, x0",
				"mulu x2, x1, x1",
				"mulu x3, x2, x2",
			})

			c0 := retireCycle(snapshots, 0)
			c1 := retireCycle(snapshots, 1)
			c2 := retireCycle(snapshots, 2)

			Expect(c1 - c0).To(Equal(3))
			Expect(c2 - c1).To(Equal(3))
		})
	})

	Describe("division by zero", func() {
		program := []string{
			"addi x1, x0, 10",
			"addi x2, x0, 0",
			"divu x3, x1, x2",
			"addi x4, x0, 99",
		}

		It("should roll back to the pre-dispatch state", func() {
			simulator := ooo.NewSimulator(program)
			snapshots, capped, err := simulator.Run(100000)
			Expect(err).NotTo(HaveOccurred())
			Expect(capped).To(BeFalse())

			final := snapshots[len(snapshots)-1]
			Expect(final.Exception).To(BeFalse())
			Expect(final.ExceptionPC).To(Equal(uint64(2)))
			Expect(final.PC).To(Equal(uint64(0x10000)))
			Expect(final.ActiveList).To(BeEmpty())
			Expect(simulator.ExceptionOccurred()).To(BeTrue())

			Expect(final.RegisterMapTable[3]).To(Equal(uint32(3)))
			Expect(final.RegisterMapTable[4]).To(Equal(uint32(4)))
			checkRegisterPartition(final)
		})

		It("should raise Exception while recovering", func() {
			snapshots := run(program)

			raised := false
			for _, snap := range snapshots {
				if snap.Exception {
					raised = true
					Expect(snap.PC).To(Equal(uint64(0x10000)))
				}
			}
			Expect(raised).To(BeTrue())
		})

		It("should commit instructions older than the fault", func() {
			snapshots := run(program)

			final := snapshots[len(snapshots)-1]
			Expect(final.PhysicalRegisterFile[final.RegisterMapTable[1]]).
				To(Equal(uint64(10)))
		})
	})

	Describe("remu by zero", func() {
		It("should also raise an exception", func() {
			simulator := ooo.NewSimulator([]string{
				"remu x1, x0, x0",
			})
			_, _, err := simulator.Run(100000)
			Expect(err).NotTo(HaveOccurred())
			Expect(simulator.ExceptionOccurred()).To(BeTrue())

			snap := simulator.Snapshot()
			Expect(snap.ExceptionPC).To(Equal(uint64(0)))
			Expect(snap.PC).To(Equal(uint64(0x10000)))
			checkRegisterPartition(snap)
		})
	})

	Describe("capacity stalls", func() {
		It("should finish a program larger than the instruction window", func() {
			var program []string
			for i := 0; i < 40; i++ {
				program = append(program, fmt.Sprintf("addi x1, x0, %d", i))
			}

			snapshots := run(program)

			final := snapshots[len(snapshots)-1]
			Expect(final.Exception).To(BeFalse())
			Expect(final.ActiveList).To(BeEmpty())
			Expect(final.PhysicalRegisterFile[final.RegisterMapTable[1]]).
				To(Equal(uint64(39)))

			for _, snap := range snapshots {
				Expect(len(snap.ActiveList)).To(BeNumerically("<=", 32))
				Expect(len(snap.IntegerQueue)).To(BeNumerically("<=", 32))
				checkRegisterPartition(snap)
			}
		})
	})

	Describe("decode errors", func() {
		It("should abort on a malformed line", func() {
			simulator := ooo.NewSimulator([]string{"add x1"})
			_, _, err := simulator.Run(100000)

			Expect(err).To(HaveOccurred())
		})

		It("should abort on an opcode outside the integer subset", func() {
			simulator := ooo.NewSimulator([]string{"ld x1, 0(x2)"})
			_, _, err := simulator.Run(100000)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("cycle cap", func() {
		It("should report when the budget runs out", func() {
			simulator := ooo.NewSimulator([]string{
				"addi x1, x0, 5",
				"addi x2, x0, 7",
			})
			snapshots, capped, err := simulator.Run(1)

			Expect(err).NotTo(HaveOccurred())
			Expect(capped).To(BeTrue())
			Expect(snapshots).To(HaveLen(2))
		})
	})
})
