package vliw_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
	"github.com/thecodehen/epfl-cs470-s25-hw/vliw"
)

// parse is a test helper turning assembly lines into a program.
func parse(lines []string) []insts.Instruction {
	prog, err := insts.NewParser().ParseProgram(lines)
	Expect(err).NotTo(HaveOccurred())
	return prog
}

var _ = Describe("FindBasicBlocks", func() {
	It("should produce one block without a loop", func() {
		prog := parse([]string{
			"addi x1, x0, 1",
			"addi x2, x0, 2",
		})

		blocks := vliw.FindBasicBlocks(prog)

		Expect(blocks).To(HaveLen(1))
		Expect(blocks[0]).To(Equal(vliw.Block{Start: 0, End: 2}))
	})

	It("should split prolog, body and epilog around a loop", func() {
		prog := parse([]string{
			"mov LC, 10",
			"mov x2, 0",
			"add x2, x2, x2",
			"loop 2",
			"st x2, 0(x1)",
		})

		blocks := vliw.FindBasicBlocks(prog)

		Expect(blocks).To(HaveLen(3))
		Expect(blocks[0]).To(Equal(vliw.Block{Start: 0, End: 2}))
		Expect(blocks[1]).To(Equal(vliw.Block{Start: 2, End: 4}))
		Expect(blocks[2]).To(Equal(vliw.Block{Start: 4, End: 5}))
	})

	It("should handle an empty program", func() {
		blocks := vliw.FindBasicBlocks(nil)

		Expect(blocks).To(HaveLen(1))
		Expect(blocks[0].Len()).To(Equal(0))
	})
})

var _ = Describe("FindDependencies", func() {
	Context("straight-line code", func() {
		It("should find local edges", func() {
			prog := parse([]string{
				"addi x1, x0, 1",
				"addi x2, x0, 2",
				"add x3, x1, x2",
				"add x4, x3, x1",
			})
			blocks := vliw.FindBasicBlocks(prog)

			deps := vliw.FindDependencies(prog, blocks)

			Expect(deps[0].Local).To(BeEmpty())
			Expect(deps[2].Local).To(Equal([]int{0, 1}))
			Expect(deps[3].Local).To(Equal([]int{0, 2}))
		})

		It("should point to the most recent producer", func() {
			prog := parse([]string{
				"addi x1, x0, 1",
				"addi x1, x0, 2",
				"add x3, x1, x1",
			})
			blocks := vliw.FindBasicBlocks(prog)

			deps := vliw.FindDependencies(prog, blocks)

			Expect(deps[2].Local).To(Equal([]int{1}))
		})
	})

	Context("a counted loop", func() {
		// 0: mov LC, 10
		// 1: mov x2, 0
		// 2: mov x3, 1
		// 3: add x2, x2, x3
		// 4: loop 3
		// 5: st x2, 0(x1)
		prog := parse([]string{
			"mov LC, 10",
			"mov x2, 0",
			"mov x3, 1",
			"add x2, x2, x3",
			"loop 3",
			"st x2, 0(x1)",
		})
		blocks := vliw.FindBasicBlocks(prog)
		deps := vliw.FindDependencies(prog, blocks)

		It("should pair the body producer with its preheader producer", func() {
			Expect(deps[3].Interloop).To(Equal([]int{1, 3}))
		})

		It("should classify the unmasked preheader value as loop-invariant", func() {
			Expect(deps[3].LoopInvariant).To(Equal([]int{2}))
		})

		It("should link the epilog consumer to the body producer", func() {
			Expect(deps[5].PostLoop).To(Equal([]int{3}))
			Expect(deps[5].LoopInvariant).To(BeEmpty())
		})

		It("should not invent local edges in the body", func() {
			Expect(deps[3].Local).To(BeEmpty())
		})
	})

	Context("store reads", func() {
		It("should treat the stored data and the address as reads", func() {
			prog := parse([]string{
				"addi x1, x0, 1",
				"addi x2, x0, 2",
				"st x1, 0(x2)",
			})
			blocks := vliw.FindBasicBlocks(prog)

			deps := vliw.FindDependencies(prog, blocks)

			Expect(deps[2].Local).To(Equal([]int{0, 1}))
		})
	})
})

var _ = Describe("MinInitiationInterval", func() {
	It("should be zero without a loop", func() {
		prog := parse([]string{"addi x1, x0, 1"})
		blocks := vliw.FindBasicBlocks(prog)

		Expect(vliw.MinInitiationInterval(prog, blocks)).To(Equal(0))
	})

	It("should be limited by the scarcest unit class", func() {
		// Body: three ALU ops and one load; two ALU units force II 2.
		prog := parse([]string{
			"mov LC, 4",
			"add x1, x5, x6",
			"add x2, x5, x6",
			"add x3, x5, x6",
			"ld x4, 0(x7)",
			"loop 1",
		})
		blocks := vliw.FindBasicBlocks(prog)

		Expect(vliw.MinInitiationInterval(prog, blocks)).To(Equal(2))
	})

	It("should count the single multiply unit", func() {
		prog := parse([]string{
			"mov LC, 4",
			"mulu x1, x5, x6",
			"mulu x2, x5, x6",
			"loop 1",
		})
		blocks := vliw.FindBasicBlocks(prog)

		Expect(vliw.MinInitiationInterval(prog, blocks)).To(Equal(2))
	})
})
