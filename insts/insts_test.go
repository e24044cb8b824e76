package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

var _ = Describe("Op", func() {
	It("should give mulu a 3-cycle latency and everything else 1", func() {
		Expect(insts.OpMulu.Latency()).To(Equal(3))
		Expect(insts.OpAdd.Latency()).To(Equal(1))
		Expect(insts.OpLd.Latency()).To(Equal(1))
	})

	It("should classify producers", func() {
		Expect(insts.OpAdd.IsProducer()).To(BeTrue())
		Expect(insts.OpLd.IsProducer()).To(BeTrue())
		Expect(insts.OpMovImm.IsProducer()).To(BeTrue())

		Expect(insts.OpSt.IsProducer()).To(BeFalse())
		Expect(insts.OpLoop.IsProducer()).To(BeFalse())
		Expect(insts.OpNop.IsProducer()).To(BeFalse())
		Expect(insts.OpMovPred.IsProducer()).To(BeFalse())
	})

	It("should classify branches", func() {
		Expect(insts.OpLoop.IsBranch()).To(BeTrue())
		Expect(insts.OpLoopPip.IsBranch()).To(BeTrue())
		Expect(insts.OpAdd.IsBranch()).To(BeFalse())
	})
})

var _ = Describe("Instruction reads", func() {
	It("should read both sources of a binary operation", func() {
		inst := insts.Instruction{Op: insts.OpAdd, Dest: 3, OpA: 1, OpB: 2}
		Expect(inst.Reads()).To(Equal([]uint32{1, 2}))
	})

	It("should read the data register then the address base for st", func() {
		inst := insts.Instruction{Op: insts.OpSt, Dest: 3, OpA: 4}
		Expect(inst.Reads()).To(Equal([]uint32{3, 4}))
	})

	It("should read nothing for loop and nop", func() {
		Expect(insts.Instruction{Op: insts.OpLoop}.Reads()).To(BeEmpty())
		Expect(insts.Instruction{Op: insts.OpNop}.Reads()).To(BeEmpty())
	})
})
