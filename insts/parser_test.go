package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thecodehen/epfl-cs470-s25-hw/insts"
)

var _ = Describe("Parser", func() {
	var parser *insts.Parser

	BeforeEach(func() {
		parser = insts.NewParser()
	})

	Describe("three-register arithmetic", func() {
		It("should parse add", func() {
			inst, err := parser.ParseLine("add x3, x1, x2")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpAdd))
			Expect(inst.Dest).To(Equal(uint32(3)))
			Expect(inst.OpA).To(Equal(uint32(1)))
			Expect(inst.OpB).To(Equal(uint32(2)))
		})

		It("should parse mulu", func() {
			inst, err := parser.ParseLine("mulu x10, x11, x12")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMulu))
			Expect(inst.Dest).To(Equal(uint32(10)))
		})

		It("should parse divu and remu", func() {
			divu, err := parser.ParseLine("divu x1, x2, x3")
			Expect(err).NotTo(HaveOccurred())
			Expect(divu.Op).To(Equal(insts.OpDivu))

			remu, err := parser.ParseLine("remu x1, x2, x3")
			Expect(err).NotTo(HaveOccurred())
			Expect(remu.Op).To(Equal(insts.OpRemu))
		})
	})

	Describe("addi", func() {
		It("should parse a positive immediate", func() {
			inst, err := parser.ParseLine("addi x1, x0, 5")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpAddi))
			Expect(inst.Imm).To(Equal(int64(5)))
		})

		It("should parse a negative immediate", func() {
			inst, err := parser.ParseLine("addi x1, x2, -17")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Imm).To(Equal(int64(-17)))
		})

		It("should parse a hex immediate", func() {
			inst, err := parser.ParseLine("addi x1, x2, 0x10")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Imm).To(Equal(int64(16)))
		})
	})

	Describe("memory operations", func() {
		It("should parse ld", func() {
			inst, err := parser.ParseLine("ld x2, 8(x1)")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLd))
			Expect(inst.Dest).To(Equal(uint32(2)))
			Expect(inst.OpA).To(Equal(uint32(1)))
			Expect(inst.Imm).To(Equal(int64(8)))
		})

		It("should parse st", func() {
			inst, err := parser.ParseLine("st x3, 0(x4)")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSt))
			Expect(inst.Dest).To(Equal(uint32(3)))
			Expect(inst.OpA).To(Equal(uint32(4)))
			Expect(inst.Imm).To(Equal(int64(0)))
		})

		It("should reject a malformed address", func() {
			_, err := parser.ParseLine("ld x2, 8x1")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("loops", func() {
		It("should parse loop", func() {
			inst, err := parser.ParseLine("loop 3")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLoop))
			Expect(inst.Imm).To(Equal(int64(3)))
		})

		It("should parse loop.pip", func() {
			inst, err := parser.ParseLine("loop.pip 1")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLoopPip))
			Expect(inst.Imm).To(Equal(int64(1)))
		})
	})

	Describe("mov forms", func() {
		It("should parse a register move", func() {
			inst, err := parser.ParseLine("mov x1, x2")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMovReg))
			Expect(inst.Dest).To(Equal(uint32(1)))
			Expect(inst.OpA).To(Equal(uint32(2)))
		})

		It("should parse an immediate move", func() {
			inst, err := parser.ParseLine("mov x5, 42")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMovImm))
			Expect(inst.Dest).To(Equal(uint32(5)))
			Expect(inst.Imm).To(Equal(int64(42)))
		})

		It("should parse LC and EC moves", func() {
			lc, err := parser.ParseLine("mov LC, 10")
			Expect(err).NotTo(HaveOccurred())
			Expect(lc.Op).To(Equal(insts.OpMovImm))
			Expect(lc.Dest).To(Equal(insts.RegLC))

			ec, err := parser.ParseLine("mov EC, 2")
			Expect(err).NotTo(HaveOccurred())
			Expect(ec.Dest).To(Equal(insts.RegEC))
		})

		It("should parse predicate moves", func() {
			inst, err := parser.ParseLine("mov p32, true")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMovPred))
			Expect(inst.Dest).To(Equal(uint32(32)))
			Expect(inst.Imm).To(Equal(int64(1)))

			inst, err = parser.ParseLine("mov p33, false")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Imm).To(Equal(int64(0)))
		})

		It("should reject an invalid predicate value", func() {
			_, err := parser.ParseLine("mov p32, maybe")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("nop", func() {
		It("should parse nop", func() {
			inst, err := parser.ParseLine("nop")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpNop))
		})
	})

	Describe("errors", func() {
		It("should reject an unknown opcode", func() {
			_, err := parser.ParseLine("frobnicate x1, x2, x3")

			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty line", func() {
			_, err := parser.ParseLine("")

			Expect(err).To(HaveOccurred())
		})

		It("should report the offending line in ParseProgram", func() {
			_, err := parser.ParseProgram([]string{"add x1, x2, x3", "bogus"})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("line 1"))
		})
	})

	Describe("ParseProgram", func() {
		It("should number instructions by source position", func() {
			prog, err := parser.ParseProgram([]string{
				"addi x1, x0, 5",
				"addi x2, x0, 7",
				"add x3, x1, x2",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(prog).To(HaveLen(3))
			Expect(prog[0].ID).To(Equal(0))
			Expect(prog[2].ID).To(Equal(2))
		})
	})

	Describe("round trip", func() {
		It("should render back to the source text", func() {
			lines := []string{
				"add x3, x1, x2",
				"addi x1, x0, 5",
				"sub x4, x3, x1",
				"mulu x5, x4, x4",
				"ld x2, 8(x1)",
				"st x3, 0(x4)",
				"loop 2",
				"loop.pip 1",
				"mov x1, x2",
				"mov x5, 42",
				"mov LC, 10",
				"mov EC, 2",
				"mov p32, true",
				"mov p33, false",
				"nop",
			}

			for _, line := range lines {
				inst, err := parser.ParseLine(line)
				Expect(err).NotTo(HaveOccurred())
				Expect(inst.String()).To(Equal(line))
			}
		})
	})
})
