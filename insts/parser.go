package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser converts textual assembly lines into instructions.
type Parser struct{}

// NewParser creates a new assembly parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseProgram parses every line of a program. The returned
// instructions carry their source position in ID.
func (p *Parser) ParseProgram(lines []string) ([]Instruction, error) {
	prog := make([]Instruction, 0, len(lines))
	for i, line := range lines {
		inst, err := p.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d %q: %w", i, line, err)
		}
		inst.ID = i
		prog = append(prog, inst)
	}
	return prog, nil
}

// ParseLine parses a single assembly line.
func (p *Parser) ParseLine(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, fmt.Errorf("empty instruction")
	}

	mnemonic := fields[0]
	operands := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		operands = append(operands, strings.TrimSuffix(f, ","))
	}

	switch mnemonic {
	case "add", "sub", "mulu", "divu", "remu":
		return p.parseThreeReg(mnemonic, operands)
	case "addi":
		return p.parseAddi(operands)
	case "ld", "st":
		return p.parseMem(mnemonic, operands)
	case "loop", "loop.pip":
		return p.parseLoop(mnemonic, operands)
	case "mov":
		return p.parseMov(operands)
	case "nop":
		return Instruction{Op: OpNop}, nil
	}
	return Instruction{}, fmt.Errorf("unknown opcode %q", mnemonic)
}

func (p *Parser) parseThreeReg(mnemonic string, operands []string) (Instruction, error) {
	if len(operands) != 3 {
		return Instruction{}, fmt.Errorf("expected 3 operands, got %d", len(operands))
	}
	op := map[string]Op{
		"add":  OpAdd,
		"sub":  OpSub,
		"mulu": OpMulu,
		"divu": OpDivu,
		"remu": OpRemu,
	}[mnemonic]

	dest, err := parseReg(operands[0], 'x')
	if err != nil {
		return Instruction{}, err
	}
	opA, err := parseReg(operands[1], 'x')
	if err != nil {
		return Instruction{}, err
	}
	opB, err := parseReg(operands[2], 'x')
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dest: dest, OpA: opA, OpB: opB}, nil
}

func (p *Parser) parseAddi(operands []string) (Instruction, error) {
	if len(operands) != 3 {
		return Instruction{}, fmt.Errorf("expected 3 operands, got %d", len(operands))
	}
	dest, err := parseReg(operands[0], 'x')
	if err != nil {
		return Instruction{}, err
	}
	opA, err := parseReg(operands[1], 'x')
	if err != nil {
		return Instruction{}, err
	}
	imm, err := parseImm(operands[2])
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpAddi, Dest: dest, OpA: opA, Imm: imm}, nil
}

// parseMem handles "ld x1, 8(x2)" and "st x1, 0x10(x2)".
func (p *Parser) parseMem(mnemonic string, operands []string) (Instruction, error) {
	if len(operands) != 2 {
		return Instruction{}, fmt.Errorf("expected 2 operands, got %d", len(operands))
	}
	op := OpLd
	if mnemonic == "st" {
		op = OpSt
	}

	dest, err := parseReg(operands[0], 'x')
	if err != nil {
		return Instruction{}, err
	}

	addr := operands[1]
	lparen := strings.IndexByte(addr, '(')
	rparen := strings.IndexByte(addr, ')')
	if lparen < 0 || rparen < lparen {
		return Instruction{}, fmt.Errorf("invalid address %q", addr)
	}
	imm, err := parseImm(addr[:lparen])
	if err != nil {
		return Instruction{}, err
	}
	base, err := parseReg(addr[lparen+1:rparen], 'x')
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dest: dest, OpA: base, Imm: imm}, nil
}

func (p *Parser) parseLoop(mnemonic string, operands []string) (Instruction, error) {
	if len(operands) != 1 {
		return Instruction{}, fmt.Errorf("expected 1 operand, got %d", len(operands))
	}
	op := OpLoop
	if mnemonic == "loop.pip" {
		op = OpLoopPip
	}
	target, err := parseImm(operands[0])
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Imm: target}, nil
}

// parseMov distinguishes the four mov forms by the shape of the
// operands: a pN destination is a predicate move, an xN source is a
// register move, anything else is an immediate move (possibly to
// LC/EC).
func (p *Parser) parseMov(operands []string) (Instruction, error) {
	if len(operands) != 2 {
		return Instruction{}, fmt.Errorf("expected 2 operands, got %d", len(operands))
	}

	dst, src := operands[0], operands[1]
	switch {
	case strings.HasPrefix(dst, "p"):
		dest, err := parseReg(dst, 'p')
		if err != nil {
			return Instruction{}, err
		}
		var imm int64
		switch src {
		case "true":
			imm = 1
		case "false":
			imm = 0
		default:
			return Instruction{}, fmt.Errorf("invalid predicate value %q", src)
		}
		return Instruction{Op: OpMovPred, Dest: dest, Imm: imm}, nil

	case strings.HasPrefix(src, "x"):
		dest, err := parseReg(dst, 'x')
		if err != nil {
			return Instruction{}, err
		}
		opA, err := parseReg(src, 'x')
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: OpMovReg, Dest: dest, OpA: opA}, nil

	default:
		imm, err := parseImm(src)
		if err != nil {
			return Instruction{}, err
		}
		var dest uint32
		switch dst {
		case "LC":
			dest = RegLC
		case "EC":
			dest = RegEC
		default:
			dest, err = parseReg(dst, 'x')
			if err != nil {
				return Instruction{}, err
			}
		}
		return Instruction{Op: OpMovImm, Dest: dest, Imm: imm}, nil
	}
}

// parseReg parses a register token like "x12" or "p33".
func parseReg(s string, prefix byte) (uint32, error) {
	if len(s) < 2 || s[0] != prefix {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	return uint32(n), nil
}

// parseImm parses a decimal or 0x-prefixed immediate.
func parseImm(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate %q", s)
	}
	return n, nil
}
