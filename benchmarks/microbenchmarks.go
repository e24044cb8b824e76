package benchmarks

// GetMicrobenchmarks returns the standard benchmark set. Each entry
// targets one characteristic of the pipeline or the schedulers.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentArithmetic(),
		dependencyChain(),
		multiplyChain(),
		divideByZero(),
		accumulatingLoop(),
		resourceLimitedLoop(),
		memoryLoop(),
	}
}

// independentArithmetic measures issue width with no data hazards.
func independentArithmetic() Benchmark {
	return Benchmark{
		Name:        "independent_arithmetic",
		Description: "8 independent addi operations - issue and commit width",
		Program: []string{
			"addi x1, x0, 1",
			"addi x2, x0, 2",
			"addi x3, x0, 3",
			"addi x4, x0, 4",
			"addi x5, x0, 5",
			"addi x6, x0, 6",
			"addi x7, x0, 7",
			"addi x8, x0, 8",
		},
		Simulate: true,
		Compile:  true,
	}
}

// dependencyChain serializes every instruction behind the previous
// one.
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "6 chained adds - forwarding latency",
		Program: []string{
			"addi x1, x0, 1",
			"add x2, x1, x1",
			"add x3, x2, x2",
			"add x4, x3, x3",
			"add x5, x4, x4",
			"add x6, x5, x5",
		},
		Simulate: true,
		Compile:  true,
	}
}

// multiplyChain exposes the 3-cycle multiply latency.
func multiplyChain() Benchmark {
	return Benchmark{
		Name:        "multiply_chain",
		Description: "3 chained mulu operations - multiply latency",
		Program: []string{
			"mulu x1, x0, x0",
			"mulu x2, x1, x1",
			"mulu x3, x2, x2",
		},
		Simulate: true,
		Compile:  true,
	}
}

// divideByZero exercises the precise-exception rollback path.
func divideByZero() Benchmark {
	return Benchmark{
		Name:        "divide_by_zero",
		Description: "divu by zero - exception rollback",
		Program: []string{
			"addi x1, x0, 10",
			"addi x2, x0, 0",
			"divu x3, x1, x2",
			"addi x4, x0, 99",
		},
		Simulate: true,
	}
}

// accumulatingLoop carries a value across iterations.
func accumulatingLoop() Benchmark {
	return Benchmark{
		Name:        "accumulating_loop",
		Description: "loop-carried accumulation - interloop mov fixup",
		Program: []string{
			"mov LC, 10",
			"mov x2, 0",
			"mov x3, 1",
			"add x2, x2, x3",
			"loop 3",
			"st x2, 0(x1)",
		},
		Compile: true,
	}
}

// resourceLimitedLoop saturates the two ALU slots.
func resourceLimitedLoop() Benchmark {
	return Benchmark{
		Name:        "resource_limited_loop",
		Description: "3 ALU ops and a load per iteration - II bounded by resources",
		Program: []string{
			"mov LC, 4",
			"add x1, x5, x6",
			"add x2, x5, x6",
			"add x3, x5, x6",
			"ld x4, 0(x7)",
			"loop 1",
		},
		Compile: true,
	}
}

// memoryLoop streams through memory with a moving pointer.
func memoryLoop() Benchmark {
	return Benchmark{
		Name:        "memory_loop",
		Description: "load-modify-store with pointer increment",
		Program: []string{
			"mov LC, 8",
			"mov x1, 0x100",
			"ld x2, 0(x1)",
			"addi x2, x2, 1",
			"st x2, 0(x1)",
			"addi x1, x1, 8",
			"loop 2",
		},
		Compile: true,
	}
}
