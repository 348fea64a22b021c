package vm

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// Instruction is one entry of the closed instruction set: a mnemonic
// unique across the whole set (used for equality/hashing by value, per
// §4.5.4), an opcode assigned by position in the authoritative list
// built in init(), an optional immediate-argument number type, and the
// execute routine invoked once the opcode and immediate are decoded.
type Instruction struct {
	Mnemonic      string
	Opcode        byte
	HasImmediate  bool
	ImmediateType numeric.Type
	execute       func(v *VM, imm numeric.Value) error
}

// ImmediateSize returns the encoded width of this instruction's immediate
// argument, 0 if it takes none.
func (in *Instruction) ImmediateSize() int {
	if !in.HasImmediate {
		return 0
	}
	return in.ImmediateType.SizeInBytes()
}

// instructionSet is the authoritative, position-ordered list: opcode N is
// instructionSet[N-1] (opcode 0 is invalid, per §6). byMnemonic is the
// same set keyed for the code generator's by-value lookup.
var (
	instructionSet []*Instruction
	byMnemonic      map[string]*Instruction
)

func init() {
	instructionSet = buildInstructionSet()
	byMnemonic = make(map[string]*Instruction, len(instructionSet))
	for i, in := range instructionSet {
		in.Opcode = byte(i + 1)
		byMnemonic[in.Mnemonic] = in
	}
	if len(instructionSet) > 255 {
		panic("vm: instruction set exceeds the 1-byte opcode space")
	}
}

// LookupMnemonic returns the instruction with the given mnemonic, used by
// the code generator to resolve a value (mnemonic + type parameters) to
// its assigned opcode without ever hard-coding the integer.
func LookupMnemonic(mnemonic string) (*Instruction, bool) {
	in, ok := byMnemonic[mnemonic]
	return in, ok
}

// LookupOpcode returns the instruction assigned to opcode, used by the
// execution loop and the disassembler. opcode 0 and any value past the
// end of the table are invalid.
func LookupOpcode(opcode byte) (*Instruction, bool) {
	if opcode == 0 || int(opcode) > len(instructionSet) {
		return nil, false
	}
	return instructionSet[opcode-1], true
}

// mnemonic renders the parameterized mnemonics the table builds from,
// e.g. mnemonic("add", numeric.Sint32) -> "add<sint32>".
func mnemonic(base string, t numeric.Type) string { return fmt.Sprintf("%s<%s>", base, t) }

func castMnemonic(from, to numeric.Type) string { return fmt.Sprintf("cast<%s,%s>", from, to) }

// buildInstructionSet enumerates every instruction variant in the fixed
// order that assigns opcodes: loadc<N> per §4.5.4, then the unparameterized
// stack/control instructions in the order the spec's table lists them,
// then cast<A,B> for every non-identity pair, then the type-parameterized
// arithmetic, bitwise/shift, and comparison families, then `not`.
func buildInstructionSet() []*Instruction {
	var list []*Instruction

	for _, t := range numeric.All {
		list = append(list, &Instruction{
			Mnemonic: mnemonic("loadc", t), HasImmediate: true, ImmediateType: t,
			execute: execLoadc(t),
		})
	}

	list = append(list,
		&Instruction{Mnemonic: "pop", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execPop},
		&Instruction{Mnemonic: "alloc", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execAlloc},
		&Instruction{Mnemonic: "loada", HasImmediate: true, ImmediateType: numeric.Sint16, execute: execLoada},
		&Instruction{Mnemonic: "store", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execStore},
		&Instruction{Mnemonic: "loadr", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execLoadr},
		&Instruction{Mnemonic: "halt", execute: execHalt},
		&Instruction{Mnemonic: "jump", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execJump},
		&Instruction{Mnemonic: "jumpz", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execJumpz},
		&Instruction{Mnemonic: "call", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execCall},
		&Instruction{Mnemonic: "enter", HasImmediate: true, ImmediateType: numeric.Uint16, execute: execEnter},
		&Instruction{Mnemonic: "return", execute: execReturn},
	)

	for _, from := range numeric.All {
		for _, to := range numeric.All {
			if from == to {
				continue // the code generator never emits a cast to a value's own type
			}
			from, to := from, to
			list = append(list, &Instruction{
				Mnemonic: castMnemonic(from, to),
				execute:  execCast(from, to),
			})
		}
	}

	for _, t := range numeric.All {
		t := t
		list = append(list,
			&Instruction{Mnemonic: mnemonic("add", t), execute: execArith(t, arithAdd)},
			&Instruction{Mnemonic: mnemonic("sub", t), execute: execArith(t, arithSub)},
			&Instruction{Mnemonic: mnemonic("mul", t), execute: execArith(t, arithMul)},
			&Instruction{Mnemonic: mnemonic("div", t), execute: execArith(t, arithDiv)},
			&Instruction{Mnemonic: mnemonic("mod", t), execute: execArith(t, arithMod)},
		)
	}

	for _, t := range numeric.All {
		if !t.IsInteger() {
			continue
		}
		t := t
		list = append(list,
			&Instruction{Mnemonic: mnemonic("and", t), execute: execBitwise(t, func(a, b uint64) uint64 { return a & b })},
			&Instruction{Mnemonic: mnemonic("or", t), execute: execBitwise(t, func(a, b uint64) uint64 { return a | b })},
			&Instruction{Mnemonic: mnemonic("xor", t), execute: execBitwise(t, func(a, b uint64) uint64 { return a ^ b })},
			&Instruction{Mnemonic: mnemonic("shl", t), execute: execShift(t, true)},
			&Instruction{Mnemonic: mnemonic("shr", t), execute: execShift(t, false)},
		)
	}

	for _, t := range numeric.All {
		t := t
		list = append(list,
			&Instruction{Mnemonic: mnemonic("eq", t), execute: execCompare(t, compareEq)},
			&Instruction{Mnemonic: mnemonic("gt", t), execute: execCompare(t, compareGt)},
			&Instruction{Mnemonic: mnemonic("ge", t), execute: execCompare(t, compareGe)},
			&Instruction{Mnemonic: mnemonic("lt", t), execute: execCompare(t, compareLt)},
			&Instruction{Mnemonic: mnemonic("le", t), execute: execCompare(t, compareLe)},
		)
	}

	list = append(list, &Instruction{Mnemonic: "not", execute: execNot})

	return list
}
