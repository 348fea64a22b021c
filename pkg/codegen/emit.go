package codegen

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/vm"
)

// label identifies a position in the generated program that is not known
// until later — a function entry, a goto target, a branch destination. It
// is an index into emitter.labels, not a byte offset; offsets are resolved
// once in encode().
type label int

// inst is one not-yet-encoded instruction: either a concrete immediate
// value, or a reference to a label whose byte offset isn't known yet.
type inst struct {
	mnemonic string
	hasImm   bool
	imm      numeric.Value // used when target < 0
	target   label         // used when >= 0, overrides imm
}

const noTarget label = -1

// emitter accumulates instructions in source order and resolves label
// references to byte offsets in a single pass at the end, the same
// two-pass structure an assembler uses for forward references.
type emitter struct {
	instrs    []inst
	labelPos  []int // index into instrs where each label was defined, -1 if undefined
	nextLabel label
}

func newEmitter() *emitter {
	return &emitter{}
}

// newLabel reserves a label without binding it to a position yet, for
// forward references (a goto whose target hasn't been generated, a switch
// case dispatched to a statement later in the body).
func (e *emitter) newLabel() label {
	e.labelPos = append(e.labelPos, -1)
	l := e.nextLabel
	e.nextLabel++
	return l
}

// defineLabel binds l to the instruction about to be emitted next.
func (e *emitter) defineLabel(l label) {
	e.labelPos[l] = len(e.instrs)
}

// emit appends an instruction with no immediate, e.g. "halt" or "return".
func (e *emitter) emit(mnemonic string) {
	e.instrs = append(e.instrs, inst{mnemonic: mnemonic, target: noTarget})
}

// emitConcrete appends an instruction whose immediate value is already
// known, e.g. a loadc of a literal or a loada of a frame offset.
func (e *emitter) emitConcrete(mnemonic string, imm numeric.Value) {
	e.instrs = append(e.instrs, inst{mnemonic: mnemonic, hasImm: true, imm: imm, target: noTarget})
}

// emitToLabel appends an instruction whose uint16 immediate is a byte
// offset resolved from a label, e.g. "jump", "jumpz", "call".
func (e *emitter) emitToLabel(mnemonic string, l label) {
	e.instrs = append(e.instrs, inst{mnemonic: mnemonic, hasImm: true, target: l})
}

// encode resolves every label reference and lays out the final byte image.
// Label positions are "index of the next instruction at definition time";
// this pass first computes each instruction's byte offset by a forward
// scan, then a second scan writes the bytes, now that every label's byte
// offset is known.
func (e *emitter) encode() ([]byte, error) {
	offsets := make([]int, len(e.instrs)+1)
	offset := 0
	for i, in := range e.instrs {
		offsets[i] = offset
		width, err := in.width()
		if err != nil {
			return nil, err
		}
		offset += width
	}
	offsets[len(e.instrs)] = offset

	labelOffset := make([]int, len(e.labelPos))
	for l, idx := range e.labelPos {
		if idx < 0 {
			return nil, fmt.Errorf("codegen: label %d is never defined", l)
		}
		labelOffset[l] = offsets[idx]
	}

	out := make([]byte, 0, offset)
	for _, in := range e.instrs {
		def, ok := vm.LookupMnemonic(in.mnemonic)
		if !ok {
			return nil, fmt.Errorf("codegen: unknown mnemonic %q", in.mnemonic)
		}
		out = append(out, def.Opcode)
		if !def.HasImmediate {
			continue
		}
		val := in.imm
		if in.target != noTarget {
			val = numeric.FromUint64(def.ImmediateType, uint64(labelOffset[in.target]))
		}
		bytes, err := encodeImmediate(def.ImmediateType, val)
		if err != nil {
			return nil, err
		}
		out = append(out, bytes...)
	}
	return out, nil
}

func (in inst) width() (int, error) {
	def, ok := vm.LookupMnemonic(in.mnemonic)
	if !ok {
		return 0, fmt.Errorf("codegen: unknown mnemonic %q", in.mnemonic)
	}
	return 1 + def.ImmediateSize(), nil
}

// encodeImmediate renders v's big-endian bytes by writing it through a
// scratch one-value vm.Memory buffer, reusing the VM's own encoding rather
// than re-deriving it with encoding/binary here.
func encodeImmediate(t numeric.Type, v numeric.Value) ([]byte, error) {
	mem, err := vm.NewMemory(t.SizeInBytes())
	if err != nil {
		return nil, err
	}
	if err := mem.Write(0, v); err != nil {
		return nil, err
	}
	return mem.Bytes(), nil
}

// opName renders the parameterized mnemonic a type-generic instruction
// family uses, matching the naming scheme pkg/vm builds its table from
// (e.g. "add<sint32>").
func opName(base string, t numeric.Type) string { return fmt.Sprintf("%s<%s>", base, t) }

// castName renders a cast<A,B> mnemonic.
func castName(from, to numeric.Type) string { return fmt.Sprintf("cast<%s,%s>", from, to) }
