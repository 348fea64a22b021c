// Package vm implements the stack machine the code generator targets: a
// closed, position-ordered instruction set (instruction.go), a flat
// big-endian memory model (memory.go), the execution loop and its
// signals (vm.go, signals.go), a disassembler (disassembler.go), and
// snapshot/restore of a running machine's state (snapshot.go).
package vm

import (
	"errors"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// addressType is the width and interpretation every stack/heap address is
// encoded as: an unsigned word wide enough to index either buffer's
// 2^16-byte ceiling with headroom for the pointer arithmetic an `alloc`
// result participates in.
var addressType = numeric.Uint32

// frameSlotSize is the width of each of the three registers a `call`
// saves and a `return` restores.
const frameSlotSize = 4

// VM is one running instance of the stack machine: two fixed-size byte
// buffers (Program, read-only once loaded; Memory, the stack and heap)
// and four registers. The stack occupies the high end of Memory and
// grows downward; the heap grows upward from address 0. StackPointer
// must never fall to or below ExtremePointer — that collision is the
// machine's only form of out-of-memory.
type VM struct {
	Program *Memory
	Memory  *Memory

	ProgramCounter int
	StackPointer   int
	FramePointer   int
	ExtremePointer int
}

// New constructs a VM with the given program and memory capacities, each
// validated against MaxBufferSize independently.
func New(programSize, memorySize int) (*VM, error) {
	program, err := NewMemory(programSize)
	if err != nil {
		return nil, err
	}
	mem, err := NewMemory(memorySize)
	if err != nil {
		return nil, err
	}
	v := &VM{Program: program, Memory: mem}
	v.reset()
	return v, nil
}

func (v *VM) reset() {
	v.ProgramCounter = 0
	v.StackPointer = v.Memory.Size()
	v.FramePointer = v.Memory.Size()
	v.ExtremePointer = 0
}

// LoadProgram copies code into the program buffer and resets every
// register to its initial value: ProgramCounter at 0, the stack and
// frame pointers at the top of memory, the extreme pointer at the
// bottom.
func (v *VM) LoadProgram(code []byte) error {
	if len(code) > v.Program.Size() {
		return &ArgumentError{What: "program image", Size: len(code)}
	}
	copy(v.Program.Bytes(), code)
	for i := len(code); i < v.Program.Size(); i++ {
		v.Program.Bytes()[i] = 0
	}
	v.reset()
	return nil
}

// Run executes instructions starting at the current ProgramCounter until
// a `halt` instruction runs or a signal terminates the machine early. A
// halt's status code is returned as a normal result; every other signal
// (segfault, division by zero) is returned as an error.
func (v *VM) Run() (statusCode uint32, err error) {
	for {
		opcode, err := v.fetchOpcode()
		if err != nil {
			return 0, err
		}
		instr, ok := LookupOpcode(opcode)
		if !ok {
			return 0, &SegfaultSignal{Address: v.ProgramCounter - 1, Reason: "invalid opcode"}
		}

		var imm numeric.Value
		if instr.HasImmediate {
			imm, err = v.Program.Read(v.ProgramCounter, instr.ImmediateType)
			if err != nil {
				return 0, &SegfaultSignal{Address: v.ProgramCounter, Reason: "immediate read past end of program"}
			}
			v.ProgramCounter += instr.ImmediateSize()
		}

		if err := instr.execute(v, imm); err != nil {
			var halt *HaltSignal
			if errors.As(err, &halt) {
				return halt.StatusCode, nil
			}
			return 0, err
		}
	}
}

func (v *VM) fetchOpcode() (byte, error) {
	if v.ProgramCounter < 0 || v.ProgramCounter >= v.Program.Size() {
		return 0, &SegfaultSignal{Address: v.ProgramCounter, Reason: "program counter out of range"}
	}
	b := v.Program.Bytes()[v.ProgramCounter]
	v.ProgramCounter++
	return b, nil
}

// pushValue writes v at the decremented StackPointer. It fails if doing
// so would collide with the heap.
func (v *VM) pushValue(val numeric.Value) error {
	n := val.Type.SizeInBytes()
	if v.StackPointer-n <= v.ExtremePointer {
		return &SegfaultSignal{Address: v.StackPointer - n, Reason: "stack/heap collision"}
	}
	v.StackPointer -= n
	return v.Memory.Write(v.StackPointer, val)
}

// popValue reads a value of type t from the current StackPointer and
// advances it past the value.
func (v *VM) popValue(t numeric.Type) (numeric.Value, error) {
	n := t.SizeInBytes()
	if v.StackPointer+n > v.Memory.Size() {
		return numeric.Value{}, &SegfaultSignal{Address: v.StackPointer, Reason: "stack underflow"}
	}
	val, err := v.Memory.Read(v.StackPointer, t)
	if err != nil {
		return numeric.Value{}, err
	}
	v.StackPointer += n
	return val, nil
}

func (v *VM) pushAddress(addr int) error {
	return v.pushValue(numeric.FromUint64(addressType, uint64(addr)))
}

func (v *VM) popAddress() (int, error) {
	val, err := v.popValue(addressType)
	if err != nil {
		return 0, err
	}
	return int(val.AsUint64()), nil
}

// widthToType maps a raw byte count to the unsigned Number variant of
// that width, used by `store`/`loadr`/`alloc`, which move bytes without
// caring whether the caller's C-level type is signed, unsigned, or float.
func widthToType(n int) (numeric.Type, error) {
	switch n {
	case 1:
		return numeric.Uint8, nil
	case 2:
		return numeric.Uint16, nil
	case 4:
		return numeric.Uint32, nil
	case 8:
		return numeric.Uint64, nil
	default:
		return numeric.Type{}, &ArgumentError{What: "access width", Size: n}
	}
}
