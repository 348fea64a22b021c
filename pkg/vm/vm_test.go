package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// assembleTest encodes a sequence of mnemonics into a byte image of their
// opcodes only; it writes no immediates.
func assembleTest(t *testing.T, ops ...string) []byte {
	t.Helper()
	var out []byte
	for _, m := range ops {
		in, ok := LookupMnemonic(m)
		require.True(t, ok, "unknown mnemonic %q", m)
		out = append(out, in.Opcode)
	}
	return out
}

// encodeImmediate returns the big-endian encoding of bits as typ, for the
// caller to append after the opcode byte of its instruction.
func encodeImmediate(t *testing.T, typ numeric.Type, bits uint64) []byte {
	t.Helper()
	mem, err := NewMemory(typ.SizeInBytes())
	require.NoError(t, err)
	require.NoError(t, mem.Write(0, numeric.FromUint64(typ, bits)))
	return mem.Bytes()
}

func TestArithmeticAddAndHalt(t *testing.T) {
	v, err := New(64, 64)
	require.NoError(t, err)

	addIn, ok := LookupMnemonic(mnemonic("add", numeric.Sint32))
	require.True(t, ok)
	loadcIn, ok := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	require.True(t, ok)
	haltIn, ok := LookupMnemonic("halt")
	require.True(t, ok)

	var program []byte
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 10)...)
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 20)...)
	program = append(program, addIn.Opcode)
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 0)...)
	program = append(program, haltIn.Opcode)

	require.NoError(t, v.LoadProgram(program))
	status, err := v.Run()
	require.NoError(t, err)
	require.EqualValues(t, 0, status)
	// 30 should still be sitting on the stack below the status code halt popped.
	result, err := v.Memory.Read(v.StackPointer, numeric.Sint32)
	require.NoError(t, err)
	require.EqualValues(t, 30, result.AsInt64())
}

func TestDivisionByZeroSignalsError(t *testing.T) {
	v, err := New(64, 64)
	require.NoError(t, err)

	loadcIn, _ := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	divIn, _ := LookupMnemonic(mnemonic("div", numeric.Sint32))

	var program []byte
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 10)...)
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 0)...)
	program = append(program, divIn.Opcode)

	require.NoError(t, v.LoadProgram(program))
	_, err = v.Run()
	require.Error(t, err)
	var dz *DivisionByZeroSignal
	require.ErrorAs(t, err, &dz)
}

func TestJumpzSkipsOnZero(t *testing.T) {
	v, err := New(64, 64)
	require.NoError(t, err)

	jumpzIn, _ := LookupMnemonic("jumpz")
	loadcS32, _ := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	haltIn, _ := LookupMnemonic("halt")

	// jumpz over a loadc<sint32> 99 straight to halt with status 7.
	var program []byte
	program = append(program, loadcS32.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 0)...)
	program = append(program, jumpzIn.Opcode)
	target := len(program) + 2 /* jumpz immediate width */ + 1 + 4 /* skipped loadc<sint32> 99 */
	program = append(program, encodeImmediate(t, numeric.Uint16, uint64(target))...)
	program = append(program, loadcS32.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 99)...)
	program = append(program, loadcS32.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 7)...)
	program = append(program, haltIn.Opcode)

	require.NoError(t, v.LoadProgram(program))
	status, err := v.Run()
	require.NoError(t, err)
	require.EqualValues(t, 7, status)
}

func TestCallEnterReturn(t *testing.T) {
	v, err := New(128, 128)
	require.NoError(t, err)

	loadcS32, _ := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	callIn, _ := LookupMnemonic("call")
	enterIn, _ := LookupMnemonic("enter")
	returnIn, _ := LookupMnemonic("return")
	haltIn, _ := LookupMnemonic("halt")
	popIn, _ := LookupMnemonic("pop")

	// main: call callee; pop the pushed argument slot; halt.
	// callee: enter 0; return.
	var main []byte
	main = append(main, loadcS32.Opcode)
	main = append(main, encodeImmediate(t, numeric.Sint32, 0)...) // placeholder arg
	calleeOffset := 0 // patched below
	main = append(main, callIn.Opcode)
	callFixup := len(main)
	main = append(main, encodeImmediate(t, numeric.Uint16, 0)...)
	main = append(main, popIn.Opcode)
	main = append(main, encodeImmediate(t, numeric.Uint16, 4)...)
	main = append(main, loadcS32.Opcode)
	main = append(main, encodeImmediate(t, numeric.Sint32, 0)...)
	main = append(main, haltIn.Opcode)

	calleeOffset = len(main)
	var callee []byte
	callee = append(callee, enterIn.Opcode)
	callee = append(callee, encodeImmediate(t, numeric.Uint16, 0)...)
	callee = append(callee, returnIn.Opcode)

	program := append(main, callee...)
	copy(program[callFixup:], encodeImmediate(t, numeric.Uint16, uint64(calleeOffset)))

	require.NoError(t, v.LoadProgram(program))
	status, err := v.Run()
	require.NoError(t, err)
	require.EqualValues(t, 0, status)
}

func TestAllocStaysBelowStackPointer(t *testing.T) {
	v, err := New(16, 16)
	require.NoError(t, err)

	allocIn, _ := LookupMnemonic("alloc")
	haltIn, _ := LookupMnemonic("halt")

	var program []byte
	program = append(program, allocIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Uint16, 4)...)
	program = append(program, haltIn.Opcode)

	require.NoError(t, v.LoadProgram(program))
	_, err = v.Run()
	require.NoError(t, err)
	require.EqualValues(t, 4, v.ExtremePointer)
}

func TestDisassembleRoundTripsMnemonics(t *testing.T) {
	loadcIn, _ := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	haltIn, _ := LookupMnemonic("halt")

	var program []byte
	program = append(program, loadcIn.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 5)...)
	program = append(program, haltIn.Opcode)

	out := Disassemble(program)
	require.Contains(t, out, "loadc<sint32> 5")
	require.Contains(t, out, "halt")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	v, err := New(32, 32)
	require.NoError(t, err)

	loadcS32, _ := LookupMnemonic(mnemonic("loadc", numeric.Sint32))
	var program []byte
	program = append(program, loadcS32.Opcode)
	program = append(program, encodeImmediate(t, numeric.Sint32, 17)...)
	require.NoError(t, v.LoadProgram(program))

	in, _ := LookupOpcode(program[0])
	require.NoError(t, in.execute(v, numeric.FromUint64(numeric.Sint32, 17)))

	data, err := v.Snapshot()
	require.NoError(t, err)

	restored, err := New(32, 32)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(data))
	require.Equal(t, v.StackPointer, restored.StackPointer)

	val, err := restored.Memory.Read(restored.StackPointer, numeric.Sint32)
	require.NoError(t, err)
	require.EqualValues(t, 17, val.AsInt64())
}
