package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// MaxBufferSize is the 2^16 byte ceiling §6 places on both the program and
// memory buffers.
const MaxBufferSize = 1 << 16

// ArgumentError is raised when a VM is constructed with a buffer size
// outside [0, MaxBufferSize].
type ArgumentError struct {
	What string
	Size int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: size %d is outside [0, %d]", e.What, e.Size, MaxBufferSize)
}

// RangeError is raised when a Read or Write falls outside a Memory's
// bounds.
type RangeError struct {
	Address  int
	Size     int
	Capacity int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("address %d (width %d) is out of range for a %d-byte buffer", e.Address, e.Size, e.Capacity)
}

// Memory is a flat, fixed-size, big-endian byte buffer — the VM's
// `program` (read-only bytecode) or `memory` (stack + heap) per §3. It is
// never resized after construction.
type Memory struct {
	buf []byte
}

// NewMemory allocates a zeroed buffer of the given size.
func NewMemory(size int) (*Memory, error) {
	if size < 0 || size > MaxBufferSize {
		return nil, &ArgumentError{What: "memory buffer", Size: size}
	}
	return &Memory{buf: make([]byte, size)}, nil
}

// Size returns the buffer's fixed capacity in bytes.
func (m *Memory) Size() int { return len(m.buf) }

// Bytes exposes the underlying buffer directly, for program loading and
// snapshotting. Callers must not retain a reference past the Memory's
// lifetime expectations (copy if independence is needed).
func (m *Memory) Bytes() []byte { return m.buf }

// Read decodes a value of type t at address, big-endian, per §3's Memory
// buffer model.
func (m *Memory) Read(address int, t numeric.Type) (numeric.Value, error) {
	n := t.SizeInBytes()
	if address < 0 || address+n > len(m.buf) {
		return numeric.Value{}, &RangeError{Address: address, Size: n, Capacity: len(m.buf)}
	}
	raw := m.buf[address : address+n]

	if t.Interpretation() == numeric.Float {
		if n == 4 {
			return numeric.FromFloat64(t, float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))), nil
		}
		return numeric.FromFloat64(t, math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	}

	var bits uint64
	for _, b := range raw {
		bits = bits<<8 | uint64(b)
	}
	return numeric.FromUint64(t, bits), nil
}

// Write encodes v at address, big-endian. Integer values are truncated to
// the type's bitmask (already done by the Value constructors); floats are
// stored as IEEE-754.
func (m *Memory) Write(address int, v numeric.Value) error {
	n := v.Type.SizeInBytes()
	if address < 0 || address+n > len(m.buf) {
		return &RangeError{Address: address, Size: n, Capacity: len(m.buf)}
	}
	dst := m.buf[address : address+n]

	if v.Type.Interpretation() == numeric.Float {
		if n == 4 {
			binary.BigEndian.PutUint32(dst, math.Float32bits(float32(v.AsFloat64())))
		} else {
			binary.BigEndian.PutUint64(dst, math.Float64bits(v.AsFloat64()))
		}
		return nil
	}

	bits := v.AsUint64()
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(bits)
		bits >>= 8
	}
	return nil
}
