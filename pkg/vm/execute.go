package vm

import "github.com/pschiffmann/minic/pkg/numeric"

// execLoadc pushes the decoded immediate verbatim; the immediate's own
// type is the pushed value's type.
func execLoadc(t numeric.Type) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		return v.pushValue(imm)
	}
}

// execPop discards the top imm bytes of the stack without inspecting
// them, used by the code generator to drop an expression statement's
// unused result.
func execPop(v *VM, imm numeric.Value) error {
	n := int(imm.AsUint64())
	if v.StackPointer+n > v.Memory.Size() {
		return &SegfaultSignal{Address: v.StackPointer, Reason: "stack underflow"}
	}
	v.StackPointer += n
	return nil
}

// execAlloc bumps the heap's high-water mark by imm bytes and pushes the
// address of the new block.
func execAlloc(v *VM, imm numeric.Value) error {
	n := int(imm.AsUint64())
	addr := v.ExtremePointer
	if addr+n >= v.StackPointer {
		return &SegfaultSignal{Address: addr + n, Reason: "heap/stack collision"}
	}
	v.ExtremePointer += n
	return v.pushAddress(addr)
}

// execLoada pushes FramePointer+imm — the address of a local variable or
// parameter at that frame offset — without reading its value. The offset
// is signed: parameters and the result slot sit above FramePointer,
// locals sit below it.
func execLoada(v *VM, imm numeric.Value) error {
	return v.pushAddress(v.FramePointer + int(imm.AsInt64()))
}

// execStore implements `target = value`: the stack holds [..., address,
// value] with value on top. It writes value to address and leaves value
// on top, so an assignment expression's own value is the assigned value.
// imm is the access width in bytes.
func execStore(v *VM, imm numeric.Value) error {
	width, err := widthToType(int(imm.AsUint64()))
	if err != nil {
		return err
	}
	val, err := v.popValue(width)
	if err != nil {
		return err
	}
	addr, err := v.popAddress()
	if err != nil {
		return err
	}
	if err := v.Memory.Write(addr, val); err != nil {
		return &SegfaultSignal{Address: addr, Reason: "store out of range"}
	}
	return v.pushValue(val)
}

// execLoadr dereferences an address on top of the stack, replacing it
// with the imm-byte value found there.
func execLoadr(v *VM, imm numeric.Value) error {
	width, err := widthToType(int(imm.AsUint64()))
	if err != nil {
		return err
	}
	addr, err := v.popAddress()
	if err != nil {
		return err
	}
	val, err := v.Memory.Read(addr, width)
	if err != nil {
		return &SegfaultSignal{Address: addr, Reason: "load out of range"}
	}
	return v.pushValue(val)
}

// execHalt pops a status code, defaulting to 0 when the stack is already
// empty (an empty `main` body falling through to the bootstrap's halt).
func execHalt(v *VM, imm numeric.Value) error {
	status := uint32(0)
	if val, err := v.popValue(numeric.Uint32); err == nil {
		status = uint32(val.AsUint64())
	}
	return &HaltSignal{StatusCode: status}
}

func execJump(v *VM, imm numeric.Value) error {
	v.ProgramCounter = int(imm.AsUint64())
	return nil
}

// execJumpz pops a sint32 — this dialect's boolean representation, the
// same one C gives comparisons and logical operators — and jumps if it
// is zero. The code generator casts any other condition type to sint32
// before emitting this instruction.
func execJumpz(v *VM, imm numeric.Value) error {
	cond, err := v.popValue(numeric.Sint32)
	if err != nil {
		return err
	}
	if cond.AsUint64() == 0 {
		v.ProgramCounter = int(imm.AsUint64())
	}
	return nil
}

// execCall saves the registers a `return` will restore — ExtremePointer,
// FramePointer, the return address — at FramePointer+8, +4 and +0 of the
// new FramePointer, then jumps to imm. The callee's own locals are
// reserved below this block by its `enter` instruction.
func execCall(v *VM, imm numeric.Value) error {
	returnAddr := v.ProgramCounter
	if err := v.pushValue(numeric.FromUint64(addressType, uint64(v.ExtremePointer))); err != nil {
		return err
	}
	if err := v.pushValue(numeric.FromUint64(addressType, uint64(v.FramePointer))); err != nil {
		return err
	}
	if err := v.pushValue(numeric.FromUint64(addressType, uint64(returnAddr))); err != nil {
		return err
	}
	v.FramePointer = v.StackPointer
	v.ProgramCounter = int(imm.AsUint64())
	return nil
}

// execEnter reserves imm bytes for the current function's locals below
// the frame execCall just established.
func execEnter(v *VM, imm numeric.Value) error {
	n := int(imm.AsUint64())
	if v.StackPointer-n <= v.ExtremePointer {
		return &SegfaultSignal{Address: v.StackPointer - n, Reason: "stack/heap collision"}
	}
	v.StackPointer -= n
	return nil
}

// execReturn discards the current frame's locals, restores the saved
// registers, and resumes at the caller's return address. A non-void
// function's result is not handled here: the caller reserves a result
// slot above its arguments before `call`, at a positive FramePointer
// offset the callee reaches the same way it reaches its own parameters —
// `loada`, then `store` — so the value survives the SP=FramePointer reset
// this instruction performs.
func execReturn(v *VM, imm numeric.Value) error {
	v.StackPointer = v.FramePointer
	returnAddr, err := v.popValue(addressType)
	if err != nil {
		return err
	}
	savedFP, err := v.popValue(addressType)
	if err != nil {
		return err
	}
	savedEP, err := v.popValue(addressType)
	if err != nil {
		return err
	}
	v.ProgramCounter = int(returnAddr.AsUint64())
	v.FramePointer = int(savedFP.AsUint64())
	v.ExtremePointer = int(savedEP.AsUint64())
	return nil
}

// execCast pops a `from`-typed value and pushes its numeric.Cast result.
func execCast(from, to numeric.Type) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		val, err := v.popValue(from)
		if err != nil {
			return err
		}
		return v.pushValue(numeric.Cast(val, to))
	}
}

type binaryOp func(a, b numeric.Value) (numeric.Value, error)

// execArith pops the right then the left operand (the right-hand operand
// of a binary expression is always pushed last), applies op, and pushes
// the result.
func execArith(t numeric.Type, op binaryOp) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		b, err := v.popValue(t)
		if err != nil {
			return err
		}
		a, err := v.popValue(t)
		if err != nil {
			return err
		}
		result, err := op(a, b)
		if err != nil {
			return err
		}
		return v.pushValue(result)
	}
}

func arithAdd(a, b numeric.Value) (numeric.Value, error) {
	if a.Type.Interpretation() == numeric.Float {
		return numeric.FromFloat64(a.Type, a.AsFloat64()+b.AsFloat64()), nil
	}
	return numeric.FromUint64(a.Type, a.AsUint64()+b.AsUint64()), nil
}

func arithSub(a, b numeric.Value) (numeric.Value, error) {
	if a.Type.Interpretation() == numeric.Float {
		return numeric.FromFloat64(a.Type, a.AsFloat64()-b.AsFloat64()), nil
	}
	return numeric.FromUint64(a.Type, a.AsUint64()-b.AsUint64()), nil
}

func arithMul(a, b numeric.Value) (numeric.Value, error) {
	if a.Type.Interpretation() == numeric.Float {
		return numeric.FromFloat64(a.Type, a.AsFloat64()*b.AsFloat64()), nil
	}
	return numeric.FromUint64(a.Type, a.AsUint64()*b.AsUint64()), nil
}

func arithDiv(a, b numeric.Value) (numeric.Value, error) {
	switch a.Type.Interpretation() {
	case numeric.Float:
		return numeric.FromFloat64(a.Type, a.AsFloat64()/b.AsFloat64()), nil
	case numeric.Signed:
		if b.AsInt64() == 0 {
			return numeric.Value{}, &DivisionByZeroSignal{Mnemonic: "div"}
		}
		return numeric.FromUint64(a.Type, uint64(a.AsInt64()/b.AsInt64())), nil
	default:
		if b.AsUint64() == 0 {
			return numeric.Value{}, &DivisionByZeroSignal{Mnemonic: "div"}
		}
		return numeric.FromUint64(a.Type, a.AsUint64()/b.AsUint64()), nil
	}
}

func arithMod(a, b numeric.Value) (numeric.Value, error) {
	switch a.Type.Interpretation() {
	case numeric.Float:
		return numeric.Value{}, &DivisionByZeroSignal{Mnemonic: "mod is undefined for floating-point operands"}
	case numeric.Signed:
		if b.AsInt64() == 0 {
			return numeric.Value{}, &DivisionByZeroSignal{Mnemonic: "mod"}
		}
		return numeric.FromUint64(a.Type, uint64(a.AsInt64()%b.AsInt64())), nil
	default:
		if b.AsUint64() == 0 {
			return numeric.Value{}, &DivisionByZeroSignal{Mnemonic: "mod"}
		}
		return numeric.FromUint64(a.Type, a.AsUint64()%b.AsUint64()), nil
	}
}

// execBitwise applies a raw 64-bit bitwise op to the two operands' bit
// patterns; masking back to t's width happens inside FromUint64.
func execBitwise(t numeric.Type, op func(a, b uint64) uint64) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		b, err := v.popValue(t)
		if err != nil {
			return err
		}
		a, err := v.popValue(t)
		if err != nil {
			return err
		}
		return v.pushValue(numeric.FromUint64(t, op(a.AsUint64(), b.AsUint64())))
	}
}

// execShift pops the shift amount then the value, both T-typed, and
// pushes the result: a logical shift for unsigned T, an arithmetic
// (sign-extending) shift for signed T on the right-shift direction.
func execShift(t numeric.Type, left bool) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		amount, err := v.popValue(t)
		if err != nil {
			return err
		}
		val, err := v.popValue(t)
		if err != nil {
			return err
		}
		n := uint(amount.AsUint64())
		var result uint64
		switch {
		case left:
			result = val.AsUint64() << n
		case t.Interpretation() == numeric.Signed:
			result = uint64(val.AsInt64() >> n)
		default:
			result = val.AsUint64() >> n
		}
		return v.pushValue(numeric.FromUint64(t, result))
	}
}

type compareOp func(a, b numeric.Value) bool

// execCompare pops two T-typed operands, applies op, and pushes a sint32
// 0/1 result, matching the int type a comparison expression carries at
// the source level.
func execCompare(t numeric.Type, op compareOp) func(v *VM, imm numeric.Value) error {
	return func(v *VM, imm numeric.Value) error {
		b, err := v.popValue(t)
		if err != nil {
			return err
		}
		a, err := v.popValue(t)
		if err != nil {
			return err
		}
		result := uint64(0)
		if op(a, b) {
			result = 1
		}
		return v.pushValue(numeric.FromUint64(numeric.Sint32, result))
	}
}

func compareEq(a, b numeric.Value) bool {
	if a.Type.Interpretation() == numeric.Float {
		return a.AsFloat64() == b.AsFloat64()
	}
	return a.AsUint64() == b.AsUint64()
}

func compareGt(a, b numeric.Value) bool {
	switch a.Type.Interpretation() {
	case numeric.Float:
		return a.AsFloat64() > b.AsFloat64()
	case numeric.Signed:
		return a.AsInt64() > b.AsInt64()
	default:
		return a.AsUint64() > b.AsUint64()
	}
}

func compareGe(a, b numeric.Value) bool { return !compareLt(a, b) }

func compareLt(a, b numeric.Value) bool {
	switch a.Type.Interpretation() {
	case numeric.Float:
		return a.AsFloat64() < b.AsFloat64()
	case numeric.Signed:
		return a.AsInt64() < b.AsInt64()
	default:
		return a.AsUint64() < b.AsUint64()
	}
}

func compareLe(a, b numeric.Value) bool { return !compareGt(a, b) }

// execNot pops a sint32 and pushes its logical negation, also sint32. The
// code generator casts its operand to sint32 first, same as it does for
// `jumpz`.
func execNot(v *VM, imm numeric.Value) error {
	val, err := v.popValue(numeric.Sint32)
	if err != nil {
		return err
	}
	result := uint64(0)
	if val.AsUint64() == 0 {
		result = 1
	}
	return v.pushValue(numeric.FromUint64(numeric.Sint32, result))
}
