package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/parser"
	"github.com/pschiffmann/minic/pkg/vm"
)

// compileAndRun parses src, generates its bytecode image, and runs it to
// completion on a fresh VM sized generously enough that none of these
// tests exercise the stack/heap collision path. The VM's ExtremePointer
// is set to the image's GlobalsSize, as any caller of Generate has to do
// before any Run call.
func compileAndRun(t *testing.T, src string) (uint32, *vm.VM) {
	t.Helper()
	res, err := parser.New(src).Parse()
	require.NoError(t, err)

	prog, err := Generate(res.Arena, res.Global)
	require.NoError(t, err)

	m, err := vm.New(len(prog.Code), 4096)
	require.NoError(t, err)
	require.NoError(t, m.LoadProgram(prog.Code))
	m.ExtremePointer = prog.GlobalsSize

	status, err := m.Run()
	require.NoError(t, err, "disassembly:\n%s", prog.Disassembly)
	return status, m
}

func TestArithmeticAndReturn(t *testing.T) {
	status, _ := compileAndRun(t, `
		int main() {
			int a = 10;
			int b = 20;
			return a + b * 2;
		}
	`)
	require.EqualValues(t, 50, status)
}

func TestIfElse(t *testing.T) {
	src := `
		int classify(int n) {
			if (n < 0) {
				return -1;
			} else if (n == 0) {
				return 0;
			} else {
				return 1;
			}
		}
		int main() {
			return classify(-5) + classify(0) * 10 + classify(5) * 100;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, uint32(int32(-1+0+100)), status)
}

// TestSwitchDispatchesToMatchingCase exercises a stacked case label (0 and
// 6 share one statement) and the default fallback. This dialect has no
// `break` keyword, so every case here returns directly rather than relying
// on fallthrough being stopped.
func TestSwitchDispatchesToMatchingCase(t *testing.T) {
	src := `
		int dayKind(int day) {
			switch (day) {
			case 0:
			case 6:
				return 0;
			default:
				return 1;
			}
		}
		int main() {
			return dayKind(0) + dayKind(3) * 10 + dayKind(6) * 100;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 0+10+0, status)
}

// TestSwitchFallsThroughWithoutBreak confirms that a matched case's
// statements run into the next case's statements when nothing returns or
// gotos out first — there is no implicit break between cases.
func TestSwitchFallsThroughWithoutBreak(t *testing.T) {
	src := `
		int total;
		int mark(int n) {
			switch (n) {
			case 1:
				total = total + 1;
			case 2:
				total = total + 10;
			default:
				total = total + 100;
			}
			return total;
		}
		int main() {
			return mark(1);
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 1+10+100, status)
}

func TestGotoLoop(t *testing.T) {
	src := `
		int sumTo(int n) {
			int total = 0;
			int i = 1;
		loop:
			if (i > n) {
				goto done;
			}
			total = total + i;
			i = i + 1;
			goto loop;
		done:
			return total;
		}
		int main() {
			return sumTo(10);
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 55, status)
}

func TestRecursion(t *testing.T) {
	src := `
		int fact(int n) {
			if (n <= 1) {
				return 1;
			}
			return n * fact(n - 1);
		}
		int main() {
			return fact(6);
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 720, status)
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	src := `
		int calls;
		int sideEffect() {
			calls = calls + 1;
			return 1;
		}
		int main() {
			int r = 0 && sideEffect();
			return calls;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 0, status, "&& must not evaluate its right operand once the left is false")
}

func TestShortCircuitOrEvaluatesRightOperandWhenNeeded(t *testing.T) {
	src := `
		int calls;
		int sideEffect() {
			calls = calls + 1;
			return 1;
		}
		int main() {
			int r = 0 || sideEffect();
			return calls;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 1, status, "|| must evaluate its right operand once the left is false")
}

func TestPrefixAndPostfixIncrement(t *testing.T) {
	src := `
		int main() {
			int a = 5;
			int b = a++;
			int c = ++a;
			return a * 100 + b * 10 + c;
		}
	`
	status, _ := compileAndRun(t, src)
	// a starts at 5; a++ yields b=5, a becomes 6; ++a yields c=7, a becomes 7.
	require.EqualValues(t, 7*100+5*10+7, status)
}

// This dialect has no array declaration syntax (§4.2.3 recognizes only
// `type*` suffixes, never `[N]`) and no source-reachable heap allocator,
// so a pointer can only ever point at a single addressable variable. The
// subscript operator still applies to it: p[0] is *(p+0).
func TestPointerAddressOfAndSubscript(t *testing.T) {
	src := `
		int main() {
			int a = 41;
			int *p = &a;
			p[0] = p[0] + 1;
			return *p;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 42, status)
}

func TestGlobalInitializersRunBeforeMain(t *testing.T) {
	src := `
		int base = 7;
		int offset = base * 3;
		int main() {
			return offset;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 21, status)
}

func TestCompoundAssignmentOperators(t *testing.T) {
	src := `
		int main() {
			int a = 10;
			a += 5;
			a -= 2;
			a *= 3;
			a /= 2;
			return a;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, ((10+5-2)*3)/2, status)
}

func TestTernaryExpression(t *testing.T) {
	src := `
		int main() {
			int a = 3;
			return a > 0 ? 100 : 200;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 100, status)
}

func TestFunctionCallArgumentOrderAndVoidReturn(t *testing.T) {
	src := `
		int total;
		void add(int x) {
			total = total + x;
		}
		int main() {
			add(3);
			add(4);
			return total;
		}
	`
	status, _ := compileAndRun(t, src)
	require.EqualValues(t, 7, status)
}

func TestDisassemblyIsNonEmptyAndStable(t *testing.T) {
	res, err := parser.New(`int main() { return 1; }`).Parse()
	require.NoError(t, err)
	prog, err := Generate(res.Arena, res.Global)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Disassembly)
	require.Equal(t, prog.Disassembly, vm.Disassemble(prog.Code))
}

func TestNumberTypeOfAndWidthOfAgreeWithNumericSizes(t *testing.T) {
	res, err := parser.New(`int main() { return 0; }`).Parse()
	require.NoError(t, err)

	intH, err := res.Global.Lookup("int")
	require.NoError(t, err)
	require.Equal(t, numeric.Sint32, numberTypeOf(res.Arena, intH))
	require.Equal(t, numeric.Sint32.SizeInBytes(), widthOf(res.Arena, intH))
}
