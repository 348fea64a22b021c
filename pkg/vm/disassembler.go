package vm

import (
	"fmt"
	"strings"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// Disassemble decodes an encoded program image back into one mnemonic per
// line, each prefixed with its byte offset, in the same opcode-table
// idiom a one-way assembler would use for diagnostics rather than
// reassembly.
func Disassemble(program []byte) string {
	var b strings.Builder
	pc := 0
	for pc < len(program) {
		offset := pc
		opcode := program[pc]
		pc++

		instr, ok := LookupOpcode(opcode)
		if !ok {
			fmt.Fprintf(&b, "%5d  ??%d\n", offset, opcode)
			continue
		}

		if !instr.HasImmediate {
			fmt.Fprintf(&b, "%5d  %s\n", offset, instr.Mnemonic)
			continue
		}

		n := instr.ImmediateSize()
		if pc+n > len(program) {
			fmt.Fprintf(&b, "%5d  %s <truncated immediate>\n", offset, instr.Mnemonic)
			break
		}
		mem := &Memory{buf: program}
		imm, err := mem.Read(pc, instr.ImmediateType)
		pc += n
		if err != nil {
			fmt.Fprintf(&b, "%5d  %s <unreadable immediate>\n", offset, instr.Mnemonic)
			continue
		}
		fmt.Fprintf(&b, "%5d  %s %s\n", offset, instr.Mnemonic, formatImmediate(imm))
	}
	return b.String()
}

func formatImmediate(v numeric.Value) string {
	if v.Type.Interpretation() == numeric.Float {
		return fmt.Sprintf("%g", v.AsFloat64())
	}
	if v.Type.Interpretation() == numeric.Signed {
		return fmt.Sprintf("%d", v.AsInt64())
	}
	return fmt.Sprintf("%d", v.AsUint64())
}
