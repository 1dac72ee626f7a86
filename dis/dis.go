// Package dis supports analysis of generated bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and uses the
// InstructionIter type from the `bytecode` package.
package dis

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/deepnoodle-ai/bcgen/bytecode"
	"github.com/deepnoodle-ai/bcgen/internal/table"
	"github.com/deepnoodle-ai/bcgen/literal"
	"github.com/deepnoodle-ai/bcgen/op"
	"github.com/fatih/color"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	italic  = color.New(color.Italic).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     uint32
	Name       string
	Opcode     op.Code
	Operands   []int64
	Annotation string
	Constant   interface{}
}

// closureRef is the Constant of a CreateClosure instruction.
type closureRef struct {
	id   uint32
	name string
}

// Disassemble returns a parsed representation of function id of mod.
// String, regexp, closure and literal buffer operands are resolved against
// the module's tables.
func Disassemble(mod *bytecode.Module, id int) ([]Instruction, error) {
	if id < 0 || id >= mod.FunctionCount() {
		return nil, fmt.Errorf("function index out of range: %d", id)
	}
	return disassemble(mod.FunctionAt(id), mod)
}

// DisassembleFunction returns a parsed representation of fn without
// resolving module table references.
func DisassembleFunction(fn *bytecode.Function) ([]Instruction, error) {
	return disassemble(fn, nil)
}

func disassemble(fn *bytecode.Function, mod *bytecode.Module) ([]Instruction, error) {
	var instructions []Instruction
	iter := bytecode.NewInstructionIter(fn)
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		instr := Instruction{
			Offset:   val.Offset,
			Name:     op.GetInfo(val.Code).Name,
			Opcode:   val.Code,
			Operands: val.Operands,
		}
		if err := annotate(&instr, fn, mod); err != nil {
			return nil, err
		}
		instructions = append(instructions, instr)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return instructions, nil
}

func annotate(instr *Instruction, fn *bytecode.Function, mod *bytecode.Module) error {
	ops := instr.Operands
	switch {
	case op.IsJump(instr.Opcode):
		instr.Annotation = fmt.Sprintf("-> %d", int64(instr.Offset)+ops[0])
		return nil
	case instr.Opcode == op.SwitchImm:
		return annotateSwitch(instr, fn)
	}
	switch instr.Opcode {
	case op.LoadConstUInt8, op.LoadConstInt:
		instr.Constant = ops[1]
	case op.LoadConstDouble:
		instr.Constant = math.Float64frombits(uint64(ops[1]))
	}
	if mod == nil {
		return nil
	}
	var err error
	switch instr.Opcode {
	case op.LoadConstString, op.LoadConstStringLongIndex:
		instr.Constant, err = getString(mod, ops[1])
	case op.GetByID, op.PutByID:
		instr.Annotation, err = getString(mod, ops[3])
	case op.CreateClosure:
		if ops[2] >= int64(mod.FunctionCount()) {
			return fmt.Errorf("function index out of range: %d", ops[2])
		}
		var name string
		name, err = getString(mod, int64(mod.FunctionAt(int(ops[2])).NameID()))
		instr.Constant = closureRef{id: uint32(ops[2]), name: name}
	case op.CreateRegExp:
		instr.Annotation, err = getRegExp(mod, ops[1], ops[2])
	case op.NewArrayWithBuffer:
		instr.Constant, err = getLiterals(mod, mod.ArrayBuffer(), ops[3], ops[2])
	case op.NewObjectWithBuffer:
		var keys, vals []literal.Value
		if keys, err = getLiterals(mod, mod.ObjectKeyBuffer(), ops[3], ops[2]); err != nil {
			return err
		}
		if vals, err = getLiterals(mod, mod.ObjectValueBuffer(), ops[4], ops[2]); err != nil {
			return err
		}
		instr.Annotation = formatObject(keys, vals)
	}
	return err
}

// annotateSwitch lists the absolute targets of a SwitchImm, reading the case
// offsets from the function's jump table.
func annotateSwitch(instr *Instruction, fn *bytecode.Function) error {
	ops := instr.Operands
	tableRef, def, lo, hi := ops[1], ops[2], ops[3], ops[4]
	start := int64(bytecode.JumpTableStart(fn.BytecodeSize()))
	first := (int64(instr.Offset) + tableRef - start) / 4
	count := hi - lo + 1
	if first < 0 || count < 0 || first+count > int64(fn.JumpTableCount()) {
		return fmt.Errorf("switch at offset %d: jump table entries [%d, %d) out of range",
			instr.Offset, first, first+count)
	}
	targets := make([]string, count)
	for i := range targets {
		rel := int32(fn.JumpTableAt(int(first) + i))
		targets[i] = fmt.Sprintf("%d", int64(instr.Offset)+int64(rel))
	}
	instr.Annotation = fmt.Sprintf("[%d, %d] -> %s; default -> %d",
		lo, hi, strings.Join(targets, ", "), int64(instr.Offset)+def)
	return nil
}

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		var values []string
		values = append(values, fmt.Sprintf("%d", instr.Offset))
		values = append(values, bold(instr.Name))
		values = append(values, formatOperands(instr.Opcode, instr.Operands))
		if instr.Constant != nil {
			switch c := instr.Constant.(type) {
			case int64:
				values = append(values, yellow(fmt.Sprintf("%d", c)))
			case float64:
				values = append(values, yellow(fmt.Sprintf("%g", c)))
			case string:
				if len(c) > 80 {
					c = c[:77] + "..."
				}
				values = append(values, green(fmt.Sprintf("%q", c)))
			case closureRef:
				name := c.name
				if name == "" {
					name = italic("<anonymous>")
				}
				values = append(values, magenta(fmt.Sprintf("func:%s", name)))
			case []literal.Value:
				values = append(values, bold(formatArray(c)))
			default:
				values = append(values, bold(fmt.Sprintf("%v", c)))
			}
		} else if instr.Annotation != "" {
			values = append(values, cyan(instr.Annotation))
		} else {
			values = append(values, "")
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintModule writes a summary of mod followed by the disassembly of each
// of its functions.
func PrintModule(mod *bytecode.Module, writer io.Writer) error {
	stats := mod.Stats()
	fmt.Fprintf(writer, "module %s\n", mod.ID())
	fmt.Fprintf(writer, "functions: %d, strings: %d (%d bytes), regexps: %d, literal bytes: %d\n",
		stats.FunctionCount, stats.StringCount, stats.StringBytes, stats.RegExpCount, stats.LiteralBytes)
	for i := 0; i < mod.FunctionCount(); i++ {
		fn := mod.FunctionAt(i)
		name, err := getString(mod, int64(fn.NameID()))
		if err != nil {
			return err
		}
		marker := ""
		if i == mod.EntryPoint() {
			marker = " (entry point)"
		}
		fmt.Fprintf(writer, "\n%s%s: %s\n", bold(fmt.Sprintf("function %d %q", i, name)), marker, fn)
		instructions, err := Disassemble(mod, i)
		if err != nil {
			return err
		}
		Print(instructions, writer)
		for j := 0; j < fn.ExceptionHandlerCount(); j++ {
			fmt.Fprintf(writer, "handler %s\n", fn.ExceptionHandlerAt(j))
		}
	}
	return nil
}

func formatOperands(code op.Code, ops []int64) string {
	info := op.GetInfo(code)
	var sb strings.Builder
	for i, v := range ops {
		if i > 0 {
			sb.WriteString(", ")
		}
		if info.Operands[i] == op.Double {
			sb.WriteString(fmt.Sprintf("%g", math.Float64frombits(uint64(v))))
		} else {
			sb.WriteString(fmt.Sprintf("%d", v))
		}
	}
	return sb.String()
}

func formatArray(vals []literal.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatObject(keys, vals []literal.Value) string {
	parts := make([]string, len(keys))
	for i := range keys {
		parts[i] = fmt.Sprintf("%s: %s", keys[i], vals[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func getString(mod *bytecode.Module, index int64) (string, error) {
	if index < 0 || index >= int64(mod.Strings().Len()) {
		return "", fmt.Errorf("string index out of range: %d", index)
	}
	return mod.Strings().At(int(index)), nil
}

func getRegExp(mod *bytecode.Module, patternID, flagsID int64) (string, error) {
	pattern, err := getString(mod, patternID)
	if err != nil {
		return "", err
	}
	flags, err := getString(mod, flagsID)
	if err != nil {
		return "", err
	}
	return bytecode.RegExp{Pattern: pattern, Flags: flags}.String(), nil
}

func getLiterals(mod *bytecode.Module, buf []byte, offset, count int64) ([]literal.Value, error) {
	var lookupErr error
	lookup := func(id uint32) string {
		s, err := getString(mod, int64(id))
		if err != nil && lookupErr == nil {
			lookupErr = err
		}
		return s
	}
	vals, err := literal.Decode(buf, uint32(offset), int(count), lookup)
	if err != nil {
		return nil, err
	}
	return vals, lookupErr
}
