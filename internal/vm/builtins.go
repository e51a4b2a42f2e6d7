package vm

import (
	"fmt"
	"time"

	"vesper/internal/bytecode"
)

// execCallBuiltin dispatches the fixed builtin-function set (spec §5, §6):
// these are never subject to method-table dispatch or user override — they
// are VM-level primitives invoked directly by name.
func (v *VM) execCallBuiltin(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	args, err := v.popN(instr.A)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	result, vmErr := v.callBuiltin(instr.Name, args)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	v.push(result)
	return Value{}, nil
}

func (v *VM) callBuiltin(name string, args []Value) (Value, *VmError) {
	switch name {
	case "sleep":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "sleep takes 1 argument")
		}
		secs, ok := numericToFloat64(args[0])
		if !ok {
			return Value{}, newError(ErrTypeError, "sleep expects a number, got %s", args[0].TypeName())
		}
		time.Sleep(time.Duration(secs * float64(time.Second)))
		return Nothing(), nil

	case "TimeNs":
		return Int64(time.Now().UnixNano()), nil

	case "print":
		for _, a := range args {
			fmt.Print(builtinDisplay(a))
		}
		return Nothing(), nil
	case "println":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = builtinDisplay(a)
		}
		for _, p := range parts {
			fmt.Print(p)
		}
		fmt.Println()
		return Nothing(), nil

	case "length":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "length takes 1 argument")
		}
		n, ok := iterLen(args[0])
		if !ok {
			return Value{}, newError(ErrMethodError, "no method matching length for %s", args[0].TypeName())
		}
		return Int64(int64(n)), nil

	case "push!":
		if len(args) < 1 || args[0].Kind != KArray {
			return Value{}, newError(ErrTypeError, "push! expects an Array as its first argument")
		}
		for _, a := range args[1:] {
			args[0].Array.Push(a)
		}
		return args[0], nil

	case "typeof":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "typeof takes 1 argument")
		}
		return DataType(args[0].TypeName()), nil

	case "string":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = builtinDisplay(a)
		}
		s := ""
		for _, p := range parts {
			s += p
		}
		return Str(s), nil

	case "error":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "error takes 1 argument")
		}
		return Value{}, &VmError{Kind: ErrUserRaised, Message: builtinDisplay(args[0]), Value: args[0]}

	case "throw":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "throw takes 1 argument")
		}
		return Value{}, raisedFrom(args[0])

	case "!":
		if len(args) != 1 {
			return Value{}, newError(ErrMethodError, "! takes 1 argument")
		}
		if args[0].Kind != KBool {
			return Value{}, newError(ErrTypeError, "no method matching ! for %s", args[0].TypeName())
		}
		return Bool(!args[0].Truthy()), nil
	}
	return Value{}, newError(ErrMethodError, "unknown builtin %q", name)
}

// builtinDisplay renders a Value the way print/println/string do: strings
// unquoted, everything else via Value.String().
func builtinDisplay(v Value) string {
	if v.Kind == KString {
		return v.Str
	}
	if v.Kind == KChar {
		return string(rune(v.I))
	}
	return v.String()
}
