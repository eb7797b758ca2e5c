package hostlib

import (
	"strings"
	"unicode/utf8"

	"github.com/zurustar/sketch/pkg/vm"
)

// Positions and lengths count characters, not bytes.
func registerStrings(r *vm.Registry) {
	convert := map[string]func(string) string{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}
	for name, fn := range convert {
		r.RegisterFunc("strings", name, func(args []vm.Value) (vm.Value, error) {
			if err := vm.CheckArgs("strings", name, args, vm.KindString); err != nil {
				return nil, err
			}
			return vm.String(fn(string(args[0].(vm.String)))), nil
		})
	}

	r.RegisterFunc("strings", "length", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("strings", "length", args, vm.KindString); err != nil {
			return nil, err
		}
		return vm.Number(utf8.RuneCountInString(string(args[0].(vm.String)))), nil
	})

	// substr clamps start and n to the string; out of range gives "".
	r.RegisterFunc("strings", "substr", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("strings", "substr", args, vm.KindString, vm.KindNumber, vm.KindNumber); err != nil {
			return nil, err
		}
		runes := []rune(string(args[0].(vm.String)))
		start := max(int64(args[1].(vm.Number)), 0)
		n := max(int64(args[2].(vm.Number)), 0)
		if start >= int64(len(runes)) {
			return vm.String(""), nil
		}
		end := min(start+n, int64(len(runes)))
		return vm.String(string(runes[start:end])), nil
	})

	// find returns the character index of the first match, or -1.
	r.RegisterFunc("strings", "find", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("strings", "find", args, vm.KindString, vm.KindString); err != nil {
			return nil, err
		}
		s := string(args[0].(vm.String))
		i := strings.Index(s, string(args[1].(vm.String)))
		if i < 0 {
			return vm.Number(-1), nil
		}
		return vm.Number(utf8.RuneCountInString(s[:i])), nil
	})

	// charCode returns the code point at i, or 0 when i is out of range.
	r.RegisterFunc("strings", "charCode", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("strings", "charCode", args, vm.KindString, vm.KindNumber); err != nil {
			return nil, err
		}
		runes := []rune(string(args[0].(vm.String)))
		i := int64(args[1].(vm.Number))
		if i < 0 || i >= int64(len(runes)) {
			return vm.Number(0), nil
		}
		return vm.Number(runes[i]), nil
	})

	r.RegisterFunc("strings", "fromCode", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("strings", "fromCode", args, vm.KindNumber); err != nil {
			return nil, err
		}
		code := int64(args[0].(vm.Number))
		if code < 0 || code > utf8.MaxRune || !utf8.ValidRune(rune(code)) {
			return nil, vm.NewForeignCallError("strings", "fromCode", "invalid code point %d", code)
		}
		return vm.String(string(rune(code))), nil
	})
}
