package hostlib

import (
	"math"

	"github.com/zurustar/sketch/pkg/vm"
)

func registerMath(r *vm.Registry) {
	unary := map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"floor": math.Floor,
		"abs":   math.Abs,
	}
	for name, fn := range unary {
		r.RegisterFunc("math", name, func(args []vm.Value) (vm.Value, error) {
			if err := vm.CheckArgs("math", name, args, vm.KindNumber); err != nil {
				return nil, err
			}
			return vm.Number(fn(float64(args[0].(vm.Number)))), nil
		})
	}

	r.RegisterFunc("math", "pow", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("math", "pow", args, vm.KindNumber, vm.KindNumber); err != nil {
			return nil, err
		}
		return vm.Number(math.Pow(float64(args[0].(vm.Number)), float64(args[1].(vm.Number)))), nil
	})

	// makeLong(lo, hi) = (hi << 16) | lo, both truncated to 16 bits
	r.RegisterFunc("math", "makeLong", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("math", "makeLong", args, vm.KindNumber, vm.KindNumber); err != nil {
			return nil, err
		}
		lo := int64(args[0].(vm.Number))
		hi := int64(args[1].(vm.Number))
		return vm.Number((hi&0xFFFF)<<16 | lo&0xFFFF), nil
	})

	words := map[string]func(int64) int64{
		"hiWord":  func(x int64) int64 { return (x >> 16) & 0xFFFF },
		"lowWord": func(x int64) int64 { return x & 0xFFFF },
	}
	for name, fn := range words {
		r.RegisterFunc("math", name, func(args []vm.Value) (vm.Value, error) {
			if err := vm.CheckArgs("math", name, args, vm.KindNumber); err != nil {
				return nil, err
			}
			return vm.Number(fn(int64(args[0].(vm.Number)))), nil
		})
	}
}
