// Package hostlib provides the host functions scripts can import with
// `with module.function`.
//
// Modules:
//   - sketch: random(start, end), systemTime()
//   - math: sqrt(x), floor(x), pow(x, y), abs(x), makeLong(lo, hi),
//     hiWord(x), lowWord(x)
//   - strings: upper(s), lower(s), length(s), substr(s, start, n),
//     find(s, sub), charCode(s, i), fromCode(code)
//   - files: read(path), lines(path), exists(path); only registered when
//     the library has a file system
package hostlib

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/zurustar/sketch/pkg/fileutil"
	"github.com/zurustar/sketch/pkg/vm"
)

// Library holds the dependencies of the host functions.
type Library struct {
	rng      *rand.Rand
	now      func() time.Time
	fs       fileutil.FileSystem
	encoding string
}

// Option configures a Library.
type Option func(*Library)

// WithRand sets the random source used by sketch.random.
func WithRand(rng *rand.Rand) Option {
	return func(l *Library) {
		l.rng = rng
	}
}

// WithClock sets the clock used by sketch.systemTime.
func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		l.now = now
	}
}

// WithFileSystem enables the files module. Paths are resolved in fsys and
// file contents are decoded from encoding (UTF-8 when empty).
func WithFileSystem(fsys fileutil.FileSystem, encoding string) Option {
	return func(l *Library) {
		l.fs = fsys
		l.encoding = encoding
	}
}

// New creates a Library using the global random source and the wall clock
// unless overridden.
func New(opts ...Option) *Library {
	l := &Library{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Default returns a registry holding every host function but the files
// module.
func Default() *vm.Registry {
	return New().Registry()
}

// Registry returns a new registry holding every function of the library.
func (l *Library) Registry() *vm.Registry {
	r := vm.NewRegistry()
	l.registerSketch(r)
	registerMath(r)
	registerStrings(r)
	if l.fs != nil {
		l.registerFiles(r)
	}
	return r
}

func (l *Library) registerSketch(r *vm.Registry) {
	// random(start, end) returns an integer in [start, end].
	r.RegisterFunc("sketch", "random", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("sketch", "random", args, vm.KindNumber, vm.KindNumber); err != nil {
			return nil, err
		}
		lo, hi := float64(args[0].(vm.Number)), float64(args[1].(vm.Number))
		if !inRandomRange(lo) || !inRandomRange(hi) {
			return nil, vm.NewForeignCallError("sketch", "random", "bounds must be within ±%d, got %v and %v", maxRandomBound, lo, hi)
		}
		start, end := int64(lo), int64(hi)
		if end < start {
			return nil, vm.NewForeignCallError("sketch", "random", "end %d is before start %d", end, start)
		}
		return vm.Number(start + l.int64N(end-start+1)), nil
	})

	// systemTime() returns milliseconds since the Unix epoch.
	r.RegisterFunc("sketch", "systemTime", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("sketch", "systemTime", args); err != nil {
			return nil, err
		}
		return vm.Number(l.now().UnixMilli()), nil
	})
}

// maxRandomBound keeps end-start+1 inside int64.
const maxRandomBound = 1 << 53

func inRandomRange(f float64) bool {
	return !math.IsNaN(f) && f >= -maxRandomBound && f <= maxRandomBound
}

func (l *Library) int64N(n int64) int64 {
	if l.rng != nil {
		return l.rng.Int64N(n)
	}
	return rand.Int64N(n)
}
