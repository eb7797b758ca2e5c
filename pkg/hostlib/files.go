package hostlib

import (
	"bufio"
	"errors"
	"io/fs"
	"strings"

	"github.com/zurustar/sketch/pkg/script"
	"github.com/zurustar/sketch/pkg/vm"
)

// registerFiles exposes read-only access to the library's file system.
// Names are matched without regard to case and decoded like scripts.
func (l *Library) registerFiles(r *vm.Registry) {
	r.RegisterFunc("files", "read", func(args []vm.Value) (vm.Value, error) {
		text, err := l.readText("read", args)
		if err != nil {
			return nil, err
		}
		return vm.String(text), nil
	})

	// lines splits on LF, CRLF and CR. The line breaks are dropped.
	r.RegisterFunc("files", "lines", func(args []vm.Value) (vm.Value, error) {
		text, err := l.readText("lines", args)
		if err != nil {
			return nil, err
		}
		var values []vm.Value
		scanner := bufio.NewScanner(strings.NewReader(strings.ReplaceAll(text, "\r\n", "\n")))
		scanner.Split(scanLines)
		for scanner.Scan() {
			values = append(values, vm.String(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return nil, vm.NewForeignCallError("files", "lines", "%v", err)
		}
		return vm.NewArrayFromSlice(values), nil
	})

	r.RegisterFunc("files", "exists", func(args []vm.Value) (vm.Value, error) {
		if err := vm.CheckArgs("files", "exists", args, vm.KindString); err != nil {
			return nil, err
		}
		_, err := l.fs.Resolve(string(args[0].(vm.String)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, vm.NewForeignCallError("files", "exists", "%v", err)
		}
		return vm.Boolean(err == nil), nil
	})
}

func (l *Library) readText(function string, args []vm.Value) (string, error) {
	if err := vm.CheckArgs("files", function, args, vm.KindString); err != nil {
		return "", err
	}
	s, err := script.NewLoader(l.fs, l.encoding).Load(string(args[0].(vm.String)))
	if err != nil {
		return "", vm.NewForeignCallError("files", function, "%v", err)
	}
	return s.Content, nil
}

// scanLines is bufio.ScanLines treating a lone CR as a line break too.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
