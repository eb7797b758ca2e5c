// Package repl runs an interactive session on one persistent evaluator.
package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/zurustar/sketch/pkg/logger"
	"github.com/zurustar/sketch/pkg/vm"
)

const (
	historyFile = ".sketch_history"
	promptMain  = "sketch> "
	promptCont  = "   ...> "
	banner      = "Sketch REPL. Type :quit to exit."
)

// LineReader は1行ずつ入力を読む（liner.State が満たす）
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// REPL は対話セッションの状態を保持する
type REPL struct {
	eval   *vm.Evaluator
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
}

// New はREPLを作成する。スクリプトの出力は evaluator のシンクに書かれる
func New(eval *vm.Evaluator, out, errOut io.Writer) *REPL {
	return &REPL{
		eval:   eval,
		out:    out,
		errOut: errOut,
		log:    logger.GetLogger(),
	}
}

// Run は端末で対話セッションを実行する。履歴は ~/.sketch_history に保存する
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(r.complete)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		} else {
			r.log.Debug("history not saved", "path", histPath, "error", err)
		}
	}()

	return r.Loop(ln, func(entry string) { ln.AppendHistory(entry) })
}

// Loop は入力がなくなるか :quit が入力されるまで読み取りと実行を繰り返す
func (r *REPL) Loop(in LineReader, remember func(string)) error {
	for {
		code, err := readEntry(in)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if r.command(trimmed) {
				return nil
			}
			continue
		}

		if remember != nil {
			remember(strings.ReplaceAll(code, "\n", " "))
		}
		if err := r.eval.Execute(code); err != nil {
			fmt.Fprintln(r.errOut, err)
		}
	}
}

// command はREPLコマンドを処理し、終了すべきなら true を返す
func (r *REPL) command(cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":quit", ":q", ":exit":
		return true
	case ":names":
		fmt.Fprintln(r.out, strings.Join(r.names(), " "))
	default:
		fmt.Fprintln(r.out, "unknown command. Type :quit to exit.")
	}
	return false
}

// readEntry は括弧が閉じるまで行を読み続ける
func readEntry(in LineReader) (string, error) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := in.Prompt(prompt)
		if err != nil {
			if b.Len() > 0 && errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return "", err
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if Depth(b.String()) <= 0 {
			return b.String(), nil
		}
	}
}

// Depth returns how many brackets are still open in src. String literals are
// skipped, escapes included. A negative result means a stray closer, which
// the parser reports.
func Depth(src string) int {
	depth := 0
	inString := false
	escaped := false
	for _, r := range src {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	if inString && depth == 0 {
		return 1
	}
	return depth
}

func (r *REPL) names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, list := range [][]string{r.eval.NativeNames(), r.eval.Memory().FunNames(), r.eval.Memory().Names()} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// complete は入力中の識別子を補完する
func (r *REPL) complete(line string) []string {
	start := len(line)
	for start > 0 && isIdent(line[start-1]) {
		start--
	}
	prefix := line[start:]
	if prefix == "" {
		return nil
	}
	var out []string
	for _, name := range r.names() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, line[:start]+name)
		}
	}
	return out
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
