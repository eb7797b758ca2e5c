package app

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"golang.org/x/text/encoding/japanese"

	"github.com/zurustar/sketch/pkg/cli"
	"github.com/zurustar/sketch/pkg/compiler"
	"github.com/zurustar/sketch/pkg/fileutil"
	"github.com/zurustar/sketch/pkg/vm"
)

func shiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	data, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func newTestApp(t *testing.T, files fstest.MapFS, opts ...Option) (*Application, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts = append([]Option{
		WithFileSystem(fileutil.NewIOFS(files, "")),
		WithOutput(&stdout, &stderr),
	}, opts...)
	app := New(opts...)
	app.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	return app, &stdout, &stderr
}

func config(script string) *cli.Config {
	return &cli.Config{
		ScriptPath: script,
		LogLevel:   "info",
		Encoding:   "utf-8",
		MaxDepth:   vm.MaxStackDepth,
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"print", `print("hello");`, "hello\n"},
		{"function", "fun add(a, b) { return a + b; }\nprint(add(2, 3));", "5\n"},
		{"host import", "with math.sqrt as root;\nprint(root(16));", "4\n"},
		{"loop", "for i (0 -> 2) { print(i); }", "0\n1\n2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stdout, _ := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte(tt.source)}})
			if err := app.Execute(config("main.sk")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stdout.String() != tt.want {
				t.Errorf("output = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestExecute_CaseInsensitiveAndEncoding(t *testing.T) {
	files := fstest.MapFS{"MAIN.SK": {Data: shiftJIS(t, `print("こんにちは");`)}}
	app, stdout, _ := newTestApp(t, files)

	cfg := config("main.sk")
	cfg.Encoding = "shift_jis"
	if err := app.Execute(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "こんにちは\n" {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestExecute_OutputFile(t *testing.T) {
	app, stdout, _ := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte("print(1);\nprint(undefinedName);")}})

	cfg := config("main.sk")
	cfg.OutputPath = filepath.Join(t.TempDir(), "out.txt")
	err := app.Execute(cfg)

	var re *vm.RuntimeError
	if !errors.As(err, &re) || re.Type != vm.ErrorUndefinedVar {
		t.Fatalf("error = %v, want UNDEFINED_VARIABLE", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", stdout.String())
	}
	data, readErr := os.ReadFile(cfg.OutputPath)
	if readErr != nil {
		t.Fatalf("read output: %v", readErr)
	}
	if string(data) != "1\n" {
		t.Errorf("output file = %q, want output written before the error", data)
	}
}

func TestExecute_Dump(t *testing.T) {
	app, stdout, _ := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte("print(1);")}})

	cfg := config("main.sk")
	cfg.DumpTokens = true
	cfg.DumpAST = true
	if err := app.Execute(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "1:1 ") {
		t.Errorf("token dump should start with a position: %q", out)
	}
	if !strings.Contains(out, "(call print 1)") {
		t.Errorf("AST dump missing: %q", out)
	}
}

func TestExecute_Errors(t *testing.T) {
	t.Run("ファイルが存在しない", func(t *testing.T) {
		app, _, _ := newTestApp(t, fstest.MapFS{})
		if err := app.Execute(config("missing.sk")); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("コンパイルエラー", func(t *testing.T) {
		app, _, _ := newTestApp(t, fstest.MapFS{"bad.sk": {Data: []byte("val = ;")}})
		err := app.Execute(config("bad.sk"))
		var ce *compiler.CompileError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want CompileError", err)
		}

		var buf bytes.Buffer
		Report(&buf, err)
		if !strings.HasPrefix(buf.String(), "Error: parser error at line 1") {
			t.Errorf("report = %q", buf.String())
		}
		if !strings.Contains(buf.String(), "^") {
			t.Errorf("report should show the source context: %q", buf.String())
		}
	})

	t.Run("深すぎる再帰", func(t *testing.T) {
		app, _, _ := newTestApp(t, fstest.MapFS{"r.sk": {Data: []byte("fun f() { return f(); }\nf();")}})
		cfg := config("r.sk")
		cfg.MaxDepth = 16
		err := app.Execute(cfg)
		var re *vm.RuntimeError
		if !errors.As(err, &re) || re.Type != vm.ErrorStackOverflow {
			t.Fatalf("error = %v, want STACK_OVERFLOW", err)
		}
	})
}

func TestExecute_Imports(t *testing.T) {
	source := "with math.pow as pow;\nprint(pow(2, 3));"

	t.Run("許可されたインポート", func(t *testing.T) {
		app, stdout, _ := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte(source)}})
		cfg := config("main.sk")
		cfg.Imports = []string{"math.pow"}
		if err := app.Execute(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != "8\n" {
			t.Errorf("output = %q", stdout.String())
		}
	})

	t.Run("許可されていないインポート", func(t *testing.T) {
		app, _, _ := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte(source)}})
		cfg := config("main.sk")
		cfg.Imports = []string{"math.sqrt"}
		err := app.Execute(cfg)
		var re *vm.RuntimeError
		if !errors.As(err, &re) || re.Type != vm.ErrorImportNotFound {
			t.Fatalf("error = %v, want IMPORT_NOT_FOUND", err)
		}
	})

	t.Run("独自のレジストリ", func(t *testing.T) {
		r := vm.NewRegistry()
		r.RegisterFunc("host", "answer", func([]vm.Value) (vm.Value, error) {
			return vm.Number(42), nil
		})
		app, stdout, _ := newTestApp(t,
			fstest.MapFS{"main.sk": {Data: []byte("with host.answer as answer;\nprint(answer());")}},
			WithRegistry(r))
		if err := app.Execute(config("main.sk")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != "42\n" {
			t.Errorf("output = %q", stdout.String())
		}
	})
}

func TestExecute_ShowTime(t *testing.T) {
	app, _, stderr := newTestApp(t, fstest.MapFS{"main.sk": {Data: []byte("print(1);")}})
	cfg := config("main.sk")
	cfg.ShowTime = true
	if err := app.Execute(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stderr.String(), "execution time: ") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Errorf("Report() = %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestExecute_FilesRelativeToScript(t *testing.T) {
	files := fstest.MapFS{
		"game/main.sk":    {Data: []byte("with files.lines as lines;\neach lines(\"names.txt\") -> line { print(line); }")},
		"game/NAMES.TXT":  {Data: []byte("alice\nbob\n")},
		"other/names.txt": {Data: []byte("mallory\n")},
	}
	app, stdout, _ := newTestApp(t, files)
	if err := app.Execute(config("game/main.sk")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "alice\nbob\n" {
		t.Errorf("output = %q", stdout.String())
	}
}
