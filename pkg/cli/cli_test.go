package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zurustar/sketch/pkg/fileutil"
)

// noEnv は環境変数が何も設定されていない状態を表す
func noEnv(string) string { return "" }

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func emptyFS() fileutil.FileSystem {
	return fileutil.NewIOFS(fstest.MapFS{}, "")
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				LogLevel: "info",
				Encoding: "utf-8",
				MaxDepth: 1000,
			},
		},
		{
			name: "スクリプト指定",
			args: []string{"hello.sk"},
			expected: Config{
				ScriptPath: "hello.sk",
				LogLevel:   "info",
				Encoding:   "utf-8",
				MaxDepth:   1000,
			},
		},
		{
			name: "出力ファイル指定（短縮形）",
			args: []string{"-o", "out.txt", "hello.sk"},
			expected: Config{
				ScriptPath: "hello.sk",
				OutputPath: "out.txt",
				LogLevel:   "info",
				Encoding:   "utf-8",
				MaxDepth:   1000,
			},
		},
		{
			name: "位置引数の後にフラグ（順序に関係なく動作）",
			args: []string{"hello.sk", "--log-level", "debug", "--encoding", "shift_jis", "--time"},
			expected: Config{
				ScriptPath: "hello.sk",
				LogLevel:   "debug",
				Encoding:   "shift_jis",
				MaxDepth:   1000,
				ShowTime:   true,
			},
		},
		{
			name: "値付きフラグの = 形式",
			args: []string{"--max-depth=0", "-l=warn", "hello.sk"},
			expected: Config{
				ScriptPath: "hello.sk",
				LogLevel:   "warn",
				Encoding:   "utf-8",
			},
		},
		{
			name: "ダンプ",
			args: []string{"--tokens", "hello.sk", "--ast"},
			expected: Config{
				ScriptPath: "hello.sk",
				LogLevel:   "info",
				Encoding:   "utf-8",
				MaxDepth:   1000,
				DumpTokens: true,
				DumpAST:    true,
			},
		},
		{
			name: "ヘルプ表示（短縮形）",
			args: []string{"-h"},
			expected: Config{
				ShowHelp: true,
			},
		},
		{
			name: "-- 以降は位置引数",
			args: []string{"--", "-odd.sk"},
			expected: Config{
				ScriptPath: "-odd.sk",
				LogLevel:   "info",
				Encoding:   "utf-8",
				MaxDepth:   1000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parseArgs(tt.args, noEnv, emptyFS())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(*config, tt.expected) {
				t.Errorf("config = %+v\nwant     %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"無効なログレベル", []string{"--log-level", "invalid"}},
		{"無効なログレベル（短縮形）", []string{"-l", "trace"}},
		{"負の最大深さ", []string{"--max-depth", "-1", "a.sk"}},
		{"数値でない最大深さ", []string{"--max-depth", "deep", "a.sk"}},
		{"未知のフラグ", []string{"--headless"}},
		{"スクリプトが複数", []string{"a.sk", "b.sk"}},
		{"スクリプトなしのダンプ", []string{"--ast"}},
		{"存在しないプロジェクトファイル", []string{"-c", "missing.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args, noEnv, emptyFS()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	vars := map[string]string{
		EnvLogLevel: "DEBUG",
		EnvOutput:   "env-out.txt",
		EnvEncoding: "euc-jp",
	}

	t.Run("環境変数を使用", func(t *testing.T) {
		config, err := parseArgs([]string{"a.sk"}, env(vars), emptyFS())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.LogLevel != "debug" || config.OutputPath != "env-out.txt" || config.Encoding != "euc-jp" {
			t.Errorf("config = %+v", config)
		}
	})

	t.Run("コマンドラインフラグが優先", func(t *testing.T) {
		config, err := parseArgs([]string{"-l", "info", "-o", "flag.txt", "a.sk"}, env(vars), emptyFS())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.LogLevel != "info" || config.OutputPath != "flag.txt" {
			t.Errorf("config = %+v", config)
		}
	})
}

func TestParseArgs_Project(t *testing.T) {
	fsys := fileutil.NewIOFS(fstest.MapFS{
		"sketch.yaml": {Data: []byte(`
entry: src/main.sk
output: out/result.txt
encoding: shift_jis
log_level: warn
max_depth: 64
imports:
  - math.sqrt
  - sketch.random
`)},
		"game/Sketch.YAML": {Data: []byte("imports: math.abs\nmax_depth: 0\n")},
		"game/main.sk":     {Data: []byte("print(1);")},
		"alt.yaml":         {Data: []byte("log_level: error\n")},
	}, "")

	t.Run("カレントディレクトリの sketch.yaml", func(t *testing.T) {
		config, err := parseArgs(nil, noEnv, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := Config{
			ScriptPath:  "src/main.sk",
			OutputPath:  "out/result.txt",
			LogLevel:    "warn",
			Encoding:    "shift_jis",
			ProjectPath: "sketch.yaml",
			MaxDepth:    64,
			Imports:     []string{"math.sqrt", "sketch.random"},
		}
		if !reflect.DeepEqual(*config, expected) {
			t.Errorf("config = %+v\nwant     %+v", *config, expected)
		}
		if config.Interactive() {
			t.Error("entry should disable the REPL")
		}
	})

	t.Run("スクリプトのディレクトリを検索（大文字小文字を無視）", func(t *testing.T) {
		config, err := parseArgs([]string{"game/main.sk"}, noEnv, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.ProjectPath != "game/Sketch.YAML" {
			t.Errorf("ProjectPath = %q", config.ProjectPath)
		}
		if config.MaxDepth != 0 {
			t.Errorf("MaxDepth = %d, want 0", config.MaxDepth)
		}
		if !reflect.DeepEqual(config.Imports, []string{"math.abs"}) {
			t.Errorf("Imports = %v", config.Imports)
		}
	})

	t.Run("フラグがプロジェクトファイルより優先", func(t *testing.T) {
		config, err := parseArgs([]string{"--max-depth", "5", "-l", "debug"}, noEnv, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.MaxDepth != 5 || config.LogLevel != "debug" {
			t.Errorf("config = %+v", config)
		}
	})

	t.Run("明示的なプロジェクトファイル", func(t *testing.T) {
		config, err := parseArgs([]string{"-c", "alt.yaml", "x.sk"}, noEnv, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.LogLevel != "error" || config.ProjectPath != "alt.yaml" {
			t.Errorf("config = %+v", config)
		}
		if config.Imports != nil {
			t.Errorf("Imports = %v, want nil", config.Imports)
		}
	})
}

func TestLoadProject_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"空ファイル", ""},
		{"未知のキー", "entry: a.sk\nheadless: true\n"},
		{"無効なログレベル", "log_level: loud\n"},
		{"負の最大深さ", "max_depth: -3\n"},
		{"不正なインポート名", "imports: [sqrt]\n"},
		{"インポートの型", "imports: {a: b}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fileutil.NewIOFS(fstest.MapFS{"sketch.yaml": {Data: []byte(tt.content)}}, "")
			if _, err := LoadProject(fsys, "sketch.yaml"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"a.sk", "-o", "out", "--time", "--encoding=sjis"})
	want := []string{"-o", "out", "--time", "--encoding=sjis", "--", "a.sk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reorderArgs() = %v, want %v", got, want)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, s := range []string{"Usage:", "--output", "SKETCH_LOG_LEVEL", "sketch.yaml"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("help should mention %q", s)
		}
	}
}
