// Package cli parses the command line of the sketch interpreter.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zurustar/sketch/pkg/fileutil"
	"github.com/zurustar/sketch/pkg/vm"
)

// 環境変数
const (
	EnvLogLevel = "SKETCH_LOG_LEVEL"
	EnvOutput   = "SKETCH_OUTPUT"
	EnvEncoding = "SKETCH_ENCODING"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config はコマンドライン引数・環境変数・プロジェクトファイルから解決された設定を保持する
type Config struct {
	ScriptPath  string   // 実行するスクリプト（空の場合はREPL）
	OutputPath  string   // 出力ファイル（空の場合は標準出力）
	LogLevel    string   // ログレベル（debug, info, warn, error）
	Encoding    string   // ソースのエンコーディング
	ProjectPath string   // 読み込んだプロジェクトファイル（なければ空）
	MaxDepth    int      // 関数呼び出しの最大深さ（0は無制限）
	Imports     []string // with で読み込める関数。nil は制限なし
	DumpTokens  bool     // トークン列を表示して終了
	DumpAST     bool     // 構文木を表示して終了
	ShowTime    bool     // 実行時間を標準エラー出力に表示
	ShowHelp    bool     // ヘルプ表示フラグ
}

// Interactive はREPLを起動すべきかを返す
func (c *Config) Interactive() bool {
	return c.ScriptPath == ""
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: コマンドラインフラグ > 環境変数 > プロジェクトファイル > デフォルト値
func ParseArgs(args []string) (*Config, error) {
	return parseArgs(args, os.Getenv, fileutil.NewRealFS(""))
}

func parseArgs(args []string, getenv func(string) string, fsys fileutil.FileSystem) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fset := flag.NewFlagSet("sketch", flag.ContinueOnError)
	fset.SetOutput(io.Discard)

	var (
		flags       Config
		projectPath string
	)
	fset.StringVar(&flags.OutputPath, "output", "", "出力ファイル")
	fset.StringVar(&flags.OutputPath, "o", "", "出力ファイル（短縮形）")
	fset.StringVar(&flags.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fset.StringVar(&flags.LogLevel, "l", "info", "ログレベル（短縮形）")
	fset.StringVar(&flags.Encoding, "encoding", defaultEncoding, "ソースのエンコーディング")
	fset.StringVar(&flags.Encoding, "e", defaultEncoding, "ソースのエンコーディング（短縮形）")
	fset.StringVar(&projectPath, "config", "", "プロジェクトファイル")
	fset.StringVar(&projectPath, "c", "", "プロジェクトファイル（短縮形）")
	fset.IntVar(&flags.MaxDepth, "max-depth", vm.MaxStackDepth, "関数呼び出しの最大深さ（0は無制限）")
	fset.BoolVar(&flags.DumpTokens, "tokens", false, "トークン列を表示して終了")
	fset.BoolVar(&flags.DumpAST, "ast", false, "構文木を表示して終了")
	fset.BoolVar(&flags.ShowTime, "time", false, "実行時間を表示")
	fset.BoolVar(&flags.ShowHelp, "help", false, "ヘルプを表示")
	fset.BoolVar(&flags.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fset.Parse(reorderedArgs); err != nil {
		return nil, err
	}
	if fset.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fset.Args(), " "))
	}

	// 明示的に指定されたフラグを記録（短縮形は正式名に揃える）
	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) {
		set[longName(f.Name)] = true
	})

	config := &Config{
		DumpTokens: flags.DumpTokens,
		DumpAST:    flags.DumpAST,
		ShowTime:   flags.ShowTime,
		ShowHelp:   flags.ShowHelp,
	}
	if flags.ShowHelp {
		return config, nil
	}

	config.ScriptPath = fset.Arg(0)

	project, err := findProject(fsys, projectPath, config.ScriptPath)
	if err != nil {
		return nil, err
	}
	if project == nil {
		project = &Project{}
	} else {
		config.ProjectPath = project.Path
		if config.ScriptPath == "" {
			config.ScriptPath = project.Resolve(project.Entry)
		}
	}

	config.OutputPath = pick(set["output"], flags.OutputPath, getenv(EnvOutput), project.Resolve(project.Output), "")
	config.LogLevel = strings.ToLower(pick(set["log-level"], flags.LogLevel, getenv(EnvLogLevel), project.LogLevel, "info"))
	config.Encoding = pick(set["encoding"], flags.Encoding, getenv(EnvEncoding), project.Encoding, defaultEncoding)

	config.MaxDepth = vm.MaxStackDepth
	switch {
	case set["max-depth"]:
		config.MaxDepth = flags.MaxDepth
	case project.MaxDepth != nil:
		config.MaxDepth = *project.MaxDepth
	}
	config.Imports = project.Imports

	// 検証
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}
	if config.MaxDepth < 0 {
		return nil, fmt.Errorf("max-depth must be non-negative, got %d", config.MaxDepth)
	}
	if (config.DumpTokens || config.DumpAST) && config.ScriptPath == "" {
		return nil, errors.New("--tokens and --ast need a script")
	}

	return config, nil
}

// defaultEncoding はソースのデフォルトエンコーディング
const defaultEncoding = "utf-8"

// pick は優先順位に従って最初の有効な値を返す
func pick(flagSet bool, flagValue, envValue, projectValue, defaultValue string) string {
	switch {
	case flagSet:
		return flagValue
	case envValue != "":
		return envValue
	case projectValue != "":
		return projectValue
	}
	return defaultValue
}

func longName(name string) string {
	switch name {
	case "o":
		return "output"
	case "l":
		return "log-level"
	case "e":
		return "encoding"
	case "c":
		return "config"
	case "h":
		return "help"
	}
	return name
}

// findProject はプロジェクトファイルを探す
// -c が指定されていればそのファイルを、なければスクリプトのディレクトリ
// （スクリプト未指定時はカレントディレクトリ）の sketch.yaml を読み込む
func findProject(fsys fileutil.FileSystem, explicit, scriptPath string) (*Project, error) {
	if explicit != "" {
		return LoadProject(fsys, explicit)
	}

	dir := "."
	if scriptPath != "" {
		dir = filepath.Dir(scriptPath)
	}
	candidate := filepath.Join(dir, ProjectFileName)
	if _, err := fsys.Resolve(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return LoadProject(fsys, candidate)
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"h": true, "help": true,
	"tokens": true, "ast": true, "time": true,
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			// 次の引数を値として追加（-o out.txt のような場合）
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	if len(positional) == 0 {
		return flags
	}
	flags = append(flags, "--")
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `sketch - Sketch script interpreter

Usage:
  sketch [options] [script]

Arguments:
  script        実行するスクリプトファイル（省略するとREPLを起動）
                省略時、sketch.yaml に entry があればそれを実行

Options:
  -o, --output <file>         出力先ファイル（デフォルト: 標準出力）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  -e, --encoding <name>       ソースのエンコーディング（デフォルト: utf-8、例: shift_jis）
  -c, --config <file>         プロジェクトファイル（デフォルト: スクリプトと同じ場所の sketch.yaml）
  --max-depth <n>             関数呼び出しの最大深さ（デフォルト: %d、0は無制限）
  --tokens                    トークン列を表示して終了
  --ast                       構文木を表示して終了
  --time                      実行時間を標準エラー出力に表示
  -h, --help                  このヘルプを表示

Environment Variables:
  %s=<level>        ログレベル
  %s=<file>            出力先ファイル
  %s=<name>          ソースのエンコーディング

Project file (sketch.yaml):
  entry: main.sk
  output: out.txt
  encoding: utf-8
  log_level: info
  max_depth: 1000
  imports: [math.sqrt, sketch.random]

Examples:
  sketch hello.sk                 スクリプトを実行
  sketch -o out.txt hello.sk      出力をファイルに書き込む
  sketch --ast hello.sk           構文木を表示
  sketch                          REPLを起動
`, vm.MaxStackDepth, EnvLogLevel, EnvOutput, EnvEncoding)
}
