// Package app wires the command line, the loader, the compiler and the
// evaluator into the sketch program.
package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zurustar/sketch/pkg/cli"
	"github.com/zurustar/sketch/pkg/compiler"
	"github.com/zurustar/sketch/pkg/compiler/ast"
	"github.com/zurustar/sketch/pkg/fileutil"
	"github.com/zurustar/sketch/pkg/hostlib"
	"github.com/zurustar/sketch/pkg/logger"
	"github.com/zurustar/sketch/pkg/repl"
	"github.com/zurustar/sketch/pkg/script"
	"github.com/zurustar/sketch/pkg/vm"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	fs      fileutil.FileSystem
	stdout  io.Writer
	stderr  io.Writer
	foreign *vm.Registry
}

// Option は Application の設定を変更する
type Option func(*Application)

// WithFileSystem はスクリプトを読み込むファイルシステムを指定する
func WithFileSystem(fsys fileutil.FileSystem) Option {
	return func(app *Application) {
		app.fs = fsys
	}
}

// WithOutput は標準出力と標準エラー出力の代わりに使う Writer を指定する
func WithOutput(stdout, stderr io.Writer) Option {
	return func(app *Application) {
		app.stdout = stdout
		app.stderr = stderr
	}
}

// WithRegistry は with で読み込めるホスト関数を差し替える
func WithRegistry(r *vm.Registry) Option {
	return func(app *Application) {
		app.foreign = r
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		fs:     fileutil.NewRealFS(""),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(config.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.Execute(config)
}

// Execute は解決済みの設定でスクリプトを実行する（スクリプト未指定ならREPL）
func (app *Application) Execute(config *cli.Config) error {
	app.config = config
	if app.log == nil {
		app.log = logger.GetLogger()
	}
	if app.config.ProjectPath != "" {
		app.log.Info("Project file loaded", "path", app.config.ProjectPath)
	}

	if app.config.Interactive() {
		return app.runREPL()
	}

	// 3. スクリプトファイルの読み込み
	s, err := app.loadScript()
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	app.log.Info("Script loaded", "name", s.FileName, "size", s.Size, "encoding", s.Encoding)
	app.log.Debug("Script content preview", "name", s.FileName, "preview", truncate(s.Content, 100))

	// 4. ダンプ指定時はトークン列・構文木を表示して終了
	if app.config.DumpTokens || app.config.DumpAST {
		return app.dump(s.Content)
	}

	// 5. スクリプトのコンパイル
	program, err := compiler.Compile(s.Content)
	if err != nil {
		app.log.Error("Compilation failed", "file", s.FileName, "error", firstLine(err))
		return fmt.Errorf("failed to compile %s: %w", s.FileName, err)
	}
	app.log.Info("Script compiled successfully", "expressions", len(program.Exprs))

	// 6. 実行
	if err := app.execute(program); err != nil {
		return fmt.Errorf("failed to run %s: %w", s.FileName, err)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// loadScript スクリプトファイルを読み込む
func (app *Application) loadScript() (*script.Script, error) {
	loader := script.NewLoader(app.fs, app.config.Encoding)
	return loader.Load(app.config.ScriptPath)
}

// dump トークン列と構文木を表示
func (app *Application) dump(source string) error {
	if app.config.DumpTokens {
		tokens, err := compiler.Tokenize(source)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(app.stdout, compiler.DumpTokens(tokens)); err != nil {
			return err
		}
	}
	if app.config.DumpAST {
		program, err := compiler.Compile(source)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(app.stdout, program.String()); err != nil {
			return err
		}
	}
	return nil
}

// execute はプログラムを実行し、出力を設定された出力先に書き込む
func (app *Application) execute(program *ast.Program) (err error) {
	sink := app.stdout
	if app.config.OutputPath != "" {
		f, cerr := os.Create(app.config.OutputPath)
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		sink = f
		app.log.Debug("Writing output to file", "path", app.config.OutputPath)
	}

	// エラーで停止した場合もそれまでの出力は残す
	w := bufio.NewWriter(sink)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	evaluator := app.newEvaluator(w)

	start := time.Now()
	err = evaluator.ExecuteProgram(program)
	elapsed := time.Since(start)

	if app.config.ShowTime {
		fmt.Fprintf(app.stderr, "execution time: %s\n", elapsed)
	}
	if err != nil {
		app.log.Error("Execution failed", "duration", elapsed, "error", err)
		return err
	}
	app.log.Info("Script executed", "duration", elapsed)
	return nil
}

// runREPL 対話モードを起動
func (app *Application) runREPL() error {
	app.log.Info("Starting REPL")
	return repl.New(app.newEvaluator(app.stdout), app.stdout, app.stderr).Run()
}

// newEvaluator は設定に従って evaluator を作成する
func (app *Application) newEvaluator(sink io.Writer) *vm.Evaluator {
	return vm.New(sink,
		vm.WithLogger(app.log),
		vm.WithMaxDepth(app.config.MaxDepth),
		vm.WithForeign(app.registry()),
	)
}

// registry は with で読み込めるホスト関数を返す
// プロジェクトファイルに imports があればそれ以外は読み込めない
func (app *Application) registry() *vm.Registry {
	r := app.foreign
	if r == nil {
		// files モジュールはスクリプトのディレクトリを基準にする
		dir := "."
		if app.config.ScriptPath != "" {
			dir = filepath.Dir(app.config.ScriptPath)
		}
		lib := hostlib.New(hostlib.WithFileSystem(app.dataFS(dir), app.config.Encoding))
		r = lib.Registry()
	}
	if app.config.Imports != nil {
		r = r.Filter(app.config.Imports)
		app.log.Debug("Host functions restricted", "allowed", r.Names())
	}
	return r
}

// dataFS はスクリプトから読めるファイルシステムを返す
func (app *Application) dataFS(dir string) fileutil.FileSystem {
	if iofs, ok := app.fs.(*fileutil.IOFS); ok {
		return fileutil.NewIOFS(iofs.FS(), path.Join(iofs.BasePath(), filepath.ToSlash(dir)))
	}
	return fileutil.NewRealFS(filepath.Join(app.fs.BasePath(), dir))
}

// Report はエラーを利用者向けに表示する。コンパイルエラーはソースの該当箇所も表示する
func Report(w io.Writer, err error) {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		fmt.Fprintf(w, "Error: %s error at line %d, column %d: %s\n", ce.Phase, ce.Line, ce.Column, ce.Message)
		if ce.Context != "" {
			fmt.Fprintln(w, ce.Context)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// truncate 文字列を指定した長さで切り詰める
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// firstLine はエラーメッセージの1行目を返す（ログ用）
func firstLine(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}
