package fileutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem は実ファイルシステムと fs.FS を統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// Resolve は大文字小文字を無視してファイルを検索し、実際のパスを返す
	Resolve(name string) (string, error)
	// BasePath はベースパスを返す
	BasePath() string
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct {
	basePath string
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
// basePath が空の場合、相対パスはカレントディレクトリから解決する
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	actualPath, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actualPath)
}

func (r *RealFS) Resolve(name string) (string, error) {
	p := name
	if r.basePath != "" && !filepath.IsAbs(name) {
		p = filepath.Join(r.basePath, name)
	}

	// まず直接アクセスを試みる
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
}

func (r *RealFS) BasePath() string {
	return r.basePath
}

// IOFS は fs.FS（embed.FS など）へのアクセスを提供する
type IOFS struct {
	fsys     fs.FS
	basePath string
}

// NewIOFS は fs.FS 用のFileSystemを作成する
func NewIOFS(fsys fs.FS, basePath string) *IOFS {
	return &IOFS{fsys: fsys, basePath: basePath}
}

func (e *IOFS) ReadFile(name string) ([]byte, error) {
	actualPath, err := e.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, actualPath)
}

func (e *IOFS) Resolve(name string) (string, error) {
	// fs.FS では "/" を使用し、先頭の "/" は付けない
	clean := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
	p := path.Clean(clean)
	if e.basePath != "" {
		p = path.Join(e.basePath, p)
	}

	if info, err := fs.Stat(e.fsys, p); err == nil && !info.IsDir() {
		return p, nil
	}
	return FindFileCaseInsensitiveFS(e.fsys, path.Dir(p), path.Base(p))
}

func (e *IOFS) BasePath() string {
	return e.basePath
}

// FS は元の fs.FS を返す
func (e *IOFS) FS() fs.FS {
	return e.fsys
}
