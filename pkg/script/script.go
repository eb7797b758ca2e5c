// Package script loads Sketch source files and decodes them to UTF-8.
package script

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/sketch/pkg/fileutil"
)

// DefaultEncoding はソースのデフォルトエンコーディング
const DefaultEncoding = "utf-8"

// Script はスクリプトファイルを表す
type Script struct {
	FileName string // ファイル名
	Content  string // UTF-8に変換された内容
	Size     int64  // ファイルサイズ（変換前）
	Encoding string // 読み込みに使用したエンコーディング
}

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	fs       fileutil.FileSystem
	encoding string
}

// NewLoader Loaderを作成
// encoding が空の場合は UTF-8 として読み込む
func NewLoader(fsys fileutil.FileSystem, encoding string) *Loader {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Loader{
		fs:       fsys,
		encoding: encoding,
	}
}

// Load 単一のスクリプトファイルを読み込む（ファイル名は大文字小文字を無視）
func (l *Loader) Load(name string) (*Script, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", name, err)
	}

	content, err := Decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}

	return &Script{
		FileName: path.Base(strings.ReplaceAll(name, "\\", "/")),
		Content:  content,
		Size:     int64(len(data)),
		Encoding: l.encoding,
	}, nil
}

// Decode 指定されたエンコーディングからUTF-8に変換
// UTF-8 の場合は BOM を取り除く。ラベルは WHATWG の名前（"shift_jis",
// "euc-jp", "windows-1252" など）を受け付ける
func Decode(data []byte, label string) (string, error) {
	enc, err := Lookup(label)
	if err != nil {
		return "", err
	}

	var decoder transform.Transformer = enc.NewDecoder()
	if enc == unicode.UTF8 {
		decoder = unicode.BOMOverride(decoder)
	}

	reader := transform.NewReader(bytes.NewReader(data), decoder)
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", label, err)
	}
	return string(utf8Data), nil
}

// Lookup エンコーディング名から encoding.Encoding を取得
func Lookup(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "sjis", "shift_jis", "shift-jis", "cp932":
		return japanese.ShiftJIS, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc, nil
}
