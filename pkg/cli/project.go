package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/sketch/pkg/fileutil"
)

// ProjectFileName はプロジェクトファイルの名前（大文字小文字を無視して検索）
const ProjectFileName = "sketch.yaml"

// Project は sketch.yaml の内容を保持する
type Project struct {
	Path     string   // プロジェクトファイルのパス
	Entry    string   // エントリースクリプト（プロジェクトファイルからの相対パス）
	Output   string   // 出力ファイル
	Encoding string   // ソースのエンコーディング
	LogLevel string   // ログレベル
	MaxDepth *int     // 関数呼び出しの最大深さ
	Imports  []string // with で読み込める関数（"module.function"）。nil は制限なし
}

type projectFile struct {
	Entry    string     `yaml:"entry"`
	Output   string     `yaml:"output"`
	Encoding string     `yaml:"encoding"`
	LogLevel string     `yaml:"log_level"`
	MaxDepth *int       `yaml:"max_depth"`
	Imports  stringList `yaml:"imports"`
}

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			out = append(out, str)
		}
		*l = out
		return nil
	}
	return fmt.Errorf("imports: expected a name or a list of names (line %d)", value.Line)
}

// LoadProject プロジェクトファイルを読み込む
func LoadProject(fsys fileutil.FileSystem, path string) (*Project, error) {
	if path == "" {
		return nil, fmt.Errorf("project: empty path")
	}
	actual, err := fsys.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("project: open %s: %w", path, err)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", actual, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var raw projectFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("project: %s is empty", actual)
		}
		return nil, fmt.Errorf("project: parse %s: %w", actual, err)
	}

	project := &Project{
		Path:     actual,
		Entry:    strings.TrimSpace(raw.Entry),
		Output:   strings.TrimSpace(raw.Output),
		Encoding: strings.TrimSpace(raw.Encoding),
		LogLevel: strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		MaxDepth: raw.MaxDepth,
	}
	if raw.Imports != nil {
		project.Imports = []string(raw.Imports)
	}
	if err := project.validate(); err != nil {
		return nil, err
	}
	return project, nil
}

func (p *Project) validate() error {
	if p.LogLevel != "" && !validLogLevels[p.LogLevel] {
		return fmt.Errorf("project: %s: invalid log_level %q", p.Path, p.LogLevel)
	}
	if p.MaxDepth != nil && *p.MaxDepth < 0 {
		return fmt.Errorf("project: %s: max_depth must be non-negative, got %d", p.Path, *p.MaxDepth)
	}
	for _, name := range p.Imports {
		module, function, ok := strings.Cut(name, ".")
		if !ok || module == "" || function == "" {
			return fmt.Errorf("project: %s: import %q must look like module.function", p.Path, name)
		}
	}
	return nil
}

// Resolve はプロジェクトファイルのディレクトリを基準にパスを解決する
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(p.Path), filepath.FromSlash(path))
}
