package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestCLIHelp tests the help display functionality
func TestCLIHelp(t *testing.T) {
	cmd := exec.Command("go", "run", "main.go", "--help")
	cmd.Dir = "."
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("help should exit 0: %v\n%s", err, output)
	}

	outputStr := string(output)
	if !strings.Contains(outputStr, "sketch - Sketch script interpreter") {
		t.Error("Help output should contain title")
	}
	if !strings.Contains(outputStr, "Usage:") {
		t.Error("Help output should contain Usage section")
	}
}

// TestCLIRunScript tests running a script end to end
func TestCLIRunScript(t *testing.T) {
	tmpDir := t.TempDir()
	scriptPath := filepath.Join(tmpDir, "hello.sk")
	src := "val z = 9;\nprintf(\"val=$z\");\nprint(\"x=\" + 5);\n"
	if err := os.WriteFile(scriptPath, []byte(src), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	cmd := exec.Command("go", "run", "main.go", "--log-level", "error", scriptPath)
	cmd.Dir = "."
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(output) != "val=9\nx=5\n" {
		t.Errorf("output = %q", output)
	}
}

// TestCLIErrorExit tests that fatal errors exit with status 1
func TestCLIErrorExit(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		errorMsg string
	}{
		{"parse error", "fun f( {", "parser error at line 1"},
		{"runtime error", "print(nothing);", "UNDEFINED_VARIABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scriptPath := filepath.Join(t.TempDir(), "bad.sk")
			if err := os.WriteFile(scriptPath, []byte(tt.source), 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			cmd := exec.Command("go", "run", "main.go", "-l", "error", scriptPath)
			cmd.Dir = "."
			output, err := cmd.CombinedOutput()
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(string(output), tt.errorMsg) {
				t.Errorf("Expected error message to contain '%s', got: %s", tt.errorMsg, output)
			}
		})
	}
}
