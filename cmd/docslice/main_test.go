package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/docslice/docslice/internal/config"
)

const testVersion = "1.2.3"

func capturePrintVersion(t *testing.T) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	output := capturePrintVersion(t)

	expectedStrings := []string{
		"docslice",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"

	defer func() {
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	output := capturePrintVersion(t)

	expectedStrings := []string{
		"docslice",
		"Version: dev",
		"Build Time: unknown",
		"Git Commit: unknown",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging_StdioMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()

	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name     string
		config   *config.Config
		wantType string
	}{
		{
			name: "stdio mode - debug enabled",
			config: &config.Config{
				Mode:     "stdio",
				LogLevel: "debug",
			},
			wantType: "stderr",
		},
		{
			name: "stdio mode - debug disabled",
			config: &config.Config{
				Mode:     "stdio",
				LogLevel: "info",
			},
			wantType: "devnull",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogging(tt.config)

			currentOutput := log.Writer()

			switch tt.wantType {
			case "stderr":
				if currentOutput != os.Stderr {
					t.Errorf("setupLogging() for stdio debug mode should set output to stderr")
				}
			case "devnull":
				if currentOutput == os.Stderr {
					t.Errorf("setupLogging() for stdio non-debug mode should not use stderr")
				}
			}
		})
	}
}

func TestSetupLogging_ServerMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()

	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	cfg := &config.Config{
		Mode:     "server",
		LogLevel: "info",
	}

	setupLogging(cfg)

	currentFlags := log.Flags()
	expectedFlags := log.LstdFlags | log.Lshortfile

	if currentFlags != expectedFlags {
		t.Errorf("setupLogging() for server mode flags = %v, want %v", currentFlags, expectedFlags)
	}
}

func TestNewCaller(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ModelKey = ""

	if _, err := newCaller(cfg); err == nil {
		t.Error("newCaller() expected error without an API key")
	} else if !strings.Contains(err.Error(), "DOCSLICE_MODEL_KEY") {
		t.Errorf("newCaller() error should point at the key configuration, got: %v", err)
	}

	cfg.ModelKey = "test-key"
	caller, err := newCaller(cfg)
	if err != nil {
		t.Fatalf("newCaller() unexpected error: %v", err)
	}
	if caller == nil {
		t.Fatal("newCaller() returned nil caller")
	}
}
