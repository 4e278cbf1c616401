package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("DOCSLICE_MODE")
	os.Unsetenv("DOCSLICE_HOST")
	os.Unsetenv("DOCSLICE_PORT")
	os.Unsetenv("DOCSLICE_DIR")
	os.Unsetenv("DOCSLICE_LOGLEVEL")
	os.Unsetenv("DOCSLICE_WORKERS")
	os.Unsetenv("DOCSLICE_DPI")
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"docslice"})
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.Workers != 4 {
		t.Errorf("LoadFromFlags() Workers = %v, want %v", cfg.Workers, 4)
	}
	if cfg.DPI != 300 {
		t.Errorf("LoadFromFlags() DPI = %v, want %v", cfg.DPI, 300)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("LoadFromFlags() RetryDelay = %v, want %v", cfg.RetryDelay, time.Second)
	}
	if cfg.PDFDirectory == "" {
		t.Error("LoadFromFlags() PDFDirectory should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name         string
		argsTemplate []string
		check        func(t *testing.T, cfg *Config)
	}{
		{
			name:         "stdio mode with custom directory",
			argsTemplate: []string{"docslice", "--dir=%s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Mode != "stdio" {
					t.Errorf("Mode = %v, want stdio", cfg.Mode)
				}
			},
		},
		{
			name:         "server mode with custom host and port",
			argsTemplate: []string{"docslice", "--mode=server", "--host=0.0.0.0", "--port=9090", "--dir=%s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Mode != "server" {
					t.Errorf("Mode = %v, want server", cfg.Mode)
				}
				if cfg.Host != "0.0.0.0" {
					t.Errorf("Host = %v, want 0.0.0.0", cfg.Host)
				}
				if cfg.Port != 9090 {
					t.Errorf("Port = %v, want 9090", cfg.Port)
				}
			},
		},
		{
			name:         "model and retry flags",
			argsTemplate: []string{"docslice", "--model-id=test-model", "--retry-attempts=5", "--retry-delay=250ms", "--dir=%s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ModelID != "test-model" {
					t.Errorf("ModelID = %v, want test-model", cfg.ModelID)
				}
				if cfg.RetryAttempts != 5 {
					t.Errorf("RetryAttempts = %v, want 5", cfg.RetryAttempts)
				}
				if cfg.RetryDelay != 250*time.Millisecond {
					t.Errorf("RetryDelay = %v, want 250ms", cfg.RetryDelay)
				}
			},
		},
		{
			name:         "layout tuning flags",
			argsTemplate: []string{"docslice", "--dpi=150", "--slice-min-size=10", "--cluster-window=40", "--snap-tolerance=20", "--dir=%s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.DPI != 150 {
					t.Errorf("DPI = %v, want 150", cfg.DPI)
				}
				if cfg.SliceMinSize != 10 {
					t.Errorf("SliceMinSize = %v, want 10", cfg.SliceMinSize)
				}
				if cfg.ClusterWindow != 40 {
					t.Errorf("ClusterWindow = %v, want 40", cfg.ClusterWindow)
				}
				if cfg.SnapTolerance != 20 {
					t.Errorf("SnapTolerance = %v, want 20", cfg.SnapTolerance)
				}
			},
		},
		{
			name:         "worker pool and pre-check flags",
			argsTemplate: []string{"docslice", "--workers=8", "--table-precheck", "--dir=%s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 8 {
					t.Errorf("Workers = %v, want 8", cfg.Workers)
				}
				if !cfg.TablePrecheck {
					t.Error("TablePrecheck = false, want true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			defer func() {
				os.Args = originalArgs
				resetFlags()
				clearEnvVars()
			}()

			tempDir := t.TempDir()
			args := make([]string, len(tt.argsTemplate))
			for i, arg := range tt.argsTemplate {
				if arg == "--dir=%s" {
					args[i] = "--dir=" + tempDir
				} else {
					args[i] = arg
				}
			}

			setArgs(args)
			resetFlags()
			clearEnvVars()

			cfg, err := LoadFromFlags()
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()

	os.Setenv("DOCSLICE_MODE", "server")
	os.Setenv("DOCSLICE_HOST", "192.168.1.1")
	os.Setenv("DOCSLICE_PORT", "3000")
	os.Setenv("DOCSLICE_DIR", tempDir)
	os.Setenv("DOCSLICE_WORKERS", "2")

	setArgs([]string{"docslice"})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want server (from env)", cfg.Mode)
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want 192.168.1.1 (from env)", cfg.Host)
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want 3000 (from env)", cfg.Port)
	}
	if cfg.Workers != 2 {
		t.Errorf("LoadFromFlags() Workers = %v, want 2 (from env)", cfg.Workers)
	}
}

func TestLoadFromFlags_InvalidConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{"docslice", "--mode=bogus", "--dir=" + tempDir})
	resetFlags()
	clearEnvVars()

	if _, err := LoadFromFlags(); err == nil {
		t.Error("LoadFromFlags() expected error for invalid mode")
	}
}

func TestLoadFromFlags_VersionRequested(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"docslice", "--version"})
	resetFlags()
	clearEnvVars()

	if _, err := LoadFromFlags(); err == nil {
		t.Error("LoadFromFlags() expected version-requested error")
	}
}
