package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/sellerdesk/approvals/internal/platform/config"
)

func TestParseEnv(t *testing.T) {
	type serverEnv struct {
		Addr   string `env:"APPROVALS_TEST_ADDR" envDefault:":8080"`
		Window int    `env:"APPROVALS_TEST_WINDOW" envDefault:"30"`
	}

	t.Run("defaults apply when unset", func(t *testing.T) {
		var cfg serverEnv
		if err := config.ParseEnv(&cfg); err != nil {
			t.Fatalf("parse env: %v", err)
		}
		if cfg.Addr != ":8080" || cfg.Window != 30 {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("APPROVALS_TEST_ADDR", ":9999")
		var cfg serverEnv
		if err := config.ParseEnv(&cfg); err != nil {
			t.Fatalf("parse env: %v", err)
		}
		if cfg.Addr != ":9999" {
			t.Fatalf("addr = %q, want :9999", cfg.Addr)
		}
	})

	t.Run("malformed value surfaces a wrapped error", func(t *testing.T) {
		t.Setenv("APPROVALS_TEST_WINDOW", "soon")
		var cfg serverEnv
		err := config.ParseEnv(&cfg)
		if err == nil {
			t.Fatal("expected error for non-integer value")
		}
		if !strings.Contains(err.Error(), "parse env:") {
			t.Fatalf("expected parse env prefix, got %v", err)
		}
	})
}

// Exitf calls os.Exit, so the assertion runs the test binary again as a
// subprocess and inspects its exit status and stderr.
func TestExitfTerminatesProcess(t *testing.T) {
	if os.Getenv("APPROVALS_TEST_EXITF") == "1" {
		config.Exitf("bootstrap failed: %s", "no database path")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfTerminatesProcess$")
	cmd.Env = append(os.Environ(), "APPROVALS_TEST_EXITF=1")
	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "bootstrap failed: no database path") {
		t.Fatalf("stderr = %q, want the formatted message", string(out))
	}
}
