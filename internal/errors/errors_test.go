//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "without cause",
			err: &Error{
				Category: CategoryDependency,
				Code:     CodeCyclicDependency,
				Message:  "circular dependency detected",
			},
			expected: "circular dependency detected",
		},
		{
			name: "with cause",
			err: &Error{
				Category: CategoryConfig,
				Code:     CodeConfigParse,
				Message:  "failed to parse manifest",
				Cause:    errors.New("invalid syntax"),
			},
			expected: "failed to parse manifest: invalid syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &Error{
		Category: CategoryInstall,
		Code:     CodeInstallFailed,
		Message:  "install failed",
		Cause:    cause,
	}

	assert.Equal(t, cause, err.Unwrap())
}

func TestError_WithMethods(t *testing.T) {
	t.Parallel()

	err := New(CategoryConfig, "test error")

	_ = err.WithHint("try this").
		WithExample("example: foo").
		WithDetail("key", "value")

	assert.Equal(t, "try this", err.Hint)
	assert.Equal(t, "example: foo", err.Example)
	assert.Equal(t, "value", err.Details["key"])
}

func TestDependencyError(t *testing.T) {
	t.Parallel()

	t.Run("cycle error", func(t *testing.T) {
		t.Parallel()

		cycle := []string{"A", "B", "C", "A"}
		err := NewCycleError(cycle)

		assert.True(t, err.IsCycle())
		assert.Equal(t, CodeCyclicDependency, err.Base.Code)
		assert.Equal(t, cycle, err.Cycle)
		assert.Contains(t, err.Error(), "circular dependency")
	})

	t.Run("missing dependency error", func(t *testing.T) {
		t.Parallel()

		err := NewMissingDependencyError("tool/gopls", []string{"runtime/go"})

		assert.False(t, err.IsCycle())
		assert.Equal(t, CodeMissingDependency, err.Base.Code)
		assert.Equal(t, "tool/gopls", err.Resource)
		assert.Equal(t, []string{"runtime/go"}, err.Missing)
	})

	t.Run("unwrap", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("original error")
		err := &DependencyError{
			Base: Error{
				Category: CategoryDependency,
				Code:     CodeCyclicDependency,
				Message:  "test",
				Cause:    cause,
			},
		}

		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("syntax error")
		err := NewConfigError("failed to load manifest", cause)

		assert.Equal(t, CodeConfigParse, err.Base.Code)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("with location", func(t *testing.T) {
		t.Parallel()

		err := NewConfigErrorAt(".omni.yaml", 10, 5, "invalid field", nil)

		assert.Equal(t, ".omni.yaml", err.File)
		assert.Equal(t, 10, err.Line)
		assert.Equal(t, 5, err.Column)
	})

	t.Run("with methods", func(t *testing.T) {
		t.Parallel()

		err := NewConfigError("error", nil).
			WithFile(".omni.yaml").
			WithLocation(15, 3).
			WithContext("  up:")

		assert.Equal(t, ".omni.yaml", err.File)
		assert.Equal(t, 15, err.Line)
		assert.Equal(t, 3, err.Column)
		assert.Equal(t, "  up:", err.Context)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		err := NewConfigValidationError(".omni.yaml", "unknown merge strategy suffix")

		assert.Equal(t, CodeConfigValidation, err.Base.Code)
		assert.Equal(t, ".omni.yaml", err.File)
	})
}

func TestTrustError(t *testing.T) {
	t.Parallel()

	err := NewTrustError("/home/dev/project").WithConfigHash("abc123")

	assert.Equal(t, CodeNotTrusted, err.Base.Code)
	assert.Equal(t, "/home/dev/project", err.WorkDir)
	assert.Equal(t, "abc123", err.ConfigHash)
	assert.NotEmpty(t, err.Base.Hint)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("tool/rg", "version", "string", "number")

	assert.Equal(t, CodeConfigValidation, err.Base.Code)
	assert.Equal(t, "tool/rg", err.Resource)
	assert.Equal(t, "version", err.Field)
	assert.Equal(t, "string", err.Expected)
	assert.Equal(t, "number", err.Got)
}

func TestResolveError(t *testing.T) {
	t.Parallel()

	t.Run("malformed expression", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("unexpected token")
		err := NewResolveError("tool/gh", "^^2.x", cause)

		assert.Equal(t, CodeResolveFailed, err.Base.Code)
		assert.Equal(t, "tool/gh", err.Operation)
		assert.Equal(t, "^^2.x", err.Expression)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("no matching version", func(t *testing.T) {
		t.Parallel()

		err := NewNoMatchingVersionError("tool/gh", "^99.0.0")

		assert.Equal(t, CodeNoMatchingVersion, err.Base.Code)
		assert.Contains(t, err.Error(), "^99.0.0")
	})
}

func TestInstallError(t *testing.T) {
	t.Parallel()

	cause := errors.New("download failed")
	err := NewInstallError("tool/gh", "install", "archive download failed", cause).
		WithVersion("2.86.0").
		WithURL("https://example.com/gh.tar.gz")

	assert.Equal(t, CodeInstallFailed, err.Base.Code)
	assert.Equal(t, "tool/gh", err.Resource)
	assert.Equal(t, "install", err.Action)
	assert.Equal(t, "archive download failed", err.Reason)
	assert.Equal(t, "2.86.0", err.Version)
	assert.Equal(t, "https://example.com/gh.tar.gz", err.URL)
	assert.Equal(t, cause, err.Unwrap())
}

func TestChecksumError(t *testing.T) {
	t.Parallel()

	err := NewChecksumError("tool/rg", "https://example.com/rg.tar.gz", "sha256:abc", "sha256:def")

	assert.Equal(t, CodeChecksumMismatch, err.Base.Code)
	assert.Equal(t, "tool/rg", err.Resource)
	assert.Equal(t, "sha256:abc", err.Expected)
	assert.Equal(t, "sha256:def", err.Got)
	assert.NotEmpty(t, err.Base.Hint)
}

func TestSignatureError(t *testing.T) {
	t.Parallel()

	cause := errors.New("no matching certificate")
	err := NewSignatureError("tool/gh", "https://example.com/gh.tar.gz", cause)

	assert.Equal(t, CodeSignatureFailed, err.Base.Code)
	assert.Equal(t, "tool/gh", err.Resource)
	assert.Equal(t, cause, err.Unwrap())
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection refused")
		err := NewNetworkError("https://example.com", cause)

		assert.Equal(t, CodeNetworkFailed, err.Base.Code)
		assert.Equal(t, "https://example.com", err.URL)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("HTTP error", func(t *testing.T) {
		t.Parallel()

		err := NewHTTPError("https://example.com/file.tar.gz", 404)

		assert.Equal(t, CodeHTTPError, err.Base.Code)
		assert.Equal(t, 404, err.StatusCode)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	t.Run("busy", func(t *testing.T) {
		t.Parallel()

		err := NewStoreBusyError("/home/dev/.cache/omni/store.lock", 12345)

		assert.Equal(t, CodeStoreBusy, err.Base.Code)
		assert.Equal(t, "/home/dev/.cache/omni/store.lock", err.LockFile)
		assert.Equal(t, 12345, err.LockPID)
		assert.Contains(t, err.Base.Hint, "store.lock")
	})

	t.Run("io", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("disk full")
		err := NewStoreIOError("/home/dev/.cache/omni/store.db", cause)

		assert.Equal(t, CodeStoreIO, err.Base.Code)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("corrupt", func(t *testing.T) {
		t.Parallel()

		err := NewStoreCorruptError("/home/dev/.cache/omni/store.db", errors.New("bad schema"))

		assert.Equal(t, CodeStoreCorrupt, err.Base.Code)
		assert.NotEmpty(t, err.Base.Hint)
	})
}

func TestCatalogError(t *testing.T) {
	t.Parallel()

	t.Run("unavailable", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("404 not found")
		err := NewCatalogUnavailableError("github-release", "tool/gh", cause).
			WithOperation("tool/gh")

		assert.Equal(t, CodeCatalogUnavailable, err.Base.Code)
		assert.Equal(t, "github-release", err.Source)
		assert.Equal(t, "tool/gh", err.Operation)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("stale", func(t *testing.T) {
		t.Parallel()

		err := NewCatalogStaleError("github-release", "tool/gh")

		assert.Equal(t, CodeCatalogStale, err.Base.Code)
		assert.NotEmpty(t, err.Base.Hint)
	})
}

func TestCancelError(t *testing.T) {
	t.Parallel()

	err := NewCancelError([]string{"runtime/go"}, []string{"tool/gh", "tool/rg"})

	assert.Equal(t, CodeCancelled, err.Base.Code)
	assert.Equal(t, []string{"runtime/go"}, err.Completed)
	assert.Equal(t, []string{"tool/gh", "tool/rg"}, err.Pending)
}

func TestEnvDirectiveError(t *testing.T) {
	t.Parallel()

	err := NewEnvDirectiveError("tool/gh", 3, "PATHX /usr/local/bin", "unknown directive")

	assert.Equal(t, CodeBadEnvDirective, err.Base.Code)
	assert.Equal(t, "tool/gh", err.Operation)
	assert.Equal(t, 3, err.Line)
	assert.Equal(t, "PATHX /usr/local/bin", err.Directive)
}

func TestErrorsIs(t *testing.T) {
	t.Parallel()

	t.Run("same code matches", func(t *testing.T) {
		t.Parallel()

		err1 := NewCycleError([]string{"A", "B", "A"})
		err2 := NewCycleError([]string{"X", "Y", "X"})

		assert.ErrorIs(t, err1, err2)
	})

	t.Run("different code does not match", func(t *testing.T) {
		t.Parallel()

		cycleErr := NewCycleError([]string{"A", "B", "A"})
		missingErr := NewMissingDependencyError("tool/x", []string{"runtime/y"})

		assert.NotErrorIs(t, cycleErr, missingErr)
	})

	t.Run("different types do not match", func(t *testing.T) {
		t.Parallel()

		depErr := NewCycleError([]string{"A", "B", "A"})
		configErr := NewConfigError("test", nil)

		assert.NotErrorIs(t, depErr, configErr)
	})

	t.Run("base error Is", func(t *testing.T) {
		t.Parallel()

		err1 := &Error{Code: CodeInstallFailed, Message: "install failed"}
		err2 := &Error{Code: CodeInstallFailed, Message: "different message"}

		assert.ErrorIs(t, err1, err2)
	})

	t.Run("network error codes", func(t *testing.T) {
		t.Parallel()

		err1 := NewHTTPError("https://a.com", 404)
		err2 := NewHTTPError("https://b.com", 500)

		// Same code (CodeHTTPError)
		assert.ErrorIs(t, err1, err2)
	})

	t.Run("network vs install does not match", func(t *testing.T) {
		t.Parallel()

		netErr := NewNetworkError("https://example.com", nil)
		installErr := NewInstallError("tool/x", "install", "failed", nil)

		assert.NotErrorIs(t, netErr, installErr)
	})
}

func TestErrorsAs(t *testing.T) {
	t.Parallel()

	// Test that errors.As works correctly with our error types
	t.Run("DependencyError", func(t *testing.T) {
		t.Parallel()

		var err error = NewCycleError([]string{"A", "B", "A"})

		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.True(t, depErr.IsCycle())
	})

	t.Run("ConfigError", func(t *testing.T) {
		t.Parallel()

		var err error = NewConfigError("test", nil)

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, CodeConfigParse, configErr.Base.Code)
	})

	t.Run("wrapped error", func(t *testing.T) {
		t.Parallel()

		original := NewInstallError("tool/gh", "install", "failed", nil)
		wrapped := Wrap(CategoryInstall, "operation failed", original)

		var installErr *InstallError
		require.ErrorAs(t, wrapped, &installErr)
		assert.Equal(t, "tool/gh", installErr.Resource)
	})
}
