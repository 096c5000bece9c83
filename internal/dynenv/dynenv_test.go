package dynenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/operation"
)

func TestParseShellType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    ShellType
		wantErr bool
	}{
		{in: "", want: ShellPosix},
		{in: "bash", want: ShellPosix},
		{in: "zsh", want: ShellPosix},
		{in: "sh", want: ShellPosix},
		{in: "posix", want: ShellPosix},
		{in: "fish", want: ShellFish},
		{in: "powershell", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseShellType(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuild_CollapsesRepeatedSet(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{
		{Op: operation.EnvOpSet, Name: "FOO", Value: "1"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/a/bin"},
		{Op: operation.EnvOpSet, Name: "FOO", Value: "2"},
	}

	built := Build(deltas)

	require.Len(t, built, 2)
	assert.Equal(t, "2", built[0].Value, "FOO keeps its first slot but the last value")
	assert.Equal(t, operation.EnvOpPrepend, built[1].Op)
}

func TestBuild_KeepsEveryPrepend(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/a/bin"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/b/bin"},
	}

	built := Build(deltas)

	require.Len(t, built, 2)
	assert.Equal(t, "/a/bin", built[0].Value)
	assert.Equal(t, "/b/bin", built[1].Value)
}

func TestFingerprint_StableForEqualInput(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{{Op: operation.EnvOpSet, Name: "FOO", Value: "1"}}

	a := FingerprintHex(deltas)
	b := FingerprintHex(deltas)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex-encoded sha256 is 64 characters")
}

func TestFingerprint_DiffersOnValueChange(t *testing.T) {
	t.Parallel()
	a := FingerprintHex([]operation.EnvDelta{{Op: operation.EnvOpSet, Name: "FOO", Value: "1"}})
	b := FingerprintHex([]operation.EnvDelta{{Op: operation.EnvOpSet, Name: "FOO", Value: "2"}})

	assert.NotEqual(t, a, b)
}

func TestFingerprint_DiffersOnOrder(t *testing.T) {
	t.Parallel()
	a := FingerprintHex([]operation.EnvDelta{
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/a"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/b"},
	})
	b := FingerprintHex([]operation.EnvDelta{
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/b"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/a"},
	})

	assert.NotEqual(t, a, b, "prepend order affects the realized PATH, so it must affect the fingerprint")
}

func TestHasChanged(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{{Op: operation.EnvOpSet, Name: "FOO", Value: "1"}}

	assert.True(t, HasChanged(deltas, ""), "no prior fingerprint always counts as changed")
	assert.False(t, HasChanged(deltas, FingerprintHex(deltas)))
	assert.True(t, HasChanged(deltas, "deadbeef"))
}

func TestRenderHook_Posix(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{
		{Op: operation.EnvOpSet, Name: "FOO", Value: "bar"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/opt/tool/bin"},
		{Op: operation.EnvOpUnset, Name: "BAZ"},
	}

	out := RenderHook(ShellPosix, deltas)

	assert.Contains(t, out, `export FOO="bar"`)
	assert.Contains(t, out, `export PATH="/opt/tool/bin:$PATH"`)
	assert.Contains(t, out, "unset BAZ")
	assert.Contains(t, out, "export OMNI_ENV_FINGERPRINT=")
}

func TestRenderHook_Fish(t *testing.T) {
	t.Parallel()
	deltas := []operation.EnvDelta{
		{Op: operation.EnvOpSet, Name: "FOO", Value: "bar"},
		{Op: operation.EnvOpPrepend, Name: "PATH", Value: "/opt/tool/bin"},
	}

	out := RenderHook(ShellFish, deltas)

	assert.Contains(t, out, `set -gx FOO "bar"`)
	assert.Contains(t, out, `fish_add_path -p "/opt/tool/bin"`)
	assert.Contains(t, out, "set -gx OMNI_ENV_FINGERPRINT")
}

func TestRenderHook_EmptyDeltas_StillExportsFingerprint(t *testing.T) {
	t.Parallel()
	out := RenderHook(ShellPosix, nil)
	assert.Contains(t, out, "export OMNI_ENV_FINGERPRINT=")
}
