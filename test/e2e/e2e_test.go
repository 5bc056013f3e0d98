package e2e_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI runs the castor binary from source with the given stdin.
func runCLI(t *testing.T, stdin string, env []string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "../.."}, args...)...)
	cmd.Env = append(os.Environ(), env...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestEndToEnd_SampleDocument infers the schema of the sample document and
// compares it with the checked-in expectation.
func TestEndToEnd_SampleDocument(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "user.schema.json")

	_, stderr, err := runCLI(t, "", nil, "infer", "-i", "../../testdata/samples/user.json", "-o", outputFile)
	require.NoError(t, err, "CLI command failed: %s", stderr)

	got, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	want, err := os.ReadFile("../../testdata/samples/user.schema.json")
	require.NoError(t, err)

	assert.Equal(t, string(want), string(got))
}

// TestEndToEnd_DefaultCommand checks that infer runs when no command is named.
func TestEndToEnd_DefaultCommand(t *testing.T) {
	stdout, stderr, err := runCLI(t, `{"id": "`+uuid.NewString()+`"}`, nil)
	require.NoError(t, err, "CLI command failed: %s", stderr)

	assert.JSONEq(t, `{"type":"object","properties":{"id":{"type":"str","format":"uuid"}}}`, stdout)
}

// TestEndToEnd_TopLevelArrays checks that every element of a root array is
// inferred on its own while nested arrays are sampled.
func TestEndToEnd_TopLevelArrays(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scalars",
			input: `[1, 2.5, "x", true, null]`,
			want:  `["int", "float", "str", "bool", "null"]`,
		},
		{
			name:  "objects",
			input: `[{"a": 1}, {"b": [1, "two"]}]`,
			want: `[
				{"type":"object","properties":{"a":{"type":"int"}}},
				{"type":"object","properties":{"b":{"type":"array","items":{"type":"int"}}}}
			]`,
		},
		{
			name:  "nested root arrays",
			input: `[[1, "a"], []]`,
			want:  `[["int", "str"], []]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := runCLI(t, tt.input, nil, "infer")
			require.NoError(t, err, "CLI command failed: %s", stderr)
			assert.JSONEq(t, tt.want, stdout)
		})
	}
}

// TestEndToEnd_KeyOrderIsPreserved checks that properties keep document order.
func TestEndToEnd_KeyOrderIsPreserved(t *testing.T) {
	stdout, stderr, err := runCLI(t, `{"zeta": 1, "alpha": 2, "mid": 3}`, nil, "infer")
	require.NoError(t, err, "CLI command failed: %s", stderr)

	z := strings.Index(stdout, `"zeta"`)
	a := strings.Index(stdout, `"alpha"`)
	m := strings.Index(stdout, `"mid"`)
	require.True(t, z >= 0 && a >= 0 && m >= 0, stdout)
	assert.True(t, z < a && a < m, "keys out of order:\n%s", stdout)
}

// TestEndToEnd_EdgeCases covers input the CLI must reject.
func TestEndToEnd_EdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		args       []string
		wantStderr string
	}{
		{
			name:       "invalid json",
			input:      `{"a": 1,}`,
			wantStderr: "JSON parsing error",
		},
		{
			name:       "multiple documents",
			input:      `{"a": 1} {"b": 2}`,
			wantStderr: "multiple JSON values",
		},
		{
			name:       "missing file",
			args:       []string{"-i", "does-not-exist.json"},
			wantStderr: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, tt.input, nil, append([]string{"infer"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.wantStderr)
			assert.Contains(t, stderr, "castor --help")
		})
	}
}

// TestEndToEnd_InvalidConfigFromEnvironment checks that environment values go
// through the same validation as the config file.
func TestEndToEnd_InvalidConfigFromEnvironment(t *testing.T) {
	_, stderr, err := runCLI(t, `{}`, []string{"CASTOR_LOG_LEVEL=loud"}, "infer")
	require.Error(t, err)
	assert.Contains(t, stderr, "Configuration error")
}

// TestEndToEnd_ProxyWithoutTarget checks that the proxy refuses to start
// without an upstream.
func TestEndToEnd_ProxyWithoutTarget(t *testing.T) {
	_, stderr, err := runCLI(t, "", []string{"CASTOR_TARGET="}, "proxy", "--listen", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, stderr, "Proxy error: no upstream target")
}
