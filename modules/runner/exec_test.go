package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCompiler(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("g++"); err != nil {
		t.Skip("g++ not available")
	}
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	m := &Module{timeout: defaultTimeout}

	_, err := m.Execute(context.Background(), Request{Code: "print(1)", Language: "python"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestExecuteLanguageAliases(t *testing.T) {
	assert.True(t, supportedLanguage("cpp"))
	assert.True(t, supportedLanguage("CPP"))
	assert.True(t, supportedLanguage("c++"))
	assert.True(t, supportedLanguage("C++"))
	assert.False(t, supportedLanguage("c"))
	assert.False(t, supportedLanguage(""))
}

func TestExecuteHelloWorld(t *testing.T) {
	requireCompiler(t)
	m := &Module{timeout: defaultTimeout}

	result, err := m.Execute(context.Background(), Request{
		Code:     "#include <iostream>\nint main() { std::cout << \"Hello\"; return 0; }",
		Language: "cpp",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "Hello", result.Stdout)
	assert.Empty(t, result.Stderr)
}

func TestExecuteReadsStdin(t *testing.T) {
	requireCompiler(t)
	m := &Module{timeout: defaultTimeout}

	result, err := m.Execute(context.Background(), Request{
		Code:     "#include <iostream>\nint main() { int a, b; std::cin >> a >> b; std::cout << a + b; }",
		Language: "c++",
		Stdin:    "2 3",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "5", result.Stdout)
}

func TestExecuteCompileError(t *testing.T) {
	requireCompiler(t)
	m := &Module{timeout: defaultTimeout}

	result, err := m.Execute(context.Background(), Request{
		Code:     "int main() { this does not compile }",
		Language: "cpp",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.NotEmpty(t, result.Stderr)
}

func TestExecuteNonZeroExit(t *testing.T) {
	requireCompiler(t)
	m := &Module{timeout: defaultTimeout}

	result, err := m.Execute(context.Background(), Request{
		Code:     "int main() { return 3; }",
		Language: "cpp",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecuteTimeout(t *testing.T) {
	requireCompiler(t)
	m := &Module{timeout: 500 * time.Millisecond}

	result, err := m.Execute(context.Background(), Request{
		Code:     "int main() { for (;;) {} }",
		Language: "cpp",
	})
	require.NoError(t, err)
	assert.Equal(t, timeoutExitCode, result.ExitCode)
	assert.Equal(t, "Execution timed out", result.Stderr)
}
