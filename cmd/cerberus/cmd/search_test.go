package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestProject builds an offline index in a fresh temp project and
// chdirs into it for the duration of the test.
func withTestProject(t *testing.T) string {
	t.Helper()
	testDir := t.TempDir()
	createTestProject(t, testDir)

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(testDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	build := NewRootCmd()
	build.SetArgs([]string{"build", "--offline"})
	require.NoError(t, build.Execute())

	return testDir
}

func TestSearchCmd_FindsIndexedSymbol(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"search", "greeting", "--offline", "--mode", "keyword"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sample.go")
}

func TestSearchCmd_JSONFormat(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"search", "Greet", "--offline", "--format", "json"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"Symbol\"")
}

func TestSearchCmd_WithoutIndex_ReturnsError(t *testing.T) {
	testDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(testDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"search", "anything"})

	err := cmd.Execute()

	assert.Error(t, err)
}
