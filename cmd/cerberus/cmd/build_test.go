package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestProject(t *testing.T, dir string) {
	t.Helper()
	src := `package sample

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello, " + name
}

func caller() string {
	return Greet("world")
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(src), 0644))
}

func TestBuildCmd_CreatesDataDirectory(t *testing.T) {
	testDir := t.TempDir()
	createTestProject(t, testDir)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"build", testDir, "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(testDir, ".cerberus"))
	assert.FileExists(t, filepath.Join(testDir, ".cerberus", "index.db"))
}

func TestBuildCmd_RefusesToRebuildWithoutForce(t *testing.T) {
	testDir := t.TempDir()
	createTestProject(t, testDir)

	first := NewRootCmd()
	first.SetArgs([]string{"build", testDir, "--offline"})
	require.NoError(t, first.Execute())

	second := NewRootCmd()
	buf := new(bytes.Buffer)
	second.SetOut(buf)
	second.SetErr(buf)
	second.SetArgs([]string{"build", testDir, "--offline"})

	err := second.Execute()

	assert.Error(t, err)
}

func TestBuildCmd_ForceRebuildsExistingIndex(t *testing.T) {
	testDir := t.TempDir()
	createTestProject(t, testDir)

	first := NewRootCmd()
	first.SetArgs([]string{"build", testDir, "--offline"})
	require.NoError(t, first.Execute())

	second := NewRootCmd()
	second.SetArgs([]string{"build", testDir, "--offline", "--force"})

	require.NoError(t, second.Execute())
}
