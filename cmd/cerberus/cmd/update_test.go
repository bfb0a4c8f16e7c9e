package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCmd_ReconcilesAddedFile(t *testing.T) {
	testDir := withTestProject(t)

	extra := `package sample

func Farewell(name string) string {
	return "bye, " + name
}
`
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "extra.go"), []byte(extra), 0644))

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"update", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Updated index")

	find := NewRootCmd()
	findBuf := new(bytes.Buffer)
	find.SetOut(findBuf)
	find.SetArgs([]string{"find", "Farewell", "--offline"})
	require.NoError(t, find.Execute())
	assert.Contains(t, findBuf.String(), "extra.go")
}

func TestUpdateCmd_TargetedFileList(t *testing.T) {
	testDir := withTestProject(t)

	extra := `package sample

func Farewell(name string) string {
	return "bye, " + name
}
`
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "extra.go"), []byte(extra), 0644))

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"update", "--offline", "--file", "extra.go"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "indexed 1")
}
