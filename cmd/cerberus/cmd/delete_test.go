package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteCmd_RemovesSymbolSpan(t *testing.T) {
	testDir := withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"delete", "sample.go", "caller", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	updated, readErr := os.ReadFile(filepath.Join(testDir, "sample.go"))
	require.NoError(t, readErr)
	assert.NotContains(t, string(updated), "func caller()")
}
