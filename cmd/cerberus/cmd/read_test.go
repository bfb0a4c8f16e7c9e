package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCmd_ParsesRangeAndPrintsContent(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"read", "sample.go:1-3", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "package sample")
}

func TestReadCmd_SingleLine(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"read", "sample.go:1", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "package sample")
}

func TestParseRangeArg(t *testing.T) {
	file, start, end, err := parseRangeArg("internal/build/build.go:10-20")
	require.NoError(t, err)
	assert.Equal(t, "internal/build/build.go", file)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	file, start, end, err = parseRangeArg("internal/build/build.go:10")
	require.NoError(t, err)
	assert.Equal(t, "internal/build/build.go", file)
	assert.Equal(t, 10, start)
	assert.Equal(t, 10, end)

	_, _, _, err = parseRangeArg("no-colon-here")
	assert.Error(t, err)
}
