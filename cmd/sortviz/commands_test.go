package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--algorithm", "mergesort", "--values", "3, 1, 2")
	require.NoError(t, err)

	var res struct {
		Algorithm   string      `json:"algorithm"`
		Frames      [][]float64 `json:"frames"`
		Entropy     []int64     `json:"entropy"`
		Annotations []string    `json:"annotations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "mergesort", res.Algorithm)
	assert.Equal(t, [][]float64{{3, 1, 2}, {1, 2, 3}}, res.Frames)
	assert.Equal(t, []int64{2, 0}, res.Entropy)
	assert.Equal(t, "1 dropped at 0, 2 dropped at 1, 3 dropped at 2", res.Annotations[1])
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "--algorithm", "bogosort", "--values", "1,2")
	assert.True(t, errors.Is(err, xerrors.ErrUnknownAlgorithm), "got %v", err)

	_, err = execute(t, "run", "--values", "1,x")
	assert.True(t, errors.Is(err, xerrors.ErrMalformedValues), "got %v", err)

	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestInversionsCommand(t *testing.T) {
	for _, args := range [][]string{
		{"inversions", "--values", "10,9,8,7,6,5,4,3,2,1"},
		{"inversions", "--values", "10,9,8,7,6,5,4,3,2,1", "--fast"},
	} {
		out, err := execute(t, args...)
		require.NoError(t, err)
		assert.Equal(t, "45\n", out)
	}
}
