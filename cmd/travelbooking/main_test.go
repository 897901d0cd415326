package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareClosesClientOnFailedStep(t *testing.T) {
	closed := 0
	ran := 0
	boom := errors.New("index build failed")

	err := prepare(func() { closed++ },
		func() error { ran++; return nil },
		func() error { ran++; return boom },
		func() error { ran++; return nil },
	)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, ran)
	assert.Equal(t, 1, closed)
}

func TestPrepareKeepsClientOpenOnSuccess(t *testing.T) {
	closed := false
	require.NoError(t, prepare(func() { closed = true }, func() error { return nil }))
	assert.False(t, closed)
}
