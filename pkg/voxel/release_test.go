//go:build !voxeldebug

package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/voxelizer/pkg/math"
)

func TestReleaseMisuseIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := NewGrid(2, 2, 2, 1, math.Vec3{})
	g.SetLogger(zap.New(core))

	g.Release()
	require.True(t, g.Released())
	assert.Nil(t, g.Cells())

	_, ok := g.At(0)
	assert.False(t, ok)
	require.ErrorIs(t, g.Set(0, true, math.Vec2{}), ErrGridReleased)

	assert.NotPanics(t, g.Release)
	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, "Release", logs.All()[3].ContextMap()["op"])

	// Metadata survives release.
	assert.Equal(t, 8, g.Len())
}
