//go:build voxeldebug

package voxel

const debugContracts = true
