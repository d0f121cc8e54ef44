//go:build !voxeldebug

package voxel

// debugContracts makes lifecycle violations panic. Build with
// -tags=voxeldebug to enable.
const debugContracts = false
