// Package compute provides the two parallel stages of an N-body iteration
// and the backends that run them.
//
// Every backend implements [Backend]:
//
//   - BodyForce: tiled direct summation, committing dt*F into each velocity
//   - IntegratePositions: p += v*dt for every body
//
// Both calls return only after the stage has fully drained, so a return from
// one stage is the global barrier before the next one.
//
// # Decomposition
//
// The bodies are split across cooperative groups described by a [Layout].
// A group owns GroupSize units; Fanout units cooperate on one body, each
// summing a strided share of every tile:
//
//	layout := compute.Layout{TileWidth: 64, GroupSize: 512, Fanout: 8}
//	backend := compute.NewCPUBackend(layout)
//	backend.BodyForce(state, 0.01)
//	backend.IntegratePositions(state, 0.01)
//
// # GPU Acceleration
//
// Build with CUDA support:
//
//	./build_cuda.sh
//
// The OpenGL backend (package opengl) needs a current GL 4.3 context, which
// the gui command provides when raylib is built with the opengl43 tag.
package compute
