// Package manifest defines the durable per-task document that the
// cycle controller threads through every skill execution, along with
// its storage and the workspace-validity token.
//
// Core types:
//   - Manifest: task identity, git context, description, accumulated
//     context references, and resource bounds
//   - Store / FileStore: load and atomically save manifests
//   - TokenSigner: signed tokens that make workspace resumability an
//     explicit manifest property instead of a filesystem probe
//
// The manifest round-trips losslessly: context keys written by other
// tools are preserved via the inline Extra map.
package manifest
