// Package ir defines the value types shared by every crust package:
// node identities, patch operations, and patch batches.
//
// ir imports nothing internal. All other packages build on it.
//
// Key constraints:
//   - NodeID is the only key type; ordering is numeric ascending
//   - PatchOp is a closed set: SetText, SetAttr, Insert, Remove
//   - A PatchBatch is ordered and must be applied in order
//   - Fingerprints are computed over canonical JSON (RFC 8785) so the same
//     batch hashes identically on every run
package ir
