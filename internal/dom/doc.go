// Package dom is an in-memory document that applies patch batches.
//
// It is the reference consumer of engine output: ops are applied strictly
// in batch order, and the resulting tree can be serialized to canonical
// JSON and fingerprinted so two hosts applying the same batches can
// compare results without shipping the whole document.
//
// Application rules:
//   - SetText and SetAttr create an unknown node as a detached root.
//   - Insert creates missing endpoints, detaches the child from its previous
//     parent and appends it to the new parent. Inserting a node under itself
//     or one of its descendants fails with ErrCycle.
//   - Remove detaches a node and deletes it with all of its descendants.
//     Removing an unknown node does nothing.
package dom
