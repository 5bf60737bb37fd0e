// Package boundary models caller-owned memory that lives on the far side of a
// trust boundary. The mailbox never dereferences caller memory directly: it
// checks access with Readable/Writable and moves bytes with CopyOut/CopyIn,
// both of which may fail independently of the earlier checks.
package boundary
