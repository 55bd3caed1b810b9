// Package uninstall removes an installed app's directory tree.
//
// Removal is best effort against file locks: processes running from the
// install directory are terminated first, the coordinator waits for handles
// to settle, and os.RemoveAll is retried on a constant backoff before a
// platform removal command is tried as a last resort.
package uninstall
