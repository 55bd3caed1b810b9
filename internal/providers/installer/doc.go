// Package installer turns a downloaded artifact into an installed app.
//
// Archives (zip, tar, tar.gz, tar.zst) are extracted into a staging
// directory inside the install root, promoted into place, and deleted.
// Extraction runs on its own goroutine while the caller receives synthetic
// progress that approaches but never reaches 95 percent. After placement a
// depth-bounded search picks the launchable executable.
//
// Executables and unrecognized artifacts are left where the transfer put
// them and become the final path directly.
package installer
