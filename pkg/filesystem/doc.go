// Package filesystem provides the host filesystem operations used by the
// notification engine: opening watched directories, identifying filesystem
// objects by device and inode, and enumerating subdirectories.
package filesystem
