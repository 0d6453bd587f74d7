package cmd

import "os"

// currentUID and currentGID own every inode the adapter reports, matching
// the invoking user rather than a fixed owner baked into the image.
func currentUID() uint32 { return uint32(os.Getuid()) }
func currentGID() uint32 { return uint32(os.Getgid()) }
