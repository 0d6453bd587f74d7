// Command stripe-slinger mounts a RAID-backed volume as a FUSE filesystem.
package main

import "github.com/Jan-Chojnacki/Stripe-Slinger/cmd"

func main() {
	cmd.Execute()
}
