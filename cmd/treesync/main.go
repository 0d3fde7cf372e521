// treesync watches source trees and classifies raw file system notifications
// into the update a code index needs: nothing, a rescan, content refreshes, or
// a structural update.
package main

import (
	"os"

	"github.com/corey/treesync/cmd/treesync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
