package cmd

import (
	"errors"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/treesync/internal/adapters/socket"
)

// isDBLockError reports whether err is a bbolt lock timeout.
func isDBLockError(err error) bool {
	return errors.Is(err, bolt.ErrTimeout)
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when a bbolt open fails due to lock contention.
func diagnoseDBLock(root string) string {
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "database is locked by the running daemon\n" +
			"  → stop it first:  treesync daemon stop\n" +
			"  → then retry your command"
	}
	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("database is locked — daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'treesync daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}
	return "database is locked by another process\n" +
		"  → find the process:  ps aux | grep 'treesync'\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}
