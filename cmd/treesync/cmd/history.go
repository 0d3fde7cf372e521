package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/adapters/bbolt"
	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/app"
	"github.com/corey/treesync/internal/ports"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent validation results",
	Long:  "Lists journaled batches newest first. Reads from the daemon when it is running, otherwise from the database.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entries, err := loadHistory(historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		if entries == nil {
			entries = []*ports.JournalEntry{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	fmt.Print(formatHistory(entries))
	return nil
}

func loadHistory(limit int) ([]*ports.JournalEntry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socket.SocketPath(cfg.ProjectRoot))
	if client.Ping() {
		res, err := client.History(limit)
		if err != nil {
			return nil, err
		}
		return res.Entries, nil
	}

	// Daemon not running: read bbolt directly.
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("cannot read history: %s", diagnoseDBLock(cfg.ProjectRoot))
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	return app.MergeHistory(store, append([]string{cfg.ProjectRoot}, cfg.ExtraRoots...), limit)
}
