package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/adapters/web"
	"github.com/corey/treesync/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved configuration, socket path, and daemon status. No daemon required.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sockPath := socket.SocketPath(cfg.ProjectRoot)

	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := fmt.Sprintf("%s✗ not running%s", colorYellow, colorReset)
	if daemonRunning {
		daemonStatus = fmt.Sprintf("%s✓ running%s", colorGreen, colorReset)
	}
	comparison := "case-sensitive"
	if cfg.CaseInsensitive {
		comparison = "case-insensitive"
	}

	fmt.Printf("%s⚡ treesync config%s\n", colorBold, colorReset)
	fmt.Printf("  Project:    %s\n", filepath.Base(cfg.ProjectRoot))
	fmt.Printf("  Root:       %s\n", cfg.ProjectRoot)
	if len(cfg.ExtraRoots) > 0 {
		fmt.Printf("  Roots:      %s\n", strings.Join(cfg.ExtraRoots, ", "))
	}
	fmt.Printf("  DB:         %s\n", cfg.DBPath)
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Debounce:   %s\n", cfg.Debounce)
	fmt.Printf("  Paths:      %s\n", comparison)
	fmt.Printf("  Workers:    %d\n", cfg.Workers)
	fmt.Printf("  History:    %d entries\n", cfg.HistorySize)
	fmt.Printf("  Log level:  %s\n", cfg.LogLevel)
	fmt.Printf("  Daemon:     %s\n", daemonStatus)

	if daemonRunning {
		if port, ok := web.ReadPortFile(app.NewPaths(cfg.ProjectRoot).PortFile); ok {
			fmt.Printf("  Dashboard:  http://127.0.0.1:%d\n", port)
		}
	}
	return nil
}
