package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/app"
	"github.com/corey/treesync/internal/domain/validator"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the treesync daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long:  "Watches the project root (and TREESYNC_ROOTS) until interrupted or stopped with 'treesync daemon stop'.",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sockPath := socket.SocketPath(cfg.ProjectRoot)

	// Check if already running
	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	paths := app.NewPaths(cfg.ProjectRoot)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}
	logger, logFile, err := app.OpenDaemonLog(paths, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close()
	cfg.Logger = logger
	cfg.Sink = func(r validator.Result) {
		if verbose {
			fmt.Print(formatResult(r))
		}
	}

	a, err := app.New(cfg)
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("init: %s", diagnoseDBLock(cfg.ProjectRoot))
		}
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		logger.Warn("write pid file", "error", err)
	}
	defer paths.CleanEphemeral()

	fmt.Printf("⚡ treesync daemon started at %s\n", sockPath)
	if a.WebServer.Port() != 0 {
		fmt.Printf("  Dashboard:  %s\n", a.WebServer.URL())
	}
	logger.Info("daemon started", "socket", sockPath, "roots", a.Roots())

	// Wait for a signal or a shutdown request over the socket.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	logger.Info("daemon stopping")
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	client := socket.NewClient(socket.SocketPath(root))

	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println("⚡ daemon stopped")
	return nil
}
