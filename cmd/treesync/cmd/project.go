package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/app"
)

var projectJSON bool

var projectCmd = &cobra.Command{
	Use:   "project PATH...",
	Short: "Show how project rules apply to paths",
	Long:  "For each path: the owning project, its project-relative name, whether changes to it are filtered out, and whether it is searchable.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProject,
}

func init() {
	projectCmd.Flags().BoolVar(&projectJSON, "json", false, "Print as JSON")
}

func runProject(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return err
	}

	infos := make([]app.PathInfo, 0, len(args))
	for _, p := range args {
		infos = append(infos, engine.Describe(p))
	}
	if projectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	for _, info := range infos {
		fmt.Print(formatPathInfo(info))
	}
	return nil
}
