package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/app"
	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

var (
	validateKind string
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [KIND:]PATH...",
	Short: "Classify a batch of file changes",
	Long: `Runs a batch of changes through the project rules and prints the update it calls for.

Each argument is PATH (kind from --kind) or KIND:PATH, where KIND is created,
deleted or changed. With no arguments, or "-", changes are read from stdin one
per line. Uses the running daemon when there is one, otherwise validates
in-process.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateKind, "kind", "k", "changed", "Default change kind: created, deleted or changed")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	def, err := ports.ParseChangeKind(validateKind)
	if err != nil {
		return err
	}
	entries, err := parseEntries(args, cmd.InOrStdin(), def)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := validateEntries(entries)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if validateJSON {
		data, err := validator.MarshalResult(result)
		if err != nil {
			return err
		}
		var pretty json.RawMessage = data
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Print(formatResult(result))
	fmt.Fprintf(os.Stderr, "%s%d changes │ %s%s\n", colorGray, len(entries), elapsed.Round(time.Microsecond), colorReset)
	return nil
}

// validateEntries asks the daemon when one is running and otherwise builds
// the validation engine in-process. In-process results are not journaled.
func validateEntries(entries []ports.PathChangeEntry) (validator.Result, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socket.SocketPath(cfg.ProjectRoot))
	if client.Ping() {
		return client.Validate(entries)
	}

	engine, err := app.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return engine.Validator.ProcessChanges(entries), nil
}
