package app

import (
	"os"
	"path/filepath"
)

// StateDirName is the per-project state directory.
const StateDirName = ".treesync"

// Paths holds all resolved filesystem paths for the .treesync/ project directory.
// All fields are pre-computed strings.
type Paths struct {
	Root    string // .treesync/
	DB      string // .treesync/treesync.db
	EnvFile string // .treesync/treesync.env

	LogDir    string // .treesync/log/
	DaemonLog string // .treesync/log/daemon.log

	RunDir   string // .treesync/run/
	PIDFile  string // .treesync/run/daemon.pid
	PortFile string // .treesync/run/http.port
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, StateDirName)
	return &Paths{
		Root:    root,
		DB:      filepath.Join(root, "treesync.db"),
		EnvFile: filepath.Join(root, "treesync.env"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		PortFile: filepath.Join(root, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories under .treesync/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files (PID file and port file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
