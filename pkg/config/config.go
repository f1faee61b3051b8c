package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DaemonConfig defines how the automation daemon process is launched.
type DaemonConfig struct {
	Command       string   `toml:"command"`
	Args          []string `toml:"args"`
	StartupWaitMS int      `toml:"startupWaitMS"`
}

// RPCConfig defines request/response settings against the daemon.
type RPCConfig struct {
	CallTimeoutSec int `toml:"callTimeoutSec"`
}

// WorkflowConfig defines defaults for automation runs.
type WorkflowConfig struct {
	Query         string  `toml:"query"`
	SettleWaitSec int     `toml:"settleWaitSec"`
	FallbackX     float64 `toml:"fallbackX"`
	FallbackY     float64 `toml:"fallbackY"`
}

// KeywordConfig overrides the content classifier keyword sets.
type KeywordConfig struct {
	Weather  []string `toml:"weather"`
	Location []string `toml:"location"`
}

// StorageConfig defines SQLite run-history options.
type StorageConfig struct {
	DBPath string `toml:"dbPath"`
}

// VCSRemote config.
type VCSRemote struct {
	URL           string `toml:"url"`
	CredentialRef string `toml:"credentialRef"`
}

// VCSConfig defines the report archive Git options.
type VCSConfig struct {
	Enabled bool      `toml:"enabled"`
	Branch  string    `toml:"branch"`
	Remote  VCSRemote `toml:"remote"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
	FileBackups int    `toml:"fileMaxBackups"`
}

// ProfileConfig aggregates client configuration for a profile.
type ProfileConfig struct {
	ProfileName string         `toml:"profileName"`
	Daemon      DaemonConfig   `toml:"daemon"`
	RPC         RPCConfig      `toml:"rpc"`
	Workflow    WorkflowConfig `toml:"workflow"`
	Keywords    KeywordConfig  `toml:"keywords"`
	Storage     StorageConfig  `toml:"storage"`
	VCS         VCSConfig      `toml:"vcs"`
	Logging     LoggingConfig  `toml:"logging"`
}

// DefaultProfile returns a config with workable defaults for a new profile.
func DefaultProfile(name string) *ProfileConfig {
	return &ProfileConfig{
		ProfileName: name,
		Daemon: DaemonConfig{
			Command:       "appmcpd",
			Args:          []string{"--stdio"},
			StartupWaitMS: 2000,
		},
		RPC:      RPCConfig{CallTimeoutSec: 15},
		Workflow: WorkflowConfig{Query: "Tokyo", SettleWaitSec: 3, FallbackX: 400, FallbackY: 200},
		Storage:  StorageConfig{DBPath: "history.db"},
		VCS:      VCSConfig{Branch: "main"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads config.toml from the provided path.
func Load(path string) (*ProfileConfig, error) {
	var cfg ProfileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProfile reads config.toml from a profile directory.
func LoadProfile(profileDir string) (*ProfileConfig, error) {
	return Load(filepath.Join(profileDir, "config.toml"))
}

// Save writes cfg as TOML to path.
func Save(path string, cfg *ProfileConfig) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

// ResolvePath resolves rel against the profile directory unless it is absolute.
func ResolvePath(profileDir, rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(profileDir, rel)
}

func (cfg *ProfileConfig) validate() error {
	if cfg.ProfileName == "" {
		return fmt.Errorf("profileName required")
	}
	if cfg.Daemon.Command == "" {
		return fmt.Errorf("daemon.command required")
	}
	if cfg.RPC.CallTimeoutSec <= 0 {
		cfg.RPC.CallTimeoutSec = 15
	}
	if cfg.Workflow.SettleWaitSec <= 0 {
		cfg.Workflow.SettleWaitSec = 3
	}
	if cfg.Workflow.FallbackX == 0 && cfg.Workflow.FallbackY == 0 {
		cfg.Workflow.FallbackX = 400
		cfg.Workflow.FallbackY = 200
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "history.db"
	}
	if cfg.VCS.Branch == "" {
		cfg.VCS.Branch = "main"
	}
	return nil
}
