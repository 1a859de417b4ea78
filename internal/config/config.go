package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/rename"
)

type Config struct {
	// DatabasePath holds the SQLite library database.
	DatabasePath string `toml:"database_path"`
	// PDFDir is where imported PDFs are copied.
	PDFDir string `toml:"pdf_dir"`
	// MetaPath holds the imported-file tracking database.
	MetaPath string `toml:"meta_path"`
	// SocketPath is the Unix socket the daemon listens on.
	SocketPath string `toml:"socket_path"`
	// ListenAddr enables the HTTP API when non-empty.
	ListenAddr string `toml:"listen_addr"`
	// WatchOnStart starts watch-folder monitoring with the daemon.
	WatchOnStart bool `toml:"watch_on_start"`
	// ScanOnStart imports PDFs already present in watch folders at startup.
	ScanOnStart bool `toml:"scan_on_start"`

	Rename rename.Config `toml:"rename"`
}

func Default() *Config {
	return &Config{
		DatabasePath: filepath.Join(defaultDataDir(), "library.db"),
		PDFDir:       filepath.Join(defaultDataDir(), "pdfs"),
		MetaPath:     filepath.Join(defaultDataDir(), "meta.db"),
		SocketPath:   defaultSocketPath(),
		ListenAddr:   "",
		WatchOnStart: true,
		ScanOnStart:  true,
		Rename:       rename.DefaultConfig(),
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			log.Warnf("failed to create default config at %s: %v", path, err)
		} else {
			log.Infof("created default config at %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	f.WriteString("# Paperdex Configuration\n\n")

	return toml.NewEncoder(f).Encode(c)
}

func defaultDataDir() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	} else {
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(base, "paperdex")
}

func defaultSocketPath() string {
	if runtime.GOOS != "windows" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "paperdex.sock")
		}
	}
	return filepath.Join(os.TempDir(), "paperdex.sock")
}

func GetDefaultConfigPath() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "paperdex", "config.toml")
}
