package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides bound to a flag set.
type Flags struct {
	ConfigPath string
	Debug      bool
	NavmeshDir string
	HashStore  string
	BlockDir   string
	LogFile    string
}

// BindFlags registers the config flags on fs. Call it while building
// the command, then pass the result to Load after parsing.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.NavmeshDir, "out", "", "Navmesh output directory")
	fs.StringVar(&f.HashStore, "hash-store", "", "Build hash store directory or URL")
	fs.StringVar(&f.BlockDir, "blocks", "", "Map block export directory")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.NavmeshDir != "" {
		cfg.Output.NavmeshDir = f.NavmeshDir
	}
	if f.HashStore != "" {
		cfg.Output.HashStore = f.HashStore
	}
	if f.BlockDir != "" {
		cfg.Data.BlockDir = f.BlockDir
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
