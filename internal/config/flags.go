package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command-line overrides for the environment.
type Flags struct {
	EnvFile string
	Port    string
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.EnvFile, "env-file", "", "path to a .env file (default ./.env when present)")
	fs.StringVarP(&f.Port, "port", "p", "", "HTTP listen port (overrides PORT)")
}

// Apply copies the flags that were set on fs into cfg.
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("port") {
		cfg.Port = f.Port
	}
}
