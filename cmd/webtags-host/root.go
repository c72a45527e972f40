package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "webtags-host",
	Short: "Native messaging host for the WebTags browser extension",
	Long: `webtags-host persists WebTags bookmarks and tags into a local git
repository and synchronizes it with a GitHub remote.

The browser launches it with "serve" and talks to it over stdin/stdout
using the native messaging protocol. The other subcommands are for
inspecting the host from a terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
}
