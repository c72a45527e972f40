package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/webtags/native-host/internal/config"
	"github.com/webtags/native-host/internal/vcs"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bookmark repository state",
	Long: `Print the state of the bookmark repository under the configured base
directory: whether it exists, whether the working tree is clean, the
configured remote, and the last commit.`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().String("repo", "", "Repository path (default: base directory)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	path, _ := cmd.Flags().GetString("repo")
	if path == "" {
		path = cfg.BaseDir
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		fmt.Printf("No repository at %s\n", path)
		return
	}

	repo, err := vcs.Open(path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening repository: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Repository:  %s\n", repo.Path())

	clean, err := repo.IsClean()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Clean:       %v\n", clean)

	if url, err := repo.RemoteURL(vcs.DefaultRemote); err == nil {
		fmt.Printf("Remote:      %s\n", url)
	} else {
		fmt.Println("Remote:      (none)")
	}

	if message, err := repo.LastCommitMessage(); err == nil {
		fmt.Printf("Last commit: %s\n", message)
	}
}
