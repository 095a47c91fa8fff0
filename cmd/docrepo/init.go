package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/docrepo/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/docrepo.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new docrepo site file",
		Long: `Initialize creates a new .docrepo site file in the current directory.

The generated file includes:
- Defaults applied to every site
- Commented examples for per-site cookies, headers and depth
- URL patterns to ignore or follow

Examples:
  # Create .docrepo in current directory
  docrepo init

  # Create the site file at a specific path
  docrepo init -o mysites.yaml

  # Force overwrite existing file
  docrepo init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the site file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing site file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("site file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/docrepo.yaml")
	if err != nil {
		return fmt.Errorf("failed to read site file template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold cookies and tokens.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write site file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created site file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(out, "  - Authentication cookies and headers")
	fmt.Fprintln(out, "  - Crawl depth per site")
	fmt.Fprintln(out, "  - URL patterns to ignore or follow")

	return nil
}
