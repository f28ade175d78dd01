package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stowage-dev/stowage/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var (
		descriptorsDir = fs.String("descriptors-dir", ".", "Path to the descriptors directory")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stowage list [options]

List descriptors found in a directory.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  stowage list
  stowage list --descriptors-dir descriptors
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	manifests, err := yaml.NewManifestRepository()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	found, err := manifests.ListManifests(ctx, *descriptorsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing descriptors: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Available bundles (%d total):\n\n", len(found))
	for _, m := range found {
		mode := "onefolder"
		if m.OneFile {
			mode = "onefile"
		}

		fmt.Printf("  %-20s entry: %s\n", m.Name, m.EntryPoint)
		fmt.Printf("  %-20s mode: %s, console: %v\n", "", mode, m.Console)
		if len(m.DataResources) > 0 {
			fmt.Printf("  %-20s data resources: %d\n", "", len(m.DataResources))
		}
		if len(m.HiddenImports) > 0 {
			fmt.Printf("  %-20s hidden imports: %v\n", "", m.HiddenImports)
		}
		fmt.Println()
	}
}
