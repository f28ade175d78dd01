package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stowage-dev/stowage/internal/external-adapters/yaml"
)

func runValidate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stowage validate <descriptor> [<descriptor>...]

Validate descriptors against the schema without building anything.

Examples:
  stowage validate app.stow.yml
  stowage validate descriptors/*.yml
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one descriptor path is required\n\n")
		fs.Usage()
		os.Exit(2)
	}

	manifests, err := yaml.NewManifestRepository()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, path := range fs.Args() {
		if _, err := manifests.GetManifest(ctx, path); err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("✅ %s\n", path)
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d descriptors invalid\n", failed, fs.NArg())
		os.Exit(1)
	}
}
