// Package main provides the stowage CLI for assembling Python application bundles.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stowage-dev/stowage/internal/domain-adapters/gateways"
	orchestrators "github.com/stowage-dev/stowage/internal/domain-orchestrators"
	"github.com/stowage-dev/stowage/internal/domain/entities"
	"github.com/stowage-dev/stowage/internal/domain/interfaces"
	"github.com/stowage-dev/stowage/internal/domain/services"
	"github.com/stowage-dev/stowage/internal/external-adapters/gpg"
	"github.com/stowage-dev/stowage/internal/external-adapters/yaml"
)

// descriptorAnalyzer builds a module scanner per descriptor, since the search
// roots come from the descriptor itself
type descriptorAnalyzer struct{}

func (descriptorAnalyzer) Compute(ctx context.Context, m *entities.Manifest) (*entities.Analysis, error) {
	scanner := gateways.NewModuleScanner(m.SearchPaths)
	return services.NewClosureService(scanner).Compute(ctx, m)
}

func runBuild(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		outputDir = fs.String("output-dir", "dist", "Output directory for assembled bundles")
		signKey   = fs.String("sign-key", "", "Armored private keyring for signing the bundle manifest")
		oneFile   = fs.Bool("onefile", false, "Pack the bundle into a single self-extracting file")
		verbose   = fs.Bool("verbose", false, "Enable debug logging")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stowage build <descriptor> [options]

Assemble a bundle from a descriptor file.

Examples:
  stowage build app.stow.yml
  stowage build app.stow.yml --output-dir out
  stowage build app.stow.yml --sign-key release-key.asc
  stowage build app.stow.yml --onefile

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: descriptor path is required\n\n")
		fs.Usage()
		os.Exit(2)
	}

	descriptorPath := fs.Arg(0)

	orch, err := newAssembleOrchestrator(*outputDir, *signKey, *oneFile, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📦 Assembling %s\n\n", descriptorPath)

	result, err := orch.AssembleBundle(ctx, descriptorPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.GetBuildSummary())
}

// newAssembleOrchestrator wires the full assembly pipeline
func newAssembleOrchestrator(outputDir, signKey string, oneFile, verbose bool) (*orchestrators.AssembleOrchestrator, error) {
	manifests, err := yaml.NewManifestRepository()
	if err != nil {
		return nil, err
	}

	gate, err := gateways.NewToolGate(toolVersion)
	if err != nil {
		return nil, err
	}

	launchers, err := gateways.NewLauncherWriter()
	if err != nil {
		return nil, err
	}

	selfExtract, err := gateways.NewSelfExtractWriter()
	if err != nil {
		return nil, err
	}

	var signer orchestrators.ManifestSigner
	if signKey != "" {
		s, err := gpg.NewSigner(signKey)
		if err != nil {
			return nil, err
		}
		signer = s
	}

	return orchestrators.NewAssembleOrchestrator(
		manifests,
		gate,
		descriptorAnalyzer{},
		gateways.NewArchiver(),
		gateways.NewCollector(),
		launchers,
		selfExtract,
		gateways.NewChecksumWriter(),
		services.NewBundleManifestService(),
		orchestrators.AssembleOrchestratorConfig{
			OutputDir:    outputDir,
			Logger:       &interfaces.StderrLogger{Verbose: verbose},
			Signer:       signer,
			ForceOneFile: oneFile,
		},
	), nil
}
