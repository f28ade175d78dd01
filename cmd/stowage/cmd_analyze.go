package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/stowage-dev/stowage/internal/domain/entities"
	"github.com/stowage-dev/stowage/internal/external-adapters/yaml"
)

// analysisReport is the JSON shape of an analysis result
type analysisReport struct {
	Entry    string         `json:"entry"`
	Pure     []moduleReport `json:"pure"`
	Native   []moduleReport `json:"native"`
	Datas    []dataReport   `json:"datas"`
	Warnings []string       `json:"warnings"`
}

type moduleReport struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Via  string `json:"via"`
}

type dataReport struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

func runAnalyze(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var (
		jsonOutput = fs.Bool("json", false, "Print the analysis as JSON")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stowage analyze <descriptor> [options]

Compute and print the dependency closure of a descriptor without building.

Examples:
  stowage analyze app.stow.yml
  stowage analyze app.stow.yml --json

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

	manifests, err := yaml.NewManifestRepository()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	manifest, err := manifests.GetManifest(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	analysis, err := descriptorAnalyzer{}.Compute(ctx, manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printAnalysisJSON(analysis)
		return
	}
	printAnalysis(manifest, analysis)
}

func printAnalysis(manifest *entities.Manifest, analysis *entities.Analysis) {
	fmt.Printf("Analysis for %s\n\n", manifest.Name)
	fmt.Printf("Entry: %s\n\n", analysis.Entry.Path)

	fmt.Printf("Pure modules (%d):\n", len(analysis.Pure))
	for _, ref := range analysis.Pure {
		fmt.Printf("  %-30s %s (%s)\n", ref.Name, ref.Path, ref.Via)
	}

	fmt.Printf("\nNative modules (%d):\n", len(analysis.Native))
	for _, ref := range analysis.Native {
		fmt.Printf("  %-30s %s (%s)\n", ref.Name, ref.Path, ref.Via)
	}

	fmt.Printf("\nData resources (%d):\n", len(analysis.Datas))
	for _, data := range analysis.Datas {
		fmt.Printf("  %-30s -> %s\n", data.Source, data.Dest)
	}

	if len(analysis.Warnings) > 0 {
		fmt.Printf("\n⚠️  Warnings (%d):\n", len(analysis.Warnings))
		for _, w := range analysis.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

func printAnalysisJSON(analysis *entities.Analysis) {
	report := analysisReport{
		Entry:    analysis.Entry.Path,
		Pure:     make([]moduleReport, 0, len(analysis.Pure)),
		Native:   make([]moduleReport, 0, len(analysis.Native)),
		Datas:    make([]dataReport, 0, len(analysis.Datas)),
		Warnings: analysis.Warnings,
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	for _, ref := range analysis.Pure {
		report.Pure = append(report.Pure, moduleReport{Name: ref.Name, Path: ref.Path, Via: string(ref.Via)})
	}
	for _, ref := range analysis.Native {
		report.Native = append(report.Native, moduleReport{Name: ref.Name, Path: ref.Path, Via: string(ref.Via)})
	}
	for _, data := range analysis.Datas {
		report.Datas = append(report.Datas, dataReport{Source: data.Source, Dest: data.Dest})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
