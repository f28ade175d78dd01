package main

import (
	"context"
	"fmt"
	"os"
)

// toolVersion is the assembler version checked against requires_tool
const toolVersion = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "build":
		runBuild(ctx, os.Args[2:])
	case "analyze":
		runAnalyze(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "validate":
		runValidate(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "version":
		fmt.Printf("stowage %s\n", toolVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println(`stowage - Bundle assembler for Python applications

Usage:
  stowage <command> [options]

Commands:
  build     Assemble a bundle from a descriptor
  analyze   Compute and print the dependency closure of a descriptor
  list      List descriptors in a directory
  validate  Validate descriptors without building
  verify    Verify checksums, manifest, and signature of a bundle
  version   Print the assembler version

Use "stowage <command> --help" for more information about a command.`)
}
