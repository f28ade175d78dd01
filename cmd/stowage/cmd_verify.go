package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stowage-dev/stowage/internal/domain-adapters/gateways"
	"github.com/stowage-dev/stowage/internal/domain/services"
	"github.com/stowage-dev/stowage/internal/external-adapters/gpg"
)

func runVerify(_ context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		keyPath = fs.String("key", "", "Armored public keyring for signature verification")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stowage verify <bundle> [options]

Verify an assembled bundle. For a collected directory this checks the
SHA256SUMS file and the bundle manifest; for a one-file artifact it checks
the embedded payload digest. With --key, the manifest signature is also
verified.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  stowage verify dist/myapp
  stowage verify dist/myapp --key release-key.pub.asc
  stowage verify dist/myapp.run
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: bundle path is required\n\n")
		fs.Usage()
		os.Exit(2)
	}

	bundlePath := fs.Arg(0)
	info, err := os.Stat(bundlePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !info.IsDir() {
		verifyOneFile(bundlePath)
		return
	}
	verifyFolder(bundlePath, *keyPath)
}

func verifyOneFile(path string) {
	fmt.Printf("🔍 Verifying one-file artifact %s\n\n", filepath.Base(path))

	trailer, err := gateways.ReadTrailer(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("📋 Payload: %d bytes at offset %d\n", trailer.PayloadLength, trailer.PayloadOffset)

	if err := gateways.VerifyPayload(path); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Payload verification FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Payload digest verified")
}

func verifyFolder(dir, keyPath string) {
	fmt.Printf("🔍 Verifying bundle %s\n\n", filepath.Base(dir))
	failed := 0

	fmt.Println("📋 Verifying checksums...")
	if err := gateways.NewChecksumWriter().VerifySums(dir); err != nil {
		fmt.Printf("❌ Checksum verification FAILED: %v\n", err)
		failed++
	} else {
		fmt.Println("✅ Checksums verified")
	}

	fmt.Println("📜 Verifying bundle manifest...")
	manifestSvc := services.NewBundleManifestService()
	if err := manifestSvc.Verify(dir); err != nil {
		fmt.Printf("❌ Manifest verification FAILED: %v\n", err)
		failed++
	} else {
		fmt.Println("✅ Bundle manifest verified")
	}

	if keyPath != "" {
		fmt.Println("🔐 Verifying manifest signature...")
		if err := verifySignature(dir, keyPath); err != nil {
			fmt.Printf("❌ Signature verification FAILED: %v\n", err)
			failed++
		} else {
			fmt.Println("✅ Manifest signature verified")
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d verification checks failed\n", failed)
		os.Exit(1)
	}
}

func verifySignature(dir, keyPath string) error {
	verifier, err := gpg.NewVerifier(keyPath)
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(dir, services.BundleManifestName)
	sigPath := filepath.Join(dir, services.BundleSignatureName)
	return verifier.VerifyDetached(manifestPath, sigPath)
}
