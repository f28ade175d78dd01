// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stowage-dev/stowage/internal/domain-adapters/gateways"
	"github.com/stowage-dev/stowage/internal/domain/entities"
	"github.com/stowage-dev/stowage/internal/domain/interfaces"
	"github.com/stowage-dev/stowage/internal/domain/interfaces/repositories"
	"github.com/stowage-dev/stowage/internal/domain/services"
)

// ToolChecker interface for gating descriptors on the assembler version
type ToolChecker interface {
	Check(constraint string) error
}

// Analyzer interface for computing the dependency closure of a descriptor
type Analyzer interface {
	Compute(ctx context.Context, m *entities.Manifest) (*entities.Analysis, error)
}

// ArchiveWriter interface for writing the pure-code archive
type ArchiveWriter interface {
	CreateArchive(ctx context.Context, analysis *entities.Analysis, name, destDir string) (string, error)
}

// ChecksumWriter interface for writing the bundle checksum file
type ChecksumWriter interface {
	WriteSums(dir string) error
}

// ManifestSigner interface for producing a detached signature of the bundle
// manifest. A nil signer skips the signing stage.
type ManifestSigner interface {
	SignDetached(dataPath, sigPath string) error
}

// AssembleOrchestrator coordinates the complete bundle assembly workflow
type AssembleOrchestrator struct {
	manifests    repositories.ManifestRepository
	gate         ToolChecker
	analyzer     Analyzer
	archiver     ArchiveWriter
	collector    *gateways.Collector
	launchers    *gateways.LauncherWriter
	selfExtract  *gateways.SelfExtractWriter
	checksums    ChecksumWriter
	manifestSvc  *services.BundleManifestService
	signer       ManifestSigner
	logger       interfaces.Logger
	outputDir    string
	forceOneFile bool
}

// AssembleOrchestratorConfig holds configuration for the orchestrator
type AssembleOrchestratorConfig struct {
	OutputDir string
	Logger    interfaces.Logger
	// Signer is optional; when nil the bundle is not signed
	Signer ManifestSigner
	// ForceOneFile packs a one-file artifact even when the descriptor
	// does not request it
	ForceOneFile bool
}

// NewAssembleOrchestrator creates a new assemble orchestrator
func NewAssembleOrchestrator(
	manifests repositories.ManifestRepository,
	gate ToolChecker,
	analyzer Analyzer,
	archiver ArchiveWriter,
	collector *gateways.Collector,
	launchers *gateways.LauncherWriter,
	selfExtract *gateways.SelfExtractWriter,
	checksums ChecksumWriter,
	manifestSvc *services.BundleManifestService,
	config AssembleOrchestratorConfig,
) *AssembleOrchestrator {
	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = "dist"
	}
	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &AssembleOrchestrator{
		manifests:    manifests,
		gate:         gate,
		analyzer:     analyzer,
		archiver:     archiver,
		collector:    collector,
		launchers:    launchers,
		selfExtract:  selfExtract,
		checksums:    checksums,
		manifestSvc:  manifestSvc,
		signer:       config.Signer,
		logger:       logger,
		outputDir:    outputDir,
		forceOneFile: config.ForceOneFile,
	}
}

// AssembleResult contains the result of an assembly operation
type AssembleResult struct {
	Manifest         *entities.Manifest
	Analysis         *entities.Analysis
	Bundle           *entities.Bundle
	BundleManifest   *entities.BundleManifest
	AnalysisDuration time.Duration
	CollectDuration  time.Duration
	TotalDuration    time.Duration
	Success          bool
	Error            error
}

// AssembleBundle executes the complete assembly workflow for a descriptor.
// On any failure the staging tree is discarded and no partial bundle remains
// in the output directory.
func (o *AssembleOrchestrator) AssembleBundle(ctx context.Context, descriptorPath string) (*AssembleResult, error) {
	startTime := time.Now()
	result := &AssembleResult{}

	fail := func(err error) (*AssembleResult, error) {
		result.Error = err
		result.TotalDuration = time.Since(startTime)
		return result, err
	}

	// Step 1: Load and validate the descriptor
	manifest, err := o.manifests.GetManifest(ctx, descriptorPath)
	if err != nil {
		return fail(fmt.Errorf("failed to load descriptor: %w", err))
	}
	result.Manifest = manifest
	o.logger.Info("descriptor loaded", interfaces.F("name", manifest.Name))

	// Step 2: Gate on the assembler version
	if err := o.gate.Check(manifest.RequiresTool); err != nil {
		return fail(err)
	}

	// Step 3: Compute the dependency closure
	analysisStart := time.Now()
	analysis, err := o.analyzer.Compute(ctx, manifest)
	if err != nil {
		return fail(err)
	}
	result.Analysis = analysis
	result.AnalysisDuration = time.Since(analysisStart)
	o.logger.Info("analysis complete",
		interfaces.F("pure", len(analysis.Pure)),
		interfaces.F("native", len(analysis.Native)),
		interfaces.F("datas", len(analysis.Datas)),
		interfaces.F("warnings", len(analysis.Warnings)))
	for _, w := range analysis.Warnings {
		o.logger.Warn(w)
	}

	// Step 4: Collect the bundle tree in a staging directory
	collectStart := time.Now()
	staging, err := o.collector.NewStaging(o.outputDir, manifest.Name)
	if err != nil {
		return fail(err)
	}
	defer staging.Discard()

	if err := o.collect(ctx, staging, manifest, analysis); err != nil {
		return fail(err)
	}

	// Step 5: Checksums, then the bundle manifest covering them
	if err := o.checksums.WriteSums(staging.Dir()); err != nil {
		return fail(err)
	}
	bundleManifest, err := o.manifestSvc.Build(staging.Dir(), manifest.Name, manifest.Version)
	if err != nil {
		return fail(err)
	}
	if err := o.manifestSvc.Write(staging.Dir(), bundleManifest); err != nil {
		return fail(err)
	}
	result.BundleManifest = bundleManifest

	// Step 6: Optional detached signature over the bundle manifest
	if o.signer != nil {
		manifestPath := filepath.Join(staging.Dir(), services.BundleManifestName)
		sigPath := filepath.Join(staging.Dir(), services.BundleSignatureName)
		if err := o.signer.SignDetached(manifestPath, sigPath); err != nil {
			return fail(err)
		}
	}

	// Step 7: Commit the staging tree, then pack it when onefile is requested
	bundlePath, err := staging.Commit()
	if err != nil {
		return fail(err)
	}
	result.CollectDuration = time.Since(collectStart)

	bundle := &entities.Bundle{
		Name:    manifest.Name,
		Version: manifest.Version,
		Path:    bundlePath,
		Mode:    entities.ModeFolder,
	}

	if manifest.OneFile || o.forceOneFile {
		outPath := filepath.Join(o.outputDir, manifest.Name+".run")
		launcher := gateways.LauncherName(manifest)
		err := o.selfExtract.Pack(ctx, bundlePath, launcher, outPath)
		// The folder tree is only an intermediate in one-file mode
		_ = os.RemoveAll(bundlePath)
		if err != nil {
			return fail(err)
		}
		bundle.Path = outPath
		bundle.Mode = entities.ModeOneFile
	}

	result.Bundle = bundle
	result.Success = true
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

// collect populates the staging tree: code archive, launchers, native
// extensions under lib/, and declared data resources
func (o *AssembleOrchestrator) collect(ctx context.Context, staging *gateways.Staging, manifest *entities.Manifest, analysis *entities.Analysis) error {
	archivePath, err := o.archiver.CreateArchive(ctx, analysis, manifest.Name, staging.Dir())
	if err != nil {
		return err
	}
	archiveName := filepath.Base(archivePath)
	// Register the archive so a data resource cannot silently replace it
	if err := staging.Claim(archivePath, archiveName); err != nil {
		return err
	}

	if err := o.launchers.Write(staging, manifest, archiveName); err != nil {
		return err
	}

	for _, ref := range analysis.Native {
		dest := "lib/" + filepath.Base(ref.Path)
		if err := staging.AddFile(ref.Path, dest); err != nil {
			return err
		}
	}

	for _, data := range analysis.Datas {
		if err := staging.AddFile(data.Source, data.Dest); err != nil {
			return err
		}
	}
	return nil
}

// GetBuildSummary returns a human-readable summary of the assembly
func (r *AssembleResult) GetBuildSummary() string {
	if !r.Success {
		return fmt.Sprintf("Assembly failed: %v", r.Error)
	}

	summary := fmt.Sprintf(`Assembly successful!
Bundle: %s
Mode: %s
Output: %s
Modules: %d pure, %d native
Analysis: %v
Collect: %v
Total: %v`,
		r.Bundle.Name,
		r.Bundle.Mode,
		r.Bundle.Path,
		len(r.Analysis.Pure),
		len(r.Analysis.Native),
		r.AnalysisDuration,
		r.CollectDuration,
		r.TotalDuration,
	)

	if len(r.Analysis.Warnings) > 0 {
		summary += fmt.Sprintf("\nWarnings: %d (see log)", len(r.Analysis.Warnings))
	}
	return summary
}
