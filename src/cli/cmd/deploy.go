package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sofmeright/imageforge/src/dispatch"
	"github.com/sofmeright/imageforge/src/output"
	"github.com/sofmeright/imageforge/src/scan"
	"github.com/spf13/cobra"
)

var (
	depDryRun   bool
	depLenient  bool
	depChanged  bool
	depBaseline string
	depSkipScan bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [target]",
	Short: "Deploy configuration bundles and expand Dockerfile macros",
	Long: `Deploy runs the named target's operation sequence: configuration
bundles are overlaid into matching variant conf/ directories, then
macro markers in Dockerfiles are expanded from provisioning fragments.

Without a target argument, every configured target runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&depDryRun, "dry-run", false, "print the plan without touching the filesystem")
	deployCmd.Flags().BoolVar(&depLenient, "lenient", false, "log per-variant copy failures and continue")
	deployCmd.Flags().BoolVar(&depChanged, "changed", false, "restrict to families changed in git")
	deployCmd.Flags().StringVar(&depBaseline, "baseline", "main", "baseline branch for --changed")
	deployCmd.Flags().BoolVar(&depSkipScan, "skip-scan", false, "skip the pre-deploy secrets scan")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	requested := dispatch.RequestAll
	if len(args) > 0 {
		requested = args[0]
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	ctx := context.Background()
	printer := output.NewPrinter()

	if cfg.Scan.Gate && !depSkipScan && !depDryRun {
		if err := runScanGate(ctx, printer, root); err != nil {
			return err
		}
	}

	d := &dispatch.Dispatcher{
		Config:  cfg,
		Root:    root,
		Printer: printer,
		DryRun:  depDryRun,
		Lenient: depLenient,
	}

	if depChanged {
		delta := &dispatch.Delta{RootDir: root, BaselineBranch: depBaseline, Verbose: verbose}
		families, err := delta.ChangedFamilies(ctx, cfg.Paths.Images, cfg.Paths.Provision)
		if err != nil {
			return fmt.Errorf("delta detection: %w", err)
		}
		d.Families = families
	}

	return d.Run(requested)
}

// runScanGate aborts the deploy when the provisioning tree holds
// anything that looks like a committed secret.
func runScanGate(ctx context.Context, printer *output.Printer, root string) error {
	scanner, err := scan.New()
	if err != nil {
		return fmt.Errorf("secrets scanner: %w", err)
	}
	if cfg.Scan.MaxFileSize > 0 {
		scanner.MaxFileSize = cfg.Scan.MaxFileSize
	}

	findings, err := scanner.ScanTree(ctx, provisionDir(root))
	if err != nil {
		return fmt.Errorf("secrets scan: %w", err)
	}
	for _, f := range findings {
		printer.Error("%s:%d %s (%s)", f.File, f.Line, f.Description, f.RuleID)
	}
	if len(findings) > 0 {
		return fmt.Errorf("secrets scan: %d finding(s) in provisioning tree", len(findings))
	}
	return nil
}
