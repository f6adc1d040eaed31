package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sofmeright/imageforge/src/macro"
	"github.com/sofmeright/imageforge/src/output"
	"github.com/sofmeright/imageforge/src/scan"
	"github.com/sofmeright/imageforge/src/variant"
	"github.com/spf13/cobra"
)

var verifySkipScan bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the provisioning tree without deploying",
	Long: `Verify resolves every macro marker in every Dockerfile against the
provisioning tree without mutating anything, and scans the provisioning
tree for committed secrets. Exits non-zero on any finding.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifySkipScan, "skip-scan", false, "skip the secrets scan")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	printer := output.NewPrinter()
	problems := 0

	// Every marker in every build definition must resolve.
	err = filepath.WalkDir(imagesDir(root), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() != variant.DefinitionFile {
			return nil
		}

		markers, err := macro.ScanMarkers(path)
		if err != nil {
			return err
		}
		for _, m := range markers {
			if _, err := macro.Resolve(m, provisionDir(root)); err != nil {
				var unresolved *macro.UnresolvedError
				if errors.As(err, &unresolved) {
					printer.Error("%s: macro %q: missing fragment %s",
						path, unresolved.Marker, unresolved.ExpectedPath)
					problems++
					continue
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !verifySkipScan {
		scanner, err := scan.New()
		if err != nil {
			return fmt.Errorf("secrets scanner: %w", err)
		}
		if cfg.Scan.MaxFileSize > 0 {
			scanner.MaxFileSize = cfg.Scan.MaxFileSize
		}

		findings, err := scanner.ScanTree(context.Background(), provisionDir(root))
		if err != nil {
			return fmt.Errorf("secrets scan: %w", err)
		}
		for _, f := range findings {
			printer.Error("%s:%d %s (%s)", f.File, f.Line, f.Description, f.RuleID)
		}
		problems += len(findings)
	}

	if problems > 0 {
		return fmt.Errorf("verify: %d problem(s) found", problems)
	}

	fmt.Fprintln(printer.Writer, "verify: ok")
	return nil
}
