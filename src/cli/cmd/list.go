package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sofmeright/imageforge/src/output"
	"github.com/sofmeright/imageforge/src/variant"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List image families and their variants",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	printer := output.NewPrinter()

	families, err := listFamilies(imagesDir(root))
	if err != nil {
		return err
	}

	for _, family := range families {
		variants, err := variant.Discover(filepath.Join(imagesDir(root), family))
		if err != nil {
			return err
		}

		printer.Target(family)
		for _, v := range variants {
			if v.HasDefinition {
				fmt.Fprintf(printer.Writer, "    %s\n", v.Name)
			} else {
				fmt.Fprintf(printer.Writer, "    %s (no Dockerfile)\n", v.Name)
			}
		}
	}
	return nil
}

// listFamilies returns the family directory names in the image tree.
func listFamilies(imagesRoot string) ([]string, error) {
	entries, err := os.ReadDir(imagesRoot)
	if err != nil {
		return nil, fmt.Errorf("listing image tree %s: %w", imagesRoot, err)
	}

	var families []string
	for _, e := range entries {
		if e.IsDir() {
			families = append(families, e.Name())
		}
	}
	sort.Strings(families)
	return families, nil
}

func imagesDir(root string) string {
	return filepath.Join(root, cfg.Paths.Images)
}

func provisionDir(root string) string {
	return filepath.Join(root, cfg.Paths.Provision)
}
