package main

import (
	"errors"
	"os"

	"github.com/sofmeright/imageforge/src/cli/cmd"
	"github.com/sofmeright/imageforge/src/macro"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// A missing fragment is an authoring bug in the provisioning
		// tree; it gets its own exit code so CI can tell it apart.
		var unresolved *macro.UnresolvedError
		if errors.As(err, &unresolved) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
