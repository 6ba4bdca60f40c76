// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Collection dump command for the dojoquest CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/dojoquest/internal/util"
)

// HandleExport dumps every collection as a single JSON document, to stdout
// or to --out FILE.
func HandleExport(args Args) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	data, err := e.db.ExportAll()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if args.OutFile == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := util.AtomicWriteFile(args.OutFile, data, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s exported to %s\n",
			successStyle.Render("✓"), args.OutFile)
	}
	return nil
}
