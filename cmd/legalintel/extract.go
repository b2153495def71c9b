package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
)

var extractFilename string

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract metadata from a local text file or stdin",
	Long: `Run the rule engine on plain document text and print the result as JSON.

Examples:
  # Extract from a file
  legalintel extract contract.txt

  # Extract from stdin, naming the source document
  pdftotext acme_nda.pdf - | legalintel extract - --filename acme_nda.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractFilename, "filename", "", "document file name used for agreement type detection")
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		in     io.Reader
		source = "stdin"
	)

	filename := extractFilename
	if len(args) == 0 || args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		source = args[0]
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("read file %s: %w", source, err)
		}
		defer f.Close()
		in = f
		if filename == "" {
			filename = filepath.Base(source)
		}
	}

	text, err := objectstore.ReadText(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	result := extractor.ExtractWithFilename(filename, text)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
