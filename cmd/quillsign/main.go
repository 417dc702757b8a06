// Command quillsign composits signature zones into PDFs and renders
// invoice documents.
//
// Usage:
//
//	quillsign <command> [options] <args>
//
// Commands:
//
//	stamp    Embed signed signature zones into a PDF
//	invoice  Render an invoice document to PDF
//	words    Spell out a monetary amount in words
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Composite signed zones into a contract
//	quillsign stamp contract.pdf zones.json signed.pdf
//
//	# Render an invoice
//	quillsign invoice -settings company.yaml invoice.json invoice.pdf
package main

import (
	"os"

	"github.com/quillsign/quillsign/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/quillsign
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime
	cli.Run(os.Args)
}
