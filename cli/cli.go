// Package cli provides the command-line interface for signature
// compositing and invoice generation.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	switch command := args[1]; command {
	case "stamp":
		StampCommand(args)
	case "invoice":
		InvoiceCommand(args)
	case "words":
		WordsCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("quillsign - document signing and invoicing tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  stamp    Embed signed signature zones into a PDF")
	fmt.Println("  invoice  Render an invoice document to PDF")
	fmt.Println("  words    Spell out a monetary amount in words")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s stamp contract.pdf zones.json signed.pdf\n", os.Args[0])
	fmt.Printf("  %s invoice -settings company.yaml invoice.json invoice.pdf\n", os.Args[0])
	fmt.Printf("  %s words 1234.56\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("quillsign version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
