package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/quillsign/quillsign/config"
	"github.com/quillsign/quillsign/invoice"
)

// InvoiceCommand implements the 'invoice' command.
func InvoiceCommand(args []string) {
	invoiceFlags := flag.NewFlagSet("invoice", flag.ExitOnError)

	var settingsPath string
	var verbose bool
	invoiceFlags.StringVar(&settingsPath, "settings", "company.yaml", "Company settings YAML file")
	invoiceFlags.BoolVar(&verbose, "v", false, "Enable verbose logging")

	invoiceFlags.Usage = func() {
		fmt.Printf("Usage: %s invoice [options] <invoice.json> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Render an invoice document to a single-page A4 PDF.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  invoice.json  Invoice document with customer and line items")
		fmt.Println("  output.pdf    Output file for the rendered PDF")
		fmt.Println("")
		fmt.Println("Options:")
		invoiceFlags.PrintDefaults()
	}

	if err := invoiceFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if len(invoiceFlags.Args()) < 2 {
		invoiceFlags.Usage()
		osExit(1)
	}

	if err := renderInvoice(settingsPath, invoiceFlags.Arg(0), invoiceFlags.Arg(1), verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func renderInvoice(settingsPath, docPath, outputPath string, verbose bool) error {
	settings, err := config.LoadCompanySettings(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to load company settings: %w", err)
	}

	docData, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("failed to read invoice document: %w", err)
	}
	var doc invoice.Document
	if err := json.Unmarshal(docData, &doc); err != nil {
		return fmt.Errorf("failed to parse invoice document: %w", err)
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	opts := invoice.DefaultOptions()
	opts.Logger = log

	out, warnings, err := invoice.NewGenerator(opts).Generate(&doc, settings)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output PDF: %w", err)
	}
	fmt.Printf("Wrote %s\n", outputPath)
	return nil
}
