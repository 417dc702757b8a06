package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/quillsign/quillsign/composite"
	"github.com/quillsign/quillsign/zone"
)

// StampOptions contains options for the stamp command.
type StampOptions struct {
	CaptionFormat string
	NoCaption     bool
	Verbose       bool
}

// StampCommand implements the 'stamp' command.
func StampCommand(args []string) {
	stampFlags := flag.NewFlagSet("stamp", flag.ExitOnError)

	var opts StampOptions
	stampFlags.StringVar(&opts.CaptionFormat, "caption-format", "2006-01-02 15:04", "Time layout for the signature caption")
	stampFlags.BoolVar(&opts.NoCaption, "no-caption", false, "Do not render a caption under signatures")
	stampFlags.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")

	stampFlags.Usage = func() {
		fmt.Printf("Usage: %s stamp [options] <input.pdf> <zones.json> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Embed the signed signature zones into a PDF as an incremental update.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  input.pdf   Original PDF document")
		fmt.Println("  zones.json  Signature zones with base64-encoded bitmaps")
		fmt.Println("  output.pdf  Output file for the composited PDF")
		fmt.Println("")
		fmt.Println("Options:")
		stampFlags.PrintDefaults()
	}

	if err := stampFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if len(stampFlags.Args()) < 3 {
		stampFlags.Usage()
		osExit(1)
	}

	if err := stampPDF(stampFlags.Arg(0), stampFlags.Arg(1), stampFlags.Arg(2), &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func stampPDF(inputPath, zonesPath, outputPath string, opts *StampOptions) error {
	original, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input PDF: %w", err)
	}

	zonesData, err := os.ReadFile(zonesPath)
	if err != nil {
		return fmt.Errorf("failed to read zones file: %w", err)
	}
	var zones []*zone.SignatureZone
	if err := json.Unmarshal(zonesData, &zones); err != nil {
		return fmt.Errorf("failed to parse zones file: %w", err)
	}

	log := logrus.New()
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	compOpts := composite.DefaultOptions()
	compOpts.CaptionFormat = opts.CaptionFormat
	compOpts.Caption = !opts.NoCaption
	compOpts.Logger = log

	out, diags, err := composite.New(compOpts).Composite(original, zones)
	if err != nil {
		return err
	}
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "Skipped zone %s (page %d): %s\n", d.ZoneID, d.Page, d.Reason)
	}

	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output PDF: %w", err)
	}
	fmt.Printf("Wrote %s (%d zones skipped)\n", outputPath, len(diags))
	return nil
}
