package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/quillsign/quillsign/numwords"
)

// WordsCommand implements the 'words' command.
func WordsCommand(args []string) {
	wordsFlags := flag.NewFlagSet("words", flag.ExitOnError)

	var unit, subunit string
	wordsFlags.StringVar(&unit, "unit", numwords.DefaultUnit, "Currency unit noun")
	wordsFlags.StringVar(&subunit, "subunit", numwords.DefaultSubunit, "Currency subunit noun")

	wordsFlags.Usage = func() {
		fmt.Printf("Usage: %s words [options] <amount>\n\n", os.Args[0])
		fmt.Println("Spell out a monetary amount in words.")
		fmt.Println("")
		fmt.Println("Options:")
		wordsFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s words 1234.56\n", os.Args[0])
		fmt.Printf("  %s words -unit dollar -subunit cent 99.99\n", os.Args[0])
	}

	if err := wordsFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if len(wordsFlags.Args()) < 1 {
		wordsFlags.Usage()
		osExit(1)
	}

	amount, err := decimal.NewFromString(wordsFlags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid amount %q: %v\n", wordsFlags.Arg(0), err)
		osExit(1)
		return
	}
	fmt.Println(numwords.AmountToCurrencyWords(amount, unit, subunit))
}
