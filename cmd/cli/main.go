package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/app"
	"github.com/dvloznov/ocr-ledger/internal/config"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/fields"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.NewFromConfig(cfg.Logger.Level, logger.FormatConsole, os.Stderr)

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(cfg, log, os.Args[2:])
	case "extract":
		err = runExtract(cfg, log, os.Args[2:])
	case "rate":
		err = runRate(cfg, log, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

func printUsage() {
	fmt.Println("OCR Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  process   Extract, convert and store the transactions in OCR text")
	fmt.Println("  extract   Run extraction only and print the decoded reply")
	fmt.Println("  rate      Look up one conversion rate")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// textSource holds the mutually exclusive input flags.
type textSource struct {
	text   *string
	file   *string
	gcsURI *string
}

func addTextFlags(fs *flag.FlagSet) textSource {
	return textSource{
		text:   fs.String("text", "", "OCR text"),
		file:   fs.String("file", "", "Path to a file with OCR text (- for stdin)"),
		gcsURI: fs.String("gcs-uri", "", "GCS URI of an object with OCR text"),
	}
}

func (s textSource) read(ctx context.Context, a *app.App, stdin io.Reader) (string, error) {
	set := 0
	for _, v := range []string{*s.text, *s.file, *s.gcsURI} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return "", errors.New("exactly one of -text, -file and -gcs-uri is required")
	}

	switch {
	case *s.text != "":
		return *s.text, nil
	case *s.file == "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	case *s.file != "":
		data, err := os.ReadFile(*s.file)
		return string(data), err
	default:
		return a.FetchText(ctx, *s.gcsURI)
	}
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (context.Context, *app.App, error) {
	ctx = logger.WithContext(ctx, log)
	a, err := app.New(ctx, cfg, log)
	return ctx, a, err
}

func runProcess(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	src := addTextFlags(fs)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctx, a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := src.read(ctx, a, os.Stdin)
	if err != nil {
		return err
	}

	result, err := a.Processor.Process(ctx, text)
	if err != nil {
		return err
	}

	if *asJSON {
		return writeJSON(os.Stdout, result)
	}
	renderResult(os.Stdout, result)
	return nil
}

func runExtract(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	src := addTextFlags(fs)
	demo := fs.Bool("demo", false, "Extract the built-in sample instead")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctx, a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var parsed any
	if *demo {
		parsed, err = a.Extraction.Demo(ctx)
	} else {
		var text string
		if text, err = src.read(ctx, a, os.Stdin); err != nil {
			return err
		}
		parsed, err = a.Extraction.Extract(ctx, text, fields.Today(time.Now()))
	}
	if err != nil {
		return err
	}

	return writeJSON(os.Stdout, parsed)
}

func runRate(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	from := fs.String("from", "", "Base currency code")
	to := fs.String("to", cfg.Currency.Target, "Target currency code")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctx, a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rate, err := a.Rates.Rate(ctx, *from, *to)
	if err != nil {
		return err
	}

	fmt.Printf("1 %s = %s %s\n", strings.ToUpper(*from), rate.String(), strings.ToUpper(*to))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderResult prints one row per transaction with its store outcome.
func renderResult(w io.Writer, result *domain.ProcessResult) {
	if len(result.Transactions) == 0 {
		fmt.Fprintln(w, "No transactions found.")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"#", "Date", "Purpose", "Amount", "Currency", "Stored", "Note"})

		for i, tx := range result.Transactions {
			stored, note := "-", tx.ConversionError
			if i < len(result.Notion.Uploaded) {
				outcome := result.Notion.Uploaded[i]
				stored = "no"
				if outcome.Success {
					stored = "yes"
				}
				if outcome.Error != "" {
					note = joinNotes(note, outcome.Error)
				}
			}

			table.Append([]string{
				fmt.Sprint(i + 1),
				tx.DateSource(),
				tx.DisplayName(),
				formatAmount(tx.Amount),
				tx.Currency,
				stored,
				note,
			})
		}

		table.Render()
	}

	switch {
	case result.Notion.Error != "":
		fmt.Fprintf(w, "Store error: %s\n", result.Notion.Error)
	case result.Notion.Message != "":
		fmt.Fprintln(w, result.Notion.Message)
	default:
		ok, failed := result.Notion.Counts()
		fmt.Fprintf(w, "Stored %d, failed %d\n", ok, failed)
	}
}

func formatAmount(v any) string {
	if v == nil {
		return ""
	}
	d, err := fields.ParseAmount(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return d.StringFixed(2)
}

func joinNotes(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
