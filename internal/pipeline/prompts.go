package pipeline

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

const demoPrompt = "Extract structured financial transaction data from text. " +
	"Return JSON array of objects: time, amount, currency, purpose."

// demoLines is a sample OCR capture of a single card payment.
var demoLines = []string{
	"Uber Eats",
	"Pending",
	"742.52 SEK",
	"Uber Eats",
	"Eating out",
	"22 August 2025 at 13:11",
}

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// formatOrdinalDate renders a date as "15th Oct 2026".
func formatOrdinalDate(d civil.Date) string {
	suffix := "th"
	switch d.Day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s %s %d", d.Day, suffix, shortMonths[d.Month-1], d.Year)
}

// buildExtractionPrompt returns the system instruction for OCR extraction.
// The current date lets the model resolve relative dates such as "Yesterday".
func buildExtractionPrompt(today civil.Date) string {
	var b strings.Builder

	b.WriteString("You read OCR output taken from screenshots of banking apps and extract every transaction it shows.\n")
	b.WriteString("Today is " + formatOrdinalDate(today) + ".\n\n")

	b.WriteString("Task:\n")
	b.WriteString("- Work out the layout first: find where each transaction begins and ends.\n")
	b.WriteString("- Then extract each transaction separately, in the order it appears.\n")
	b.WriteString("- Use only what is in the OCR text. Do not invent transactions.\n\n")

	b.WriteString("Each transaction is a JSON object with these fields:\n")
	b.WriteString("- \"time\": the date (and time, if shown) of the transaction\n")
	b.WriteString("- \"amount\": number or string, exactly as shown, negative for money out if the sign is shown\n")
	b.WriteString("- \"currency\": currency code, e.g. \"SEK\" or \"EUR\"\n")
	b.WriteString("- \"purpose\": merchant or description\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- If a field is missing or cannot be read with confidence, use the value \"[unclear]\".\n")
	b.WriteString("- If the text is unreadable or holds no transactions, return [].\n\n")

	b.WriteString("Example output:\n")
	b.WriteString(`[{"time":"2023-06-01","amount":"1000.00","currency":"CNY","purpose":"ATM Withdrawal"},` +
		`{"time":"2023-06-01","amount":"-25.00","currency":"CNY","purpose":"Coffee Shop"}]` + "\n\n")

	b.WriteString("Return ONLY the JSON array.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}
