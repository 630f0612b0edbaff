// Package prompts renders the text sent to the summarization service.
package prompts

import (
	"bytes"
	_ "embed"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"
)

// SystemInstruction is the system message of every summary request.
const SystemInstruction = "You are a helpful assistant that analyzes and summarizes survey data."

// MaxDataRunes bounds the data dump sent to the service.
const MaxDataRunes = 60000

var dataTagRegex = regexp.MustCompile(`(?i)</?\s*survey-data\b[^>]*>`)

//go:embed summary.tmpl
var summaryText string

var summaryTmpl = template.Must(template.New("summary").Parse(summaryText))

// SummaryData holds template data for the summary prompt.
type SummaryData struct {
	Count int
	Data  string
}

// BuildSummaryPrompt renders the user message for count responses given as
// CSV text in table.
func BuildSummaryPrompt(table string, count int) (string, error) {
	data := SummaryData{
		Count: count,
		Data:  sanitizeData(table),
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeData keeps respondent free text from closing the data block and
// bounds the dump size.
func sanitizeData(table string) string {
	table = dataTagRegex.ReplaceAllString(table, "")
	table = strings.TrimSpace(table)

	if utf8.RuneCountInString(table) > MaxDataRunes {
		runes := []rune(table)
		table = string(runes[:MaxDataRunes]) + "\n\n[Data truncated due to length]"
	}
	return table
}
