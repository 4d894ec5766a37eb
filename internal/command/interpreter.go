package command

import (
	"net/url"
	"strings"

	"github.com/voicenav/voice-gateway/internal/observability"
)

// SearchURL is the prefix used when no phrase matches.
const SearchURL = "https://www.google.com/search?q="

// Kind distinguishes a known destination from a search fallback.
type Kind string

const (
	KindNavigate Kind = "navigate"
	KindSearch   Kind = "search"
)

// Action is what the client should open for a transcript.
type Action struct {
	Kind    Kind   `json:"kind"`
	URL     string `json:"url"`
	Command string `json:"command,omitempty"`
	Query   string `json:"query,omitempty"`
}

// Interpreter turns transcribed text into an Action.
type Interpreter struct {
	table Table
}

// NewInterpreter uses DefaultTable when table is empty.
func NewInterpreter(table Table) *Interpreter {
	if len(table) == 0 {
		table = DefaultTable()
	}
	normalized := make(Table, len(table))
	for i, c := range table {
		normalized[i] = Command{Phrase: strings.ToLower(c.Phrase), URL: c.URL}
	}
	return &Interpreter{table: normalized}
}

// Table returns a copy of the commands in match order.
func (in *Interpreter) Table() Table {
	out := make(Table, len(in.table))
	copy(out, in.table)
	return out
}

// Interpret never fails.
func (in *Interpreter) Interpret(text string) Action {
	lower := strings.ToLower(text)

	for _, c := range in.table {
		if strings.Contains(lower, c.Phrase) {
			observability.RecordCommand(string(KindNavigate))
			return Action{Kind: KindNavigate, URL: c.URL, Command: c.Phrase}
		}
	}

	observability.RecordCommand(string(KindSearch))
	return Action{Kind: KindSearch, URL: SearchURL + EncodeQuery(text), Query: text}
}

// EncodeQuery percent-encodes text with spaces as %20.
func EncodeQuery(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
