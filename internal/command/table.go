package command

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Command maps a spoken phrase to a destination URL.
type Command struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	URL    string `yaml:"url" json:"url"`
}

// Table is an ordered list of commands. The first matching phrase wins.
type Table []Command

// DefaultTable returns the built-in phrases.
func DefaultTable() Table {
	return Table{
		{Phrase: "open youtube", URL: "https://youtube.com"},
		{Phrase: "open facebook", URL: "https://facebook.com"},
		{Phrase: "open twitter", URL: "https://twitter.com"},
		{Phrase: "open instagram", URL: "https://instagram.com"},
		{Phrase: "open linkedin", URL: "https://linkedin.com"},
		{Phrase: "open github", URL: "https://github.com"},
		{Phrase: "open netflix", URL: "https://netflix.com"},
		{Phrase: "open amazon", URL: "https://amazon.com"},
		{Phrase: "open spotify", URL: "https://spotify.com"},
		{Phrase: "open gmail", URL: "https://gmail.com"},
		{Phrase: "check weather", URL: "https://weather.com"},
	}
}

type tableFile struct {
	Commands []Command `yaml:"commands"`
}

// LoadTable reads a YAML file of the form
//
//	commands:
//	  - phrase: open youtube
//	    url: https://youtube.com
//
// An empty path returns DefaultTable.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command table %s: %w", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse command table: %w", err)
	}

	table := make(Table, 0, len(file.Commands))
	for i, c := range file.Commands {
		phrase := strings.ToLower(strings.TrimSpace(c.Phrase))
		if phrase == "" || strings.TrimSpace(c.URL) == "" {
			return nil, fmt.Errorf("command %d: phrase and url are required", i)
		}
		table = append(table, Command{Phrase: phrase, URL: strings.TrimSpace(c.URL)})
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("command table %s has no commands", path)
	}
	return table, nil
}
