package bot

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReplyTemplates are the acknowledgment texts the bot posts under a
// mention. Found is used when the parent announcement was resolved and
// supports {name} and {site} placeholders; Generic supports {site}.
type ReplyTemplates struct {
	Found   string `yaml:"found"`
	Generic string `yaml:"generic"`
}

func DefaultTemplates() ReplyTemplates {
	return ReplyTemplates{
		Found:   `Thanks for the submission! We'll review "{name}" for the AI Safety Rage Quit Tracker. Track departures at {site}`,
		Generic: `Thanks for the tag! To submit a departure, reply to the resignation tweet and tag us. We'll pull the data automatically.`,
	}
}

// LoadTemplates reads reply templates from a yaml file. An empty path or a
// missing field falls back to the defaults.
func LoadTemplates(path string) (ReplyTemplates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTemplates(), err
	}

	var templates ReplyTemplates
	if err := yaml.Unmarshal(content, &templates); err != nil {
		return ReplyTemplates{}, err
	}

	defaults := DefaultTemplates()
	if templates.Found == "" {
		templates.Found = defaults.Found
	}
	if templates.Generic == "" {
		templates.Generic = defaults.Generic
	}
	return templates, nil
}

func (t ReplyTemplates) FoundReply(name, site string) string {
	return strings.NewReplacer("{name}", name, "{site}", site).Replace(t.Found)
}

func (t ReplyTemplates) GenericReply(site string) string {
	return strings.ReplaceAll(t.Generic, "{site}", site)
}
