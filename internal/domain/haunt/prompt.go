package haunt

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("prompt").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(promptSource))

// UnknownPage is used when the client did not say what it is viewing.
const UnknownPage = "unknown page"

// PromptContext is everything the oracle prompt is built from.
type PromptContext struct {
	Level          int
	CurrentURL     string
	BatteryPercent int
	Platform       string
	Hour           int
	Recent         []string // do-not-repeat lines, oldest first
}

// BuildPrompt renders the oracle prompt.
func BuildPrompt(pc PromptContext) string {
	if pc.CurrentURL == "" {
		pc.CurrentURL = UnknownPage
	}
	if pc.Platform == "" {
		pc.Platform = "unknown"
	}

	var sb strings.Builder
	// The template and its inputs are fixed; Execute cannot fail on them.
	_ = promptTemplate.Execute(&sb, pc)
	return sb.String()
}
