package spirits

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed messages.yaml
var messagesYAML []byte

// NamePlaceholder is replaced by the visitor's name in every template.
const NamePlaceholder = "{name}"

// MaxNameLength bounds the name echoed back, in runes.
const MaxNameLength = 64

// ErrNoName is returned when the name is blank.
var ErrNoName = errors.New("the spirits need a name")

// Messages holds the omen templates.
type Messages struct {
	Templates []string `yaml:"messages"`
}

// ParseMessages decodes omen templates from YAML. Each template must
// mention the name.
func ParseMessages(data []byte) (*Messages, error) {
	var m Messages
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse spirit messages: %w", err)
	}
	if len(m.Templates) == 0 {
		return nil, fmt.Errorf("parse spirit messages: no templates")
	}
	for i, tmpl := range m.Templates {
		if !strings.Contains(tmpl, NamePlaceholder) {
			return nil, fmt.Errorf("parse spirit messages: template %d does not mention %s", i, NamePlaceholder)
		}
	}
	return &m, nil
}

// Medium consults the spirits.
type Medium struct {
	messages *Messages
	pick     func(n int) int
}

// New returns a Medium over the built-in templates. A nil pick uses
// math/rand.
func New(pick func(n int) int) *Medium {
	m, err := ParseMessages(messagesYAML)
	if err != nil {
		panic(err)
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &Medium{messages: m, pick: pick}
}

// Templates returns a copy of the omen templates.
func (m *Medium) Templates() []string {
	return append([]string(nil), m.messages.Templates...)
}

// Consult returns one omen addressed to name. Surrounding whitespace is
// dropped and overly long names are cut to MaxNameLength runes.
func (m *Medium) Consult(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrNoName
	}
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}

	t := m.messages.Templates
	return strings.ReplaceAll(t[m.pick(len(t))], NamePlaceholder, name), nil
}
