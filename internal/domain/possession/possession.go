package possession

import (
	_ "embed"
	"fmt"
	"math/rand/v2"

	"github.com/goccy/go-yaml"
)

//go:embed messages.yaml
var messagesYAML []byte

// Actions the client knows how to perform.
const (
	ActionDimScreen = "dim_screen"
	ActionGlitch    = "glitch"
	ActionNone      = "none"
)

// Thresholds.
const (
	LowBattery = 0.30
	LoudVolume = 50
)

// Reading is one sample of the client's sensors.
type Reading struct {
	Battery float64 // 0..1
	Volume  float64
}

// Verdict is what the client should do about it.
type Verdict struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

// Messages holds the canned lines.
type Messages struct {
	LowBattery string   `yaml:"low_battery"`
	TooLoud    string   `yaml:"too_loud"`
	Whispers   []string `yaml:"whispers"`
}

// ParseMessages decodes a message set from YAML.
func ParseMessages(data []byte) (*Messages, error) {
	var m Messages
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse possession messages: %w", err)
	}
	if m.LowBattery == "" || m.TooLoud == "" || len(m.Whispers) == 0 {
		return nil, fmt.Errorf("parse possession messages: incomplete message set")
	}
	return &m, nil
}

// Possessor decides how to react to sensor readings.
type Possessor struct {
	messages *Messages
	pick     func(n int) int
}

// New returns a Possessor over the built-in messages. A nil pick uses
// math/rand.
func New(pick func(n int) int) *Possessor {
	m, err := ParseMessages(messagesYAML)
	if err != nil {
		panic(err)
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &Possessor{messages: m, pick: pick}
}

// Judge maps a reading to a verdict. Battery is checked before volume.
func (p *Possessor) Judge(r Reading) Verdict {
	switch {
	case r.Battery < LowBattery:
		return Verdict{Message: p.messages.LowBattery, Action: ActionDimScreen}
	case r.Volume > LoudVolume:
		return Verdict{Message: p.messages.TooLoud, Action: ActionGlitch}
	default:
		w := p.messages.Whispers
		return Verdict{Message: w[p.pick(len(w))], Action: ActionNone}
	}
}
