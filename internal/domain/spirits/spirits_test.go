package spirits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsult(t *testing.T) {
	tests := []struct {
		name  string
		pick  int
		input string
		want  string
	}{
		{"first omen", 0, "Ada", "Ada... the spirits whisper your name in the darkness..."},
		{"last omen", 4, "Ada", "Ada... the spirits say you should not have come here... it's too late now..."},
		{"name mid sentence", 3, "Grace", "The void calls to you, Grace... it hungers..."},
		{"whitespace collapsed", 1, "  Mary \t Shelley ", "Beware, Mary Shelley... something watches you from the shadows..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(func(int) int { return tt.pick })
			got, err := m.Consult(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsultRequiresName(t *testing.T) {
	m := New(nil)
	for _, name := range []string{"", "   ", "\n\t"} {
		_, err := m.Consult(name)
		assert.ErrorIs(t, err, ErrNoName)
	}
}

func TestConsultTruncatesLongNames(t *testing.T) {
	m := New(func(int) int { return 0 })
	got, err := m.Consult(strings.Repeat("é", MaxNameLength+20))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("é", MaxNameLength)+"..."))
}

func TestConsultDrawsFromEveryTemplate(t *testing.T) {
	m := New(nil)
	require.Len(t, m.Templates(), 5)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		got, err := m.Consult("Ada")
		require.NoError(t, err)
		assert.Contains(t, got, "Ada")
		seen[got] = true
	}
	assert.Len(t, seen, 5)
}

func TestParseMessages(t *testing.T) {
	_, err := ParseMessages([]byte("messages: []\n"))
	assert.ErrorContains(t, err, "no templates")

	_, err = ParseMessages([]byte("messages:\n  - \"nobody here\"\n"))
	assert.ErrorContains(t, err, "does not mention")

	_, err = ParseMessages([]byte("messages: ["))
	assert.Error(t, err)

	m, err := ParseMessages([]byte("messages:\n  - \"hi {name}\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hi {name}"}, m.Templates)
}
