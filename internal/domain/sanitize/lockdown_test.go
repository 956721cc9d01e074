package sanitize

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDOM is the minimum browser surface the lockdown script touches.
const fakeDOM = `
var listeners = {};
var document = {
  addEventListener: function (type, fn, capture) {
    listeners[type] = { fn: fn, capture: capture };
  }
};
var window = { location: { href: 'https://app.test/haunted' } };

function newEvent(target) {
  return {
    target: target,
    prevented: false,
    stopped: false,
    preventDefault: function () { this.prevented = true; },
    stopPropagation: function () { this.stopped = true; },
    stopImmediatePropagation: function () { this.stopped = true; }
  };
}

// dispatch runs the capturing listener, then the default action if allowed.
function click(target) {
  var e = newEvent(target);
  listeners.click.fn(e);
  if (!e.prevented) {
    for (var n = target; n && n !== document; n = n.parentElement) {
      if (n.tagName === 'A') { window.location = n.href; break; }
    }
  }
  return e;
}
`

type jsHarness struct {
	vm     *goja.Runtime
	logs   []string
	delays []int64
}

func newJSHarness(t *testing.T, script string) *jsHarness {
	t.Helper()
	h := &jsHarness{vm: goja.New()}

	require.NoError(t, h.vm.Set("console", map[string]interface{}{
		"log": func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, arg.String())
			}
			h.logs = append(h.logs, strings.Join(parts, " "))
			return goja.Undefined()
		},
	}))
	require.NoError(t, h.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		h.delays = append(h.delays, call.Argument(1).ToInteger())
		return goja.Undefined()
	}))

	_, err := h.vm.RunString(fakeDOM)
	require.NoError(t, err)
	_, err = h.vm.RunString(script)
	require.NoError(t, err)
	return h
}

func (h *jsHarness) eval(t *testing.T, expr string) goja.Value {
	t.Helper()
	v, err := h.vm.RunString(expr)
	require.NoError(t, err)
	return v
}

// extractLockdown pulls the injected script back out of sanitized markup.
func extractLockdown(t *testing.T) string {
	t.Helper()
	_, root := sanitizeFixture(t)
	script := htmlquery.FindOne(root, `//head/script[1]`)
	require.NotNil(t, script)
	return htmlquery.InnerText(script)
}

func TestLockdownInstallsCapturingListeners(t *testing.T) {
	h := newJSHarness(t, extractLockdown(t))

	assert.True(t, h.eval(t, `listeners.click.capture`).ToBoolean())
	assert.True(t, h.eval(t, `listeners.submit.capture`).ToBoolean())
}

func TestLockdownBlocksAnchorClicks(t *testing.T) {
	h := newJSHarness(t, extractLockdown(t))

	tests := []struct {
		name        string
		setup       string
		wantBlocked bool
	}{
		{
			name:        "direct anchor",
			setup:       `var target = { tagName: 'A', href: 'https://evil.test/', parentElement: document };`,
			wantBlocked: true,
		},
		{
			name: "span inside anchor",
			setup: `var a = { tagName: 'A', href: 'https://evil.test/', parentElement: document };
var target = { tagName: 'SPAN', parentElement: { tagName: 'B', parentElement: a } };`,
			wantBlocked: true,
		},
		{
			name:        "plain paragraph",
			setup:       `var target = { tagName: 'P', parentElement: document };`,
			wantBlocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.eval(t, tt.setup)
			h.eval(t, `var ev = click(target);`)

			assert.Equal(t, tt.wantBlocked, h.eval(t, `ev.prevented`).ToBoolean())
			assert.Equal(t, tt.wantBlocked, h.eval(t, `ev.stopped`).ToBoolean())
			assert.Equal(t, "https://app.test/haunted", h.eval(t, `window.location.href`).String())
		})
	}
}

func TestLockdownSwallowsLocationWrites(t *testing.T) {
	h := newJSHarness(t, extractLockdown(t))

	h.eval(t, `window.location = 'https://elsewhere.test/';`)
	assert.Equal(t, "https://app.test/haunted", h.eval(t, `window.location.href`).String())
	assert.Contains(t, strings.Join(h.logs, "\n"), "Location change blocked: https://elsewhere.test/")
}

func TestLockdownCancelsSubmit(t *testing.T) {
	h := newJSHarness(t, extractLockdown(t))

	h.eval(t, `var sub = newEvent({ tagName: 'FORM' }); listeners.submit.fn(sub);`)
	assert.True(t, h.eval(t, `sub.prevented`).ToBoolean())
	assert.True(t, h.eval(t, `sub.stopped`).ToBoolean())
}

func TestLockdownSealedLocationStillRuns(t *testing.T) {
	// Browsers refuse to redefine window.location; the script must not abort.
	h := newJSHarness(t, `Object.defineProperty(window, 'location', { value: window.location, configurable: false, writable: false });`+"\n"+lockdownScript)

	logs := strings.Join(h.logs, "\n")
	assert.Contains(t, logs, "Location is sealed by the browser")
	assert.Contains(t, logs, "All navigation locked")
	assert.NotNil(t, h.eval(t, `listeners.click`).Export())
}

func TestLockdownScheduleMessages(t *testing.T) {
	h := newJSHarness(t, lockdownScript)

	assert.Equal(t, []int64{3000, 7000, 12000}, h.delays)
	require.NotEmpty(t, h.logs)
	assert.Contains(t, h.logs[len(h.logs)-1], "Connection established with the void")
}
