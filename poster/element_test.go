package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

// fakeElement models one page element for the in-memory page below.
type fakeElement struct {
	css     string // matched literally against css descriptors
	label   string
	role    string
	name    string
	visible bool
	enabled bool
	tagName string
	marker  string
}

// fakePage stands in for the live page: it interprets the scripts the
// resolver and step components send through the eval seam, against a fixed
// element list. Marker assignment is sticky, like the real tagging.
type fakePage struct {
	t           *testing.T
	elements    []*fakeElement
	suggestions []suggestion
	nextID      int

	resolved []Descriptor
	clicked  []string
	checked  []string
	filled   []string
}

var (
	argsRe   = regexp.MustCompile(`\}\)\((.*)\)\s*$`)
	markerRe = regexp.MustCompile(markerAttr + `=\\?"([^"\\]+)`)
)

func parseResolveArgs(t *testing.T, script string) Descriptor {
	t.Helper()
	m := argsRe.FindStringSubmatch(script)
	require.NotNil(t, m, "resolve script carries no argument tuple")
	var args []interface{}
	require.NoError(t, json.Unmarshal([]byte("["+m[1]+"]"), &args))
	require.Len(t, args, 6)
	return Descriptor{
		Kind:     args[0].(string),
		Value:    args[1].(string),
		Role:     args[2].(string),
		Exact:    args[3].(bool),
		Presence: args[4].(bool),
	}
}

func markerFrom(script string) string {
	if m := markerRe.FindStringSubmatch(script); m != nil {
		return m[1]
	}
	return ""
}

func put(out interface{}, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (p *fakePage) selectorFor(el *fakeElement) string {
	if el.marker == "" {
		p.nextID++
		el.marker = fmt.Sprintf("mp-%d", p.nextID)
	}
	return fmt.Sprintf(`[%s="%s"]`, markerAttr, el.marker)
}

func nameMatches(have, want string, exact bool) bool {
	h, w := strings.ToLower(have), strings.ToLower(want)
	if exact {
		return h == w
	}
	return strings.Contains(h, w)
}

func (p *fakePage) find(d Descriptor) *fakeElement {
	for _, el := range p.elements {
		if !d.Presence && (!el.visible || !el.enabled) {
			continue
		}
		switch d.Kind {
		case "css":
			if el.css == d.Value {
				return el
			}
		case "label", "placeholder":
			if el.label != "" && nameMatches(el.label, d.Value, false) {
				return el
			}
		case "role":
			if el.role == d.Role && nameMatches(el.name, d.Value, d.Exact) {
				return el
			}
		case "text":
			if el.name != "" && nameMatches(el.name, d.Value, d.Exact) {
				return el
			}
		}
	}
	return nil
}

func (p *fakePage) eval(ctx context.Context, script string, out interface{}) error {
	switch {
	case strings.HasPrefix(script, "(function(kind"):
		d := parseResolveArgs(p.t, script)
		p.resolved = append(p.resolved, d)
		el := p.find(d)
		if el == nil {
			return put(out, json.RawMessage("null"))
		}
		return put(out, Element{Selector: p.selectorFor(el), Tag: el.tagName})
	case strings.Contains(script, "input[type='radio']"):
		return put(out, p.suggestions)
	case strings.Contains(script, `[role="listbox"]`):
		return put(out, json.RawMessage("null"))
	case strings.Contains(script, "el.checked"):
		p.checked = append(p.checked, markerFrom(script))
		return put(out, true)
	case strings.Contains(script, "el.click()"):
		p.clicked = append(p.clicked, markerFrom(script))
		return put(out, true)
	case strings.Contains(script, "isContentEditable"):
		p.filled = append(p.filled, markerFrom(script))
		return put(out, true)
	case strings.Contains(script, "'value' in el"):
		return put(out, "")
	}
	return put(out, json.RawMessage("null"))
}

func newFakeResolver(page *fakePage) *Resolver {
	return &Resolver{eval: page.eval, log: zap.NewNop()}
}

func TestResolveIsIdempotent(t *testing.T) {
	page := &fakePage{t: t, elements: []*fakeElement{
		{label: "Titel", tagName: "input", visible: true, enabled: true},
		{label: "Prijs", tagName: "input", visible: true, enabled: true},
	}}
	r := newFakeResolver(page)
	ctx := context.Background()

	first, ok := r.Resolve(ctx, ByLabel("Titel"))
	require.True(t, ok)

	// an unrelated resolution in between must not disturb the handle
	_, ok = r.Resolve(ctx, ByLabel("Prijs"))
	require.True(t, ok)

	second, ok := r.Resolve(ctx, ByLabel("Titel"))
	require.True(t, ok)
	assert.Equal(t, first.Selector, second.Selector)

	third, ok := r.Resolve(ctx, ByLabel("Prijs"))
	require.True(t, ok)
	assert.NotEqual(t, first.Selector, third.Selector)
}

func TestResolveCascadeOrder(t *testing.T) {
	page := &fakePage{t: t, elements: []*fakeElement{
		{label: "Beschrijving", tagName: "textarea", visible: true, enabled: true},
	}}
	r := newFakeResolver(page)
	ctx := context.Background()

	// first strategy misses, second hits
	el, ok := r.Resolve(ctx, ByCSS("#nope"), ByLabel("Beschrijving"))
	require.True(t, ok)
	assert.Equal(t, "textarea", el.Tag)

	// nothing matches
	_, ok = r.Resolve(ctx, ByCSS("#nope"), ByRole("button", "Verder", true))
	assert.False(t, ok)
}

func TestResolveSkipsInvisibleUnlessPresence(t *testing.T) {
	page := &fakePage{t: t, elements: []*fakeElement{
		{css: "input[type='file']", tagName: "input", visible: false, enabled: true},
	}}
	r := newFakeResolver(page)
	ctx := context.Background()

	_, ok := r.Resolve(ctx, ByCSS("input[type='file']"))
	assert.False(t, ok, "hidden element must not match the normal strategy")

	el, ok := r.Resolve(ctx, ByCSSPresence("input[type='file']"))
	require.True(t, ok, "presence strategy must find hidden elements")
	assert.Equal(t, "input", el.Tag)
}

func TestUploadFindsHiddenFileInput(t *testing.T) {
	page := &fakePage{t: t, elements: []*fakeElement{
		{css: "input[type='file'][multiple]", tagName: "input", visible: false, enabled: true},
	}}
	u := NewUploader(newFakeResolver(page), Delays{}, t.TempDir(), zap.NewNop())

	photo := filepath.Join(t.TempDir(), "a.jpg")
	writeFile(t, photo)

	// the upload itself needs a live browser and is swallowed best-effort;
	// what matters is that the hidden input resolved at all
	require.NoError(t, u.Upload(context.Background(), models.Product{Photos: []string{photo}}))

	var sawPresence bool
	for _, d := range page.resolved {
		if d.Kind == "css" && d.Presence && d.Value == "input[type='file'][multiple]" {
			sawPresence = true
		}
	}
	assert.True(t, sawPresence, "file input cascade must resolve on presence")
}
