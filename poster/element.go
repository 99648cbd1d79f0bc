package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrElementNotFound signals an exhausted descriptor cascade. It is an
// expected, frequent outcome: callers of optional fields log it and move on.
var ErrElementNotFound = errors.New("element not found")

// Element is a handle to a resolved page element. The selector targets a
// unique marker attribute stamped on the element during resolution, so the
// same handle keeps working as long as the element stays in the DOM.
type Element struct {
	Selector string `json:"selector"`
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	Value    string `json:"value"`
}

// Descriptor names a logical target on the page. Kind selects the matching
// strategy; the resolver tries descriptors in the order given.
type Descriptor struct {
	Kind     string // "css", "label", "placeholder", "role", "text"
	Value    string
	Role     string // for Kind "role": "button" or "link"
	Exact    bool   // exact accessible-name/text match instead of substring
	Presence bool   // match on presence alone, skipping visibility checks
}

func ByCSS(selector string) Descriptor     { return Descriptor{Kind: "css", Value: selector} }
func ByLabel(label string) Descriptor      { return Descriptor{Kind: "label", Value: label} }
func ByPlaceholder(text string) Descriptor { return Descriptor{Kind: "placeholder", Value: text} }

// ByCSSPresence matches the first element for the selector regardless of
// visibility. File inputs sit hidden behind styled dropzones, so the normal
// visible-and-enabled filter would never find them.
func ByCSSPresence(selector string) Descriptor {
	return Descriptor{Kind: "css", Value: selector, Presence: true}
}

func ByRole(role, name string, exact bool) Descriptor {
	return Descriptor{Kind: "role", Value: name, Role: role, Exact: exact}
}

func ByText(text string, exact bool) Descriptor {
	return Descriptor{Kind: "text", Value: text, Exact: exact}
}

// markerAttr tags resolved elements so they can be addressed by a stable,
// unique selector. An already-tagged element keeps its tag, which makes
// repeated resolution of the same target return the same selector.
const markerAttr = "data-mp-poster-id"

// resolveScript runs one strategy in the page and returns the first visible,
// enabled match in DOM order, or null. All data extraction happens inside
// the browser in one evaluation, so there is no racing against the DOM.
const resolveScript = `(function(kind, value, role, exact, presence, cap) {
	const ATTR = '` + markerAttr + `';
	function visible(el) {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.display !== 'none' && s.visibility !== 'hidden';
	}
	function enabled(el) {
		return !el.disabled && el.getAttribute('aria-disabled') !== 'true';
	}
	function norm(t) { return (t || '').trim().toLowerCase(); }
	function tag(el) {
		let id = el.getAttribute(ATTR);
		if (!id) {
			id = 'mp-' + Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			el.setAttribute(ATTR, id);
		}
		return {
			selector: '[' + ATTR + '="' + id + '"]',
			tag: el.tagName.toLowerCase(),
			text: (el.innerText || el.textContent || '').trim().slice(0, 160),
			value: ('value' in el) ? String(el.value || '') : ''
		};
	}
	function firstMatch(nodes, pred) {
		let seen = 0;
		for (const el of nodes) {
			if (seen++ >= cap) break;
			if (!presence && (!visible(el) || !enabled(el))) continue;
			if (pred(el)) return el;
		}
		return null;
	}

	const want = norm(value);
	let el = null;

	if (kind === 'css') {
		let nodes;
		try { nodes = document.querySelectorAll(value); } catch (e) { return null; }
		el = firstMatch(nodes, () => true);
	} else if (kind === 'label') {
		for (const lab of document.querySelectorAll('label')) {
			if (!norm(lab.textContent).includes(want)) continue;
			let target = null;
			const forId = lab.getAttribute('for');
			if (forId) target = document.getElementById(forId);
			if (!target) target = lab.querySelector('input, textarea, select');
			if (target && visible(target) && enabled(target)) { el = target; break; }
		}
		if (!el) {
			el = firstMatch(document.querySelectorAll('[aria-label]'),
				n => norm(n.getAttribute('aria-label')).includes(want));
		}
	} else if (kind === 'placeholder') {
		el = firstMatch(document.querySelectorAll('input[placeholder], textarea[placeholder]'),
			n => norm(n.getAttribute('placeholder')).includes(want));
	} else if (kind === 'role') {
		const sel = role === 'link'
			? 'a[href], [role="link"]'
			: 'button, input[type="submit"], input[type="button"], [role="button"]';
		el = firstMatch(document.querySelectorAll(sel), n => {
			const name = norm(n.getAttribute('aria-label') || n.innerText || n.textContent || n.value || '');
			return exact ? name === want : name.includes(want);
		});
	} else if (kind === 'text') {
		const sel = 'a, button, [role="button"], [role="link"], [onclick], li, span, label, div';
		el = firstMatch(document.querySelectorAll(sel), n => {
			const t = norm(n.innerText || n.textContent);
			if (t === '') return false;
			if (exact) return t === want;
			// Containment only counts on elements whose text is mostly the
			// wanted fragment; otherwise every ancestor container matches.
			return t.includes(want) && t.length < want.length + 80;
		});
	}

	return el ? tag(el) : null;
})(%s, %s, %s, %t, %t, %d)`

// pageEval evaluates a script against the live page. Resolver and the step
// components all route their page access through it; tests substitute an
// in-memory page.
type pageEval func(ctx context.Context, script string, out interface{}) error

// Resolver translates logical field descriptors into concrete page elements
// through an ordered strategy cascade. It never lets a miss escape as an
// error past ErrElementNotFound; whether that is fatal is the caller's call.
type Resolver struct {
	eval pageEval
	log  *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{eval: evalJS, log: logger.Named("resolver")}
}

// Resolve tries each descriptor in order and returns the first strategy's
// first visible, enabled DOM-order match.
func (r *Resolver) Resolve(ctx context.Context, descs ...Descriptor) (Element, bool) {
	for _, d := range descs {
		el, ok, err := r.resolveOne(ctx, d)
		if err != nil {
			r.log.Debug("strategy evaluation failed",
				zap.String("kind", d.Kind), zap.String("value", d.Value), zap.Error(err))
			continue
		}
		if ok {
			r.log.Debug("resolved element",
				zap.String("kind", d.Kind), zap.String("value", d.Value), zap.String("tag", el.Tag))
			return el, true
		}
	}
	if len(descs) > 0 {
		r.log.Debug("no strategy matched", zap.String("first", descs[0].Value))
	}
	return Element{}, false
}

func (r *Resolver) resolveOne(ctx context.Context, d Descriptor) (Element, bool, error) {
	script := fmt.Sprintf(resolveScript,
		jsonEncode(d.Kind), jsonEncode(d.Value), jsonEncode(d.Role), d.Exact, d.Presence, CandidateScanLimit)

	var raw json.RawMessage
	if err := r.eval(ctx, script, &raw); err != nil {
		return Element{}, false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return Element{}, false, nil
	}
	var el Element
	if err := json.Unmarshal(raw, &el); err != nil {
		return Element{}, false, fmt.Errorf("decode resolve result: %w", err)
	}
	return el, true, nil
}

// Click scrolls the element into view and clicks it, falling back to a
// programmatic click when the normal one is intercepted by overlays.
func (r *Resolver) Click(ctx context.Context, el Element) error {
	err := chromedp.Run(ctx,
		chromedp.ScrollIntoView(el.Selector, chromedp.ByQuery),
		chromedp.Click(el.Selector, chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	r.log.Debug("normal click failed, trying programmatic click",
		zap.String("selector", el.Selector), zap.Error(err))

	var ok bool
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.click();
		return true;
	})(%s)`, jsonEncode(el.Selector))
	if err := r.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return nil
}

// Fill sets the element's value. Form inputs get a value assignment plus
// input/change events so reactive frameworks pick the change up; rich-text
// surfaces (contenteditable) get their text content replaced.
func (r *Resolver) Fill(ctx context.Context, el Element, text string) error {
	script := fmt.Sprintf(`(function(sel, text) {
		const el = document.querySelector(sel);
		if (!el) return false;
		if (el.isContentEditable) {
			el.focus();
			el.innerText = text;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			return true;
		}
		if (el.disabled || el.readOnly) return false;
		el.focus();
		el.value = text;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})(%s, %s)`, jsonEncode(el.Selector), jsonEncode(text))

	var ok bool
	if err := r.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return nil
}

// InputValue reads the element's current value.
func (r *Resolver) InputValue(ctx context.Context, el Element) (string, error) {
	var value string
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return '';
		if ('value' in el) return String(el.value || '');
		return (el.innerText || '').trim();
	})(%s)`, jsonEncode(el.Selector))
	if err := r.eval(ctx, script, &value); err != nil {
		return "", err
	}
	return value, nil
}

// Check checks a radio button or checkbox through a real click so the site's
// own handlers run.
func (r *Resolver) Check(ctx context.Context, el Element) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		if (!el.checked) el.click();
		return true;
	})(%s)`, jsonEncode(el.Selector))
	var ok bool
	if err := r.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return nil
}

// SelectOption picks an option on a <select>, matching the option label
// (exact, then substring) or the value attribute.
func (r *Resolver) SelectOption(ctx context.Context, el Element, want string, byValue bool) error {
	script := fmt.Sprintf(`(function(sel, want, byValue) {
		const s = document.querySelector(sel);
		if (!s || s.tagName !== 'SELECT') return false;
		const w = want.trim().toLowerCase();
		function pick(o) {
			s.value = o.value;
			s.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
		for (const o of s.options) {
			if (o.disabled) continue;
			if (byValue) {
				if ((o.value || '').toLowerCase() === w) return pick(o);
			} else if ((o.textContent || '').trim().toLowerCase() === w) {
				return pick(o);
			}
		}
		if (!byValue) {
			for (const o of s.options) {
				if (o.disabled) continue;
				if ((o.textContent || '').trim().toLowerCase().includes(w)) return pick(o);
			}
		}
		return false;
	})(%s, %s, %t)`, jsonEncode(el.Selector), jsonEncode(want), byValue)

	var ok bool
	if err := r.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return nil
}

// evalJS evaluates a script in the page and unmarshals the by-value result.
func evalJS(ctx context.Context, script string, out interface{}) error {
	return chromedp.Run(ctx,
		chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithSilent(true)
		}),
	)
}

func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
