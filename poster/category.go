package poster

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// suggestionsScript lists the radio-button category suggestions the site
// derives from the title. Suggestion radios are often visually hidden behind
// styled labels, so only disabled ones are skipped.
const suggestionsScript = `(function() {
	const ATTR = '` + markerAttr + `';
	function tag(el) {
		let id = el.getAttribute(ATTR);
		if (!id) {
			id = 'mp-' + Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			el.setAttribute(ATTR, id);
		}
		return '[' + ATTR + '="' + id + '"]';
	}
	const out = [];
	for (const r of document.querySelectorAll("input[type='radio']")) {
		if (r.disabled) continue;
		let label = '';
		if (r.id) {
			const l = document.querySelector('label[for="' + CSS.escape(r.id) + '"]');
			if (l) label = l.textContent;
		}
		if (!label) {
			const l = r.closest('label');
			if (l) label = l.textContent;
		}
		if (!label) label = r.getAttribute('aria-label') || r.value || '';
		out.push({ selector: tag(r), label: label.trim() });
	}
	return out;
})()`

// dropdownOptionsScript inspects the first visible open dropdown-like
// container (listbox, expanded combobox, native select) and returns its
// option-like children.
const dropdownOptionsScript = `(function() {
	const ATTR = '` + markerAttr + `';
	function visible(el) {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.display !== 'none' && s.visibility !== 'hidden';
	}
	function tag(el) {
		let id = el.getAttribute(ATTR);
		if (!id) {
			id = 'mp-' + Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			el.setAttribute(ATTR, id);
		}
		return '[' + ATTR + '="' + id + '"]';
	}
	const containers = document.querySelectorAll(
		'[role="listbox"], [role="combobox"][aria-expanded="true"], select');
	for (const c of containers) {
		if (!visible(c)) continue;
		if (c.tagName === 'SELECT') {
			const options = [];
			for (const o of c.options) {
				if (o.disabled) continue;
				options.push({ selector: '', label: (o.textContent || '').trim(), value: o.value });
			}
			if (options.length > 0) return { container: tag(c), isSelect: true, options: options };
			continue;
		}
		const options = [];
		for (const o of c.querySelectorAll('[role="option"], li, a')) {
			if (!visible(o)) continue;
			const label = (o.innerText || o.textContent || '').trim();
			if (label === '') continue;
			options.push({ selector: tag(o), label: label, value: '' });
		}
		if (options.length > 0) return { container: tag(c), isSelect: false, options: options };
	}
	return null;
})()`

type suggestion struct {
	Selector string `json:"selector"`
	Label    string `json:"label"`
}

type dropdownState struct {
	Container string       `json:"container"`
	IsSelect  bool         `json:"isSelect"`
	Options   []suggestion `json:"options"`
}

// Navigator places the listing form into the product's category: first
// through the site's title-derived suggestion shortlist, then by descending
// the category tree segment by segment.
type Navigator struct {
	res    *Resolver
	delays Delays
	log    *zap.Logger
}

func NewNavigator(res *Resolver, delays Delays, logger *zap.Logger) *Navigator {
	return &Navigator{res: res, delays: delays, log: logger.Named("category")}
}

// Navigate enters the title (suggestions are derived from it), then resolves
// the category path. An empty path means "take the first suggestion". A
// missing intermediate segment is skipped best-effort; only an unresolved
// final segment makes category selection fail, and even then the caller is
// expected to keep filling the form.
func (n *Navigator) Navigate(ctx context.Context, title, categoryPath string) error {
	n.enterTitle(ctx, title)
	n.requestSuggestions(ctx)

	parts := SplitCategoryPath(categoryPath)
	if len(parts) == 0 {
		return n.acceptFirstSuggestion(ctx)
	}

	if n.applySuggestion(ctx, parts[0]) {
		n.log.Info("category suggestion matched", zap.String("segment", parts[0]))
		if len(parts) == 1 {
			n.clickContinue(ctx)
			return nil
		}
		n.clickContinue(ctx)
		return n.descend(ctx, parts[1:])
	}

	n.log.Info("no suggestion matched, descending category tree", zap.Strings("path", parts))
	return n.descend(ctx, parts)
}

func (n *Navigator) enterTitle(ctx context.Context, title string) {
	el, ok := n.res.Resolve(ctx, ByLabel(TitleLabel), ByPlaceholder(TitleLabel))
	if !ok {
		n.log.Warn("title input not found, skipping")
		return
	}
	if err := n.res.Fill(ctx, el, title); err != nil {
		n.log.Warn("could not enter title", zap.Error(err))
	}
}

func (n *Navigator) requestSuggestions(ctx context.Context) {
	el, ok := n.res.Resolve(ctx,
		ByRole("button", FindCategoryText, true),
		ByCSS(FindCategoryButtonSelector),
	)
	if !ok {
		n.log.Debug("find-category button not present")
		return
	}
	if err := n.res.Click(ctx, el); err != nil {
		n.log.Warn("find-category click failed", zap.Error(err))
		return
	}
	Sleep(ctx, n.delays.Medium)
}

func (n *Navigator) acceptFirstSuggestion(ctx context.Context) error {
	suggestions, err := n.listSuggestions(ctx)
	if err != nil || len(suggestions) == 0 {
		n.log.Warn("no category suggestions offered")
		return nil
	}
	if err := n.res.Check(ctx, Element{Selector: suggestions[0].Selector}); err != nil {
		n.log.Warn("could not select first suggestion", zap.Error(err))
		return nil
	}
	Sleep(ctx, n.delays.Short)
	n.clickContinue(ctx)
	return nil
}

// applySuggestion scans the suggestion shortlist for the root segment,
// exact match first, then substring in either direction.
func (n *Navigator) applySuggestion(ctx context.Context, segment string) bool {
	suggestions, err := n.listSuggestions(ctx)
	if err != nil {
		n.log.Debug("suggestion scan failed", zap.Error(err))
		return false
	}
	labels := make([]string, len(suggestions))
	for i, s := range suggestions {
		labels[i] = s.Label
	}
	idx := BestMatch(segment, labels)
	if idx < 0 {
		return false
	}
	if err := n.res.Check(ctx, Element{Selector: suggestions[idx].Selector}); err != nil {
		n.log.Warn("suggestion select failed", zap.String("label", suggestions[idx].Label), zap.Error(err))
		return false
	}
	Sleep(ctx, n.delays.Short)
	return true
}

func (n *Navigator) listSuggestions(ctx context.Context) ([]suggestion, error) {
	var raw json.RawMessage
	if err := n.res.eval(ctx, suggestionsScript, &raw); err != nil {
		return nil, err
	}
	var out []suggestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}

func (n *Navigator) clickContinue(ctx context.Context) {
	el, ok := n.res.Resolve(ctx,
		ByRole("button", ContinueButton, true),
		ByRole("button", ContinueButton, false),
	)
	if !ok {
		n.log.Debug("continue button not present")
		return
	}
	if err := n.res.Click(ctx, el); err != nil {
		n.log.Warn("continue click failed", zap.Error(err))
		return
	}
	Sleep(ctx, n.delays.Navigation)
}

// descend walks the remaining path segments through whatever widgets the
// current category level renders.
func (n *Navigator) descend(ctx context.Context, parts []string) error {
	for i, segment := range parts {
		if n.selectSegment(ctx, segment) {
			Sleep(ctx, n.delays.Medium)
			continue
		}
		if i == len(parts)-1 {
			return fmt.Errorf("category segment %q: %w", segment, ErrElementNotFound)
		}
		n.log.Warn("category segment not found, continuing", zap.String("segment", segment))
	}
	return nil
}

// selectSegment tries, in order: an option in an open dropdown-like
// container, a link, a button, then any clickable text over a bounded scan.
func (n *Navigator) selectSegment(ctx context.Context, segment string) bool {
	if n.selectDropdownOption(ctx, segment) {
		return true
	}
	el, ok := n.res.Resolve(ctx,
		ByRole("link", segment, true),
		ByRole("link", segment, false),
		ByRole("button", segment, true),
		ByRole("button", segment, false),
		ByText(segment, false),
	)
	if !ok {
		return false
	}
	if err := n.res.Click(ctx, el); err != nil {
		n.log.Warn("segment click failed", zap.String("segment", segment), zap.Error(err))
		return false
	}
	return true
}

func (n *Navigator) selectDropdownOption(ctx context.Context, segment string) bool {
	var raw json.RawMessage
	if err := n.res.eval(ctx, dropdownOptionsScript, &raw); err != nil {
		n.log.Debug("dropdown scan failed", zap.Error(err))
		return false
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var state dropdownState
	if err := json.Unmarshal(raw, &state); err != nil {
		n.log.Debug("dropdown decode failed", zap.Error(err))
		return false
	}

	labels := make([]string, len(state.Options))
	for i, o := range state.Options {
		labels[i] = o.Label
	}
	idx := BestMatch(segment, labels)
	if idx < 0 {
		return false
	}

	if state.IsSelect {
		err := n.res.SelectOption(ctx, Element{Selector: state.Container}, state.Options[idx].Label, false)
		if err != nil {
			n.log.Warn("dropdown option select failed", zap.String("segment", segment), zap.Error(err))
			return false
		}
		return true
	}
	if err := n.res.Click(ctx, Element{Selector: state.Options[idx].Selector}); err != nil {
		n.log.Warn("dropdown option click failed", zap.String("segment", segment), zap.Error(err))
		return false
	}
	return true
}
