package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

// categoryRadioScript finds a radio in the named group whose value attribute
// or associated label matches the wanted text.
const categoryRadioScript = `(function(name, want) {
	const ATTR = '` + markerAttr + `';
	function tag(el) {
		let id = el.getAttribute(ATTR);
		if (!id) {
			id = 'mp-' + Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			el.setAttribute(ATTR, id);
		}
		return '[' + ATTR + '="' + id + '"]';
	}
	function labelText(r) {
		if (r.id) {
			const l = document.querySelector('label[for="' + CSS.escape(r.id) + '"]');
			if (l) return l.textContent || '';
		}
		const l = r.closest('label');
		return l ? (l.textContent || '') : '';
	}
	const w = want.trim().toLowerCase();
	const radios = [];
	for (const r of document.querySelectorAll('input[type="radio"]')) {
		if (!r.disabled && r.name === name) radios.push(r);
	}
	for (const r of radios) {
		if ((r.value || '').trim().toLowerCase() === w) return tag(r);
	}
	for (const r of radios) {
		if (labelText(r).trim().toLowerCase().includes(w)) return tag(r);
	}
	return null;
})(%s, %s)`

// labelScanScript is the last-resort tier: walk every label on the page,
// match its text against the field name, and follow the for/id relationship
// (or nesting) to the control it describes.
const labelScanScript = `(function(name) {
	const ATTR = '` + markerAttr + `';
	function tag(el) {
		let id = el.getAttribute(ATTR);
		if (!id) {
			id = 'mp-' + Date.now() + '-' + Math.random().toString(36).slice(2, 10);
			el.setAttribute(ATTR, id);
		}
		return '[' + ATTR + '="' + id + '"]';
	}
	const w = name.trim().toLowerCase();
	for (const lab of document.querySelectorAll('label, [data-label]')) {
		const t = (lab.textContent || lab.getAttribute('data-label') || '').trim().toLowerCase();
		if (t === '' || !t.includes(w)) continue;
		let target = null;
		const forId = lab.getAttribute('for');
		if (forId) target = document.getElementById(forId);
		if (!target && lab.querySelector) target = lab.querySelector('input, textarea, select');
		if (!target || target.disabled) continue;
		return { selector: tag(target), tag: target.tagName.toLowerCase() };
	}
	return null;
})(%s)`

// Filler populates the scalar fields and the open-ended category fields on
// the listing form. Every field is attempted independently: a miss is
// logged and the rest of the form still gets filled.
type Filler struct {
	res    *Resolver
	delays Delays
	log    *zap.Logger
}

func NewFiller(res *Resolver, delays Delays, logger *zap.Logger) *Filler {
	return &Filler{res: res, delays: delays, log: logger.Named("fields")}
}

// Fill applies the product to the form. The only error it returns is a dead
// context; individual field failures never block the remaining fields.
func (f *Filler) Fill(ctx context.Context, p models.Product) error {
	f.fillTitle(ctx, p.Title)
	f.fillDescription(ctx, p.Description)
	f.fillPrice(ctx, p.Price)
	if p.Condition != "" {
		f.applyCategoryField(ctx, "condition", p.Condition)
	}
	f.fillDelivery(ctx, p.DeliveryOption)
	f.fillLocation(ctx, p.Location)

	names := make([]string, 0, len(p.CategoryFields))
	for name := range p.CategoryFields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f.applyCategoryField(ctx, name, p.CategoryFields[name])
	}
	return ctx.Err()
}

// fillTitle only writes when the field is still empty; the category
// suggestion step usually pre-fills it.
func (f *Filler) fillTitle(ctx context.Context, title string) {
	el, ok := f.res.Resolve(ctx, ByLabel(TitleLabel), ByPlaceholder(TitleLabel))
	if !ok {
		f.log.Warn("title field not found, skipping")
		return
	}
	current, err := f.res.InputValue(ctx, el)
	if err == nil && current != "" {
		f.log.Debug("title already filled", zap.String("value", current))
		return
	}
	if err := f.res.Fill(ctx, el, title); err != nil {
		f.log.Warn("title fill failed", zap.Error(err))
	}
}

// fillDescription prefers the rich-text editor surface and falls back to a
// plain labeled field.
func (f *Filler) fillDescription(ctx context.Context, description string) {
	el, ok := f.res.Resolve(ctx,
		ByCSS(RichTextEditorSelector),
		ByLabel(DescriptionLabel),
		ByPlaceholder(DescriptionLabel),
	)
	if !ok {
		f.log.Warn("description field not found, skipping")
		return
	}
	if err := f.res.Fill(ctx, el, description); err != nil {
		f.log.Warn("description fill failed", zap.Error(err))
	}
}

func (f *Filler) fillPrice(ctx context.Context, price string) {
	el, ok := f.res.Resolve(ctx,
		ByCSS(PriceInputSelector),
		ByLabel(PriceLabel),
		ByCSS(PriceInputNameSelector),
	)
	if !ok {
		f.log.Warn("price field not found, skipping")
		return
	}
	if err := f.res.Fill(ctx, el, price); err != nil {
		f.log.Warn("price fill failed", zap.Error(err))
	}
}

func (f *Filler) fillDelivery(ctx context.Context, option string) {
	if option == "" {
		return
	}
	if f.checkRadio(ctx, "deliveryMethod", option) {
		return
	}
	el, ok := f.res.Resolve(ctx, ByLabel(option))
	if !ok {
		f.log.Warn("delivery option not found", zap.String("option", option))
		return
	}
	if err := f.res.Check(ctx, el); err != nil {
		f.log.Warn("delivery option check failed", zap.String("option", option), zap.Error(err))
	}
}

func (f *Filler) fillLocation(ctx context.Context, location string) {
	if location == "" {
		return
	}
	el, ok := f.res.Resolve(ctx, ByLabel(LocationLabel), ByPlaceholder(LocationLabel))
	if !ok {
		f.log.Warn("location field not found, skipping")
		return
	}
	if err := f.res.Fill(ctx, el, location); err != nil {
		f.log.Warn("location fill failed", zap.Error(err))
	}
}

// applyCategoryField resolves one open-ended category attribute through the
// tier cascade: select, radio group, plain input, then a page-wide label
// scan. Each tier only runs when the previous one found nothing.
func (f *Filler) applyCategoryField(ctx context.Context, name, value string) {
	if value == "" {
		return
	}
	for _, variant := range FieldNameVariants(name) {
		sel := fmt.Sprintf("select[name='%s']", variant)
		if el, ok := f.res.Resolve(ctx, ByCSS(sel)); ok {
			if err := f.res.SelectOption(ctx, el, value, false); err == nil {
				f.log.Info("category field set via select", zap.String("field", name))
				return
			}
			if err := f.res.SelectOption(ctx, el, value, true); err == nil {
				f.log.Info("category field set via select value", zap.String("field", name))
				return
			}
		}
	}
	for _, variant := range FieldNameVariants(name) {
		if f.checkRadio(ctx, variant, value) {
			f.log.Info("category field set via radio", zap.String("field", name))
			return
		}
	}
	for _, variant := range FieldNameVariants(name) {
		sel := fmt.Sprintf("input[name='%s'], textarea[name='%s']", variant, variant)
		if el, ok := f.res.Resolve(ctx, ByCSS(sel)); ok {
			if err := f.res.Fill(ctx, el, value); err == nil {
				f.log.Info("category field set via input", zap.String("field", name))
				return
			}
		}
	}
	if f.fillByLabelScan(ctx, name, value) {
		f.log.Info("category field set via label scan", zap.String("field", name))
		return
	}
	f.log.Warn("category field not found on form", zap.String("field", name), zap.String("value", value))
}

func (f *Filler) checkRadio(ctx context.Context, groupName, value string) bool {
	script := fmt.Sprintf(categoryRadioScript, jsonEncode(groupName), jsonEncode(value))
	var raw json.RawMessage
	if err := f.res.eval(ctx, script, &raw); err != nil {
		f.log.Debug("radio scan failed", zap.String("group", groupName), zap.Error(err))
		return false
	}
	var selector string
	if err := json.Unmarshal(raw, &selector); err != nil || selector == "" {
		return false
	}
	if err := f.res.Check(ctx, Element{Selector: selector}); err != nil {
		f.log.Debug("radio check failed", zap.String("group", groupName), zap.Error(err))
		return false
	}
	return true
}

func (f *Filler) fillByLabelScan(ctx context.Context, name, value string) bool {
	script := fmt.Sprintf(labelScanScript, jsonEncode(name))
	var raw json.RawMessage
	if err := f.res.eval(ctx, script, &raw); err != nil {
		return false
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var found struct {
		Selector string `json:"selector"`
		Tag      string `json:"tag"`
	}
	if err := json.Unmarshal(raw, &found); err != nil {
		return false
	}
	el := Element{Selector: found.Selector, Tag: found.Tag}
	if found.Tag == "select" {
		return f.res.SelectOption(ctx, el, value, false) == nil
	}
	return f.res.Fill(ctx, el, value) == nil
}
