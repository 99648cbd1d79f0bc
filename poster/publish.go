package poster

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chromedp/chromedp/kb"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var adURLRe = regexp.MustCompile(`/a\d+`)

// nonAdPages are site sections whose URLs can look like ad links but never
// are one (help center, terms, privacy).
var nonAdPages = []string{"/help", "voorwaarden", "/terms", "privacy"}

// IsAdURL reports whether a URL looks like a published ad page.
func IsAdURL(u string) bool {
	lower := strings.ToLower(u)
	if lower == "" {
		return false
	}
	for _, frag := range nonAdPages {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return strings.Contains(lower, "/v/") || adURLRe.MatchString(lower)
}

// collectLinksScript returns the hrefs of all anchors on the page, bounded.
const collectLinksScript = `(function(cap) {
	const out = [];
	let seen = 0;
	for (const a of document.querySelectorAll('a[href]')) {
		if (seen++ >= cap) break;
		out.push(a.href);
	}
	return out;
})(%d)`

// successLinkScript finds the first link inside the container around a
// success message.
const successLinkScript = `(function(fragments) {
	function textOf(el) { return (el.innerText || el.textContent || '').toLowerCase(); }
	for (const frag of fragments) {
		for (const el of document.querySelectorAll('h1, h2, h3, p, div, span')) {
			if (!textOf(el).includes(frag)) continue;
			let node = el;
			for (let depth = 0; node && depth < 4; depth++) {
				const a = node.querySelector ? node.querySelector('a[href]') : null;
				if (a) return a.href;
				node = node.parentElement;
			}
		}
	}
	return '';
})(%s)`

// Publisher fires the final submit through a cascade of candidates and then
// digs the new ad's URL out of whatever page the site lands on.
type Publisher struct {
	res    *Resolver
	delays Delays
	log    *zap.Logger
}

func NewPublisher(res *Resolver, delays Delays, logger *zap.Logger) *Publisher {
	return &Publisher{res: res, delays: delays, log: logger.Named("publish")}
}

// Publish submits the form and returns the published ad's URL, or "" when
// the URL could not be recovered. An empty URL means the post failed for
// this product; it is not an error that should stop the batch.
func (p *Publisher) Publish(ctx context.Context) (string, error) {
	p.submit(ctx)
	Sleep(ctx, p.delays.Navigation)
	url := p.extractAdURL(ctx)
	if url == "" {
		p.log.Warn("ad URL not found after submit")
	} else {
		p.log.Info("ad published", zap.String("url", url))
	}
	return url, ctx.Err()
}

func (p *Publisher) submit(ctx context.Context) {
	if p.clickKnownButton(ctx) {
		return
	}
	// Generic (role, text) candidates in fixed priority order.
	candidates := []Descriptor{
		ByRole("button", "Plaats", false),
		ByRole("button", "Publiceer", false),
		ByRole("button", "Doorgaan", false),
		ByRole("link", "Plaats", false),
	}
	for _, d := range candidates {
		if el, ok := p.res.Resolve(ctx, d); ok {
			if err := p.res.Click(ctx, el); err == nil {
				p.log.Info("submitted via candidate", zap.String("name", d.Value))
				return
			}
		}
	}
	// Localized CTA variants.
	ctaDescs := []Descriptor{ByText("Plaats je advertentie", false)}
	for _, sel := range PlaceAdCTASelectors {
		ctaDescs = append(ctaDescs, ByCSS(sel))
	}
	for _, d := range ctaDescs {
		if el, ok := p.res.Resolve(ctx, d); ok {
			if err := p.res.Click(ctx, el); err == nil {
				p.log.Info("submitted via CTA variant", zap.String("value", d.Value))
				return
			}
		}
	}
	if p.submitLastForm(ctx) {
		return
	}
	p.pressEnter(ctx)
}

func (p *Publisher) clickKnownButton(ctx context.Context) bool {
	el, ok := p.res.Resolve(ctx, ByCSS(PlaceAdButtonSelector))
	if !ok {
		return false
	}
	// Click handles the forced/programmatic fallback internally.
	if err := p.res.Click(ctx, el); err != nil {
		p.log.Warn("place-ad button click failed", zap.Error(err))
		return false
	}
	p.log.Info("submitted via place-ad button")
	return true
}

func (p *Publisher) submitLastForm(ctx context.Context) bool {
	var ok bool
	script := `(function() {
		const forms = document.querySelectorAll('form');
		if (forms.length === 0) return false;
		forms[forms.length - 1].submit();
		return true;
	})()`
	if err := p.res.eval(ctx, script, &ok); err != nil || !ok {
		return false
	}
	p.log.Info("submitted via programmatic form submit")
	return true
}

func (p *Publisher) pressEnter(ctx context.Context) {
	if err := chromedp.Run(ctx, chromedp.KeyEvent(kb.Enter)); err != nil {
		p.log.Warn("enter-key submit failed", zap.Error(err))
		return
	}
	p.log.Info("submitted via enter key")
	Sleep(ctx, p.delays.Medium)
}

// extractAdURL walks the recovery cascade: current location, the "view your
// ad" link, any ad-pattern link, then a link near the success message.
func (p *Publisher) extractAdURL(ctx context.Context) string {
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err == nil && IsAdURL(current) {
		return current
	}

	if el, ok := p.res.Resolve(ctx, ByRole("link", ViewAdLinkText, false)); ok {
		if href := p.linkHref(ctx, el); IsAdURL(href) {
			return href
		}
	}

	var hrefs []string
	script := fmt.Sprintf(collectLinksScript, CandidateScanLimit)
	if err := p.res.eval(ctx, script, &hrefs); err == nil {
		for _, href := range hrefs {
			if IsAdURL(href) {
				return href
			}
		}
	}

	fragments := jsonEncode([]string{"gefeliciteerd", "advertentie is geplaatst", "geplaatst"})
	var near string
	if err := p.res.eval(ctx, fmt.Sprintf(successLinkScript, fragments), &near); err == nil && IsAdURL(near) {
		return near
	}
	return ""
}

func (p *Publisher) linkHref(ctx context.Context, el Element) string {
	var href string
	script := `(function(sel) {
		const a = document.querySelector(sel);
		return a ? (a.href || '') : '';
	})(` + jsonEncode(el.Selector) + `)`
	if err := p.res.eval(ctx, script, &href); err != nil {
		return ""
	}
	return href
}
