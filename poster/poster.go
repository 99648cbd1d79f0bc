package poster

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/config"
	"github.com/media2net/marktplaats-poster/models"
)

// Poster drives the live listing form in a browser tab. It implements the
// step sequence the orchestrator walks for each product.
type Poster struct {
	cfg    *config.Config
	res    *Resolver
	nav    *Navigator
	filler *Filler
	upload *Uploader
	pub    *Publisher
	stats  *StatsScraper
	delays Delays
	log    *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Poster {
	delays := NewDelays(cfg.FastMode)
	res := NewResolver(logger)
	return &Poster{
		cfg:    cfg,
		res:    res,
		nav:    NewNavigator(res, delays, logger),
		filler: NewFiller(res, delays, logger),
		upload: NewUploader(res, delays, cfg.MediaRoot, logger),
		pub:    NewPublisher(res, delays, logger),
		stats:  NewStatsScraper(delays, logger),
		delays: delays,
		log:    logger.Named("poster"),
	}
}

// navCtx and stepCtx bound individual page operations so one hung
// navigation or form step cannot stall the whole batch.
func (p *Poster) navCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.NavTimeout)
}

func (p *Poster) stepCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.StepTimeout)
}

// pause is the configured extra settle time between successive form steps,
// on top of the per-interaction delay tiers.
func (p *Poster) pause(ctx context.Context) {
	if p.cfg.ActionDelay > 0 {
		Sleep(ctx, p.cfg.ActionDelay)
	}
}

// EnsureLoggedIn opens the homepage so the persisted profile's session
// cookies get exercised, and dismisses the cookie wall when present. The
// actual login is done once, manually, against the same profile directory.
func (p *Poster) EnsureLoggedIn(ctx context.Context) error {
	ctx, cancel := p.navCtx(ctx)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.BaseURL)); err != nil {
		return fmt.Errorf("open homepage: %w", err)
	}
	Sleep(ctx, p.delays.Navigation)
	p.acceptCookies(ctx)
	return ctx.Err()
}

func (p *Poster) acceptCookies(ctx context.Context) {
	for _, name := range []string{"accepte", "akkoord"} {
		if el, ok := p.res.Resolve(ctx, ByRole("button", name, false)); ok {
			if err := p.res.Click(ctx, el); err == nil {
				p.log.Debug("cookie wall dismissed", zap.String("button", name))
				Sleep(ctx, p.delays.Short)
				return
			}
		}
	}
}

// OpenListingForm navigates to the place-ad page, falling back to the
// "Plaats advertentie" link when the direct URL redirects elsewhere.
func (p *Poster) OpenListingForm(ctx context.Context) error {
	ctx, cancel := p.navCtx(ctx)
	defer cancel()

	target := strings.TrimRight(p.cfg.BaseURL, "/") + "/plaats"
	if err := chromedp.Run(ctx, chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("open listing form: %w", err)
	}
	Sleep(ctx, p.delays.Navigation)
	p.acceptCookies(ctx)

	if p.onListingForm(ctx) {
		return nil
	}
	if el, ok := p.res.Resolve(ctx,
		ByRole("link", "Plaats advertentie", false),
		ByRole("button", "Plaats advertentie", false)); ok {
		if err := p.res.Click(ctx, el); err == nil {
			Sleep(ctx, p.delays.Navigation)
		}
	}
	if !p.onListingForm(ctx) {
		return fmt.Errorf("listing form did not appear")
	}
	return nil
}

func (p *Poster) onListingForm(ctx context.Context) bool {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return false
	}
	if strings.Contains(url, "/plaats") {
		return true
	}
	_, ok := p.res.Resolve(ctx, ByCSS(FindCategoryButtonSelector), ByLabel(TitleLabel))
	return ok
}

func (p *Poster) SelectCategory(ctx context.Context, product models.Product) error {
	ctx, cancel := p.stepCtx(ctx)
	defer cancel()
	err := p.nav.Navigate(ctx, product.Title, product.CategoryPath)
	p.pause(ctx)
	return err
}

func (p *Poster) FillFields(ctx context.Context, product models.Product) error {
	ctx, cancel := p.stepCtx(ctx)
	defer cancel()
	err := p.filler.Fill(ctx, product)
	p.pause(ctx)
	return err
}

func (p *Poster) UploadPhotos(ctx context.Context, product models.Product) error {
	ctx, cancel := p.stepCtx(ctx)
	defer cancel()
	err := p.upload.Upload(ctx, product)
	p.pause(ctx)
	return err
}

// SelectFreeTier picks the free listing bundle when the site offers paid
// upgrades. Absence of the chooser is normal for some categories.
func (p *Poster) SelectFreeTier(ctx context.Context) error {
	ctx, cancel := p.stepCtx(ctx)
	defer cancel()
	defer p.pause(ctx)

	el, ok := p.res.Resolve(ctx, ByCSS(FreeBundleSelector))
	if !ok {
		p.log.Debug("no bundle chooser on page")
		return ctx.Err()
	}
	if err := p.res.Click(ctx, el); err != nil {
		p.log.Warn("free bundle click failed", zap.Error(err))
		return ctx.Err()
	}
	Sleep(ctx, p.delays.Short)
	// Some variants confirm the choice with a separate button.
	if chooser, found := p.res.Resolve(ctx, ByRole("button", "Kiezen", false)); found {
		if err := p.res.Click(ctx, chooser); err == nil {
			Sleep(ctx, p.delays.Short)
		}
	}
	p.log.Info("free bundle selected")
	return ctx.Err()
}

func (p *Poster) Publish(ctx context.Context) (string, error) {
	ctx, cancel := p.stepCtx(ctx)
	defer cancel()
	return p.pub.Publish(ctx)
}

func (p *Poster) ScrapeStats(ctx context.Context, adURL string) (models.AdStats, error) {
	ctx, cancel := p.navCtx(ctx)
	defer cancel()
	return p.stats.Scrape(ctx, adURL)
}
