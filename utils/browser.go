package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/config"
)

// ErrLaunchFailed is returned when the browser cannot be started, including
// the forced-headless retry.
var ErrLaunchFailed = fmt.Errorf("browser launch failed")

// Browser owns the single Chrome instance and its persistent profile. One
// running instance owns the profile directory at a time; there is no
// in-process concurrency to arbitrate.
type Browser struct {
	Ctx     context.Context
	cancels []context.CancelFunc
}

// LaunchBrowser starts Chrome against the configured profile directory. The
// site session (cookies, login) lives in that profile, so the same flags are
// used on every run. A launch failure is retried exactly once with headless
// mode forced on; a second failure is fatal to the process.
func LaunchBrowser(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Browser, error) {
	if err := os.MkdirAll(cfg.UserDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user data dir: %w", err)
	}

	b, err := launch(ctx, cfg, cfg.Headless)
	if err == nil {
		return b, nil
	}
	logger.Warn("Browser launch failed, retrying in headless mode", zap.Error(err))

	b, retryErr := launch(ctx, cfg, true)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %v (headless retry: %v)", ErrLaunchFailed, err, retryErr)
	}
	return b, nil
}

func launch(ctx context.Context, cfg *config.Config, headless bool) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(cfg.UserDataDir),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// chromedp starts Chrome lazily; force the start so a broken install
	// fails here and not halfway through the first product.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	return &Browser{
		Ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}, nil
}

// Close shuts the browser down. In-flight form state is abandoned.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}
