package poster

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

var (
	viewsRe    = regexp.MustCompile(`(?i)(\d+)x\s+bekeken`)
	savesRe    = regexp.MustCompile(`(?i)(\d+)x\s+bewaard`)
	sinceRe    = regexp.MustCompile(`(?i)Sinds[ \t]+([^\n]+)`)
	adIDPathRe = regexp.MustCompile(`/a(\d+)-`)
	adNumberRe = regexp.MustCompile(`(?i)Advertentienummer:?\s*(\d+)`)
)

// ParseAdID extracts the ad ID from an ad URL, or "" when the URL does not
// carry one. The "a" prefix is kept; downstream consumers correlate on the
// id in that form (a1519860984).
func ParseAdID(url string) string {
	if m := adIDPathRe.FindStringSubmatch(url); m != nil {
		return "a" + m[1]
	}
	return ""
}

// ParseStatsText pulls view/save counters and the posting date out of the
// visible text of an ad page.
func ParseStatsText(text string) models.AdStats {
	var stats models.AdStats
	if m := viewsRe.FindStringSubmatch(text); m != nil {
		stats.Views, _ = strconv.Atoi(m[1])
	}
	if m := savesRe.FindStringSubmatch(text); m != nil {
		stats.Saves, _ = strconv.Atoi(m[1])
	}
	if m := sinceRe.FindStringSubmatch(text); m != nil {
		stats.PostedAt = strings.TrimSpace(m[1])
	}
	return stats
}

// StatsScraper revisits a freshly published ad and reads its counters back.
type StatsScraper struct {
	delays Delays
	log    *zap.Logger
}

func NewStatsScraper(delays Delays, logger *zap.Logger) *StatsScraper {
	return &StatsScraper{delays: delays, log: logger.Named("stats")}
}

// Scrape navigates to the ad page and parses views, saves, posting date and
// the ad ID. Missing counters stay at their zero values; only navigation
// failures are errors.
func (s *StatsScraper) Scrape(ctx context.Context, adURL string) (models.AdStats, error) {
	var stats models.AdStats
	if err := chromedp.Run(ctx, chromedp.Navigate(adURL)); err != nil {
		return stats, err
	}
	Sleep(ctx, s.delays.Navigation)

	var text string
	if err := evalJS(ctx, `document.body ? document.body.innerText : ''`, &text); err != nil {
		return stats, err
	}
	stats = ParseStatsText(text)

	stats.AdID = ParseAdID(adURL)
	if stats.AdID == "" {
		if m := adNumberRe.FindStringSubmatch(text); m != nil {
			stats.AdID = "a" + m[1]
		}
	}

	s.log.Info("ad stats scraped",
		zap.String("ad_id", stats.AdID),
		zap.Int("views", stats.Views),
		zap.Int("saves", stats.Saves),
		zap.String("posted_at", stats.PostedAt))
	return stats, nil
}
