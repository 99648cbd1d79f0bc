package poster

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
}

// ResolvePhotoPaths turns a product's photo list into absolute paths of
// files that actually exist. Each entry is tried as-is, relative to the
// working directory, then relative to the media root. When nothing survives
// and an article number is known, the conventional per-article folder under
// the media root supplies the photos instead.
func ResolvePhotoPaths(p models.Product, mediaRoot string) []string {
	var resolved []string
	for _, photo := range p.Photos {
		if path, ok := resolveOne(photo, mediaRoot); ok {
			resolved = append(resolved, path)
		}
	}
	if len(resolved) == 0 && p.ArticleNumber != "" {
		resolved = FindPhotosForArticle(mediaRoot, p.ArticleNumber)
	}
	// Files can vanish between resolution and upload (cleanup jobs, temp
	// dirs); re-validate so the browser never sees a dead path.
	kept := resolved[:0]
	for _, path := range resolved {
		if fileExists(path) {
			kept = append(kept, path)
		}
	}
	return kept
}

func resolveOne(photo, mediaRoot string) (string, bool) {
	photo = strings.TrimSpace(photo)
	if photo == "" {
		return "", false
	}
	if filepath.IsAbs(photo) && fileExists(photo) {
		return photo, true
	}
	if abs, err := filepath.Abs(photo); err == nil && fileExists(abs) {
		return abs, true
	}
	if mediaRoot != "" {
		candidate := filepath.Join(mediaRoot, photo)
		if abs, err := filepath.Abs(candidate); err == nil && fileExists(abs) {
			return abs, true
		}
	}
	return "", false
}

// FindPhotosForArticle lists the allowed image files in the article's
// conventional media folder, name-sorted, as absolute paths.
func FindPhotosForArticle(mediaRoot, articleNumber string) []string {
	folder := filepath.Join(mediaRoot, articleNumber)
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !allowedImageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if abs, err := filepath.Abs(filepath.Join(folder, entry.Name())); err == nil {
			files = append(files, abs)
		}
	}
	sort.Strings(files)
	return files
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Uploader resolves a product's photos and hands them to the form's file
// input. A listing without photos is valid, so nothing here is fatal.
type Uploader struct {
	res       *Resolver
	delays    Delays
	mediaRoot string
	log       *zap.Logger
}

func NewUploader(res *Resolver, delays Delays, mediaRoot string, logger *zap.Logger) *Uploader {
	return &Uploader{res: res, delays: delays, mediaRoot: mediaRoot, log: logger.Named("photos")}
}

// Upload submits all resolved photos in one call to the first file input
// the selector cascade finds. Any failure is logged and swallowed: the
// product is posted without photos rather than aborted.
func (u *Uploader) Upload(ctx context.Context, p models.Product) error {
	photos := ResolvePhotoPaths(p, u.mediaRoot)
	if len(photos) == 0 {
		u.log.Info("no photos found for product, skipping upload",
			zap.String("article", p.ArticleNumber))
		return nil
	}

	// File inputs are hidden behind styled dropzones, so resolve on
	// presence alone; the visibility filter would reject every one.
	var input Element
	found := false
	for _, sel := range FileInputSelectors {
		if el, ok := u.res.Resolve(ctx, ByCSSPresence(sel)); ok {
			input, found = el, true
			break
		}
	}
	if !found {
		u.log.Warn("file input not found on page, posting without photos")
		return nil
	}

	u.log.Info("uploading photos", zap.Int("count", len(photos)), zap.Strings("paths", photos))
	err := chromedp.Run(ctx,
		chromedp.SetUploadFiles(input.Selector, photos, chromedp.ByQuery),
	)
	if err != nil {
		u.log.Error("photo upload failed, continuing without photos", zap.Error(err))
		return nil
	}
	Sleep(ctx, u.delays.Long)
	u.confirmPreviews(ctx, len(photos))
	return nil
}

// confirmPreviews is a best-effort check that the page registered the
// upload; it only informs the log.
func (u *Uploader) confirmPreviews(ctx context.Context, expected int) {
	var count int
	script := `(function() {
		return document.querySelectorAll(
			'[data-testid*="photo"] img, [class*="thumb"] img, [class*="preview"] img').length;
	})()`
	if err := u.res.eval(ctx, script, &count); err != nil {
		u.log.Debug("preview check failed", zap.Error(err))
		return
	}
	u.log.Debug("photo previews detected", zap.Int("previews", count), zap.Int("expected", expected))
}
