package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

// Client talks to the product backend: fetch pending products, download
// their images, and report batch outcomes back.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     logger.Named("api"),
	}
}

// FlexString decodes a JSON value that the backend sends sometimes as a
// string and sometimes as a number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// PendingProduct is the backend's shape for a product awaiting posting.
type PendingProduct struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Price           FlexString        `json:"price"`
	CategoryPath    string            `json:"category_path"`
	Location        string            `json:"location"`
	Photos          []string          `json:"photos"`
	ArticleNumber   string            `json:"article_number"`
	Condition       string            `json:"condition"`
	DeliveryOption  string            `json:"delivery_option"`
	DeliveryMethods []string          `json:"delivery_methods"`
	CategoryFields  map[string]string `json:"category_fields"`
}

func (pp PendingProduct) ToProduct() models.Product {
	fields := pp.CategoryFields
	if fields == nil {
		fields = make(map[string]string)
	}
	delivery := pp.DeliveryOption
	if delivery == "" && len(pp.DeliveryMethods) > 0 {
		delivery = pp.DeliveryMethods[0]
	}
	return models.Product{
		Title:          pp.Title,
		Description:    pp.Description,
		Price:          string(pp.Price),
		CategoryPath:   pp.CategoryPath,
		Location:       pp.Location,
		Photos:         pp.Photos,
		ArticleNumber:  pp.ArticleNumber,
		Condition:      pp.Condition,
		DeliveryOption: delivery,
		CategoryFields: fields,
	}
}

// pendingEnvelope is the wrapped response variant.
type pendingEnvelope struct {
	Products []PendingProduct `json:"products"`
	Debug    json.RawMessage  `json:"debug,omitempty"`
}

// FetchPending returns the products waiting to be posted. The endpoint has
// shipped both a bare array and a {products: [...]} wrapper; both decode.
func (c *Client) FetchPending(ctx context.Context) ([]PendingProduct, error) {
	endpoint := c.baseURL + "/api/products/pending?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch pending: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}

	var list []PendingProduct
	if err := json.Unmarshal(data, &list); err == nil {
		c.log.Info("pending products fetched", zap.Int("count", len(list)))
		return list, nil
	}
	var envelope pendingEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("fetch pending: decode: %w", err)
	}
	c.log.Info("pending products fetched", zap.Int("count", len(envelope.Products)))
	return envelope.Products, nil
}

// Update is one entry of the batch-update request body.
type Update struct {
	ProductID string `json:"productId"`
	Status    string `json:"status"`
	AdURL     string `json:"ad_url,omitempty"`
	AdID      string `json:"ad_id,omitempty"`
	Views     int    `json:"views"`
	Saves     int    `json:"saves"`
	PostedAt  string `json:"posted_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MatchResult finds the pending product a result belongs to, first by
// article number, then by title. Returns false when nothing matches.
func MatchResult(pending []PendingProduct, result models.PostResult) (PendingProduct, bool) {
	if result.ArticleNumber != "" {
		for _, pp := range pending {
			if pp.ArticleNumber == result.ArticleNumber {
				return pp, true
			}
		}
	}
	for _, pp := range pending {
		if pp.Title == result.Title {
			return pp, true
		}
	}
	return PendingProduct{}, false
}

// BuildUpdates converts batch results into update entries, dropping results
// that cannot be matched to a backend product.
func BuildUpdates(pending []PendingProduct, results []models.PostResult) []Update {
	updates := make([]Update, 0, len(results))
	for _, r := range results {
		pp, ok := MatchResult(pending, r)
		if !ok {
			continue
		}
		updates = append(updates, Update{
			ProductID: pp.ID,
			Status:    r.Status,
			AdURL:     r.AdURL,
			AdID:      r.AdID,
			Views:     r.Views,
			Saves:     r.Saves,
			PostedAt:  r.PostedAt,
			Error:     r.Error,
		})
	}
	return updates
}

// BatchUpdate reports batch outcomes back to the backend.
func (c *Client) BatchUpdate(ctx context.Context, pending []PendingProduct, results []models.PostResult) error {
	updates := BuildUpdates(pending, results)
	if len(updates) == 0 {
		c.log.Warn("no results matched a pending product, nothing to report")
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{"updates": updates})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/api/products/batch-update"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("batch update: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	c.log.Info("batch update reported", zap.Int("updates", len(updates)))
	return nil
}

// FetchImages returns the remote image URLs for a backend product.
func (c *Client) FetchImages(ctx context.Context, productID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/products/%s/images", c.baseURL, url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch images: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch images: status %d", resp.StatusCode)
	}

	var payload struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch images: decode: %w", err)
	}
	return payload.Images, nil
}

// DownloadImages saves remote images into dir and returns the local paths,
// named {article}_{index}{ext}. Failed downloads are skipped with a warning.
func (c *Client) DownloadImages(ctx context.Context, dir, articleNumber string, urls []string) []string {
	paths := make([]string, 0, len(urls))
	for i, imageURL := range urls {
		path, err := c.downloadOne(ctx, dir, articleNumber, i, imageURL)
		if err != nil {
			c.log.Warn("image download failed", zap.String("url", imageURL), zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (c *Client) downloadOne(ctx context.Context, dir, articleNumber string, index int, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	ext := imageExt(imageURL, resp.Header.Get("Content-Type"))
	name := fmt.Sprintf("%s_%d%s", articleNumber, index, ext)
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// imageExt picks a file extension from the URL path, falling back to the
// response content type, then to .jpg.
func imageExt(imageURL, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		switch ext := strings.ToLower(filepath.Ext(u.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".heic", ".webp":
			return ext
		}
	}
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "heic"):
		return ".heic"
	default:
		return ".jpg"
	}
}
