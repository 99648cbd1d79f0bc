package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/media2net/marktplaats-poster/models"
)

func TestFetchPendingBareArray(t *testing.T) {
	var gotHeader, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-api-key")
		gotQuery = r.URL.Query().Get("api_key")
		w.Write([]byte(`[{"id":"42","title":"Onderplaat","price":"12.50","article_number":"ART-1"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", zap.NewNop())
	pending, err := client.FetchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "42", pending[0].ID)
	assert.Equal(t, "12.50", string(pending[0].Price))
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "secret", gotQuery)
}

func TestFetchPendingWrappedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[{"id":"1","title":"A","price":19.95},{"id":"2","title":"B"}],"debug":{"total":2}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", zap.NewNop())
	pending, err := client.FetchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// numeric price decodes to its literal text
	assert.Equal(t, "19.95", string(pending[0].Price))
}

func TestFetchPendingErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad", zap.NewNop())
	_, err := client.FetchPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchPendingDeliveryMethods(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"1","title":"Kast","delivery_methods":["Ophalen","Verzenden"]},
			{"id":"2","title":"Stoel","delivery_option":"Verzenden","delivery_methods":["Ophalen"]}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", zap.NewNop())
	pending, err := client.FetchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// without a singular option, the first listed method carries over
	assert.Equal(t, "Ophalen", pending[0].ToProduct().DeliveryOption)
	// a singular option always wins
	assert.Equal(t, "Verzenden", pending[1].ToProduct().DeliveryOption)
}

func TestMatchResult(t *testing.T) {
	pending := []PendingProduct{
		{ID: "1", Title: "Same title", ArticleNumber: "ART-1"},
		{ID: "2", Title: "Same title", ArticleNumber: "ART-2"},
		{ID: "3", Title: "Other"},
	}

	// article number wins over title
	pp, ok := MatchResult(pending, models.PostResult{Title: "Same title", ArticleNumber: "ART-2"})
	require.True(t, ok)
	assert.Equal(t, "2", pp.ID)

	// falls back to title
	pp, ok = MatchResult(pending, models.PostResult{Title: "Other"})
	require.True(t, ok)
	assert.Equal(t, "3", pp.ID)

	_, ok = MatchResult(pending, models.PostResult{Title: "Unknown", ArticleNumber: "ART-9"})
	assert.False(t, ok)
}

func TestBatchUpdateBody(t *testing.T) {
	var body struct {
		Updates []Update `json:"updates"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/products/batch-update", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	pending := []PendingProduct{{ID: "42", Title: "A", ArticleNumber: "ART-1"}}
	results := []models.PostResult{
		{
			ArticleNumber: "ART-1",
			Title:         "A",
			Status:        models.StatusCompleted,
			AdURL:         "https://www.marktplaats.nl/a111-a",
			AdID:          "a111",
			Views:         4,
			Saves:         1,
		},
		// unmatched results are dropped, not sent
		{ArticleNumber: "ART-9", Title: "Unknown", Status: models.StatusFailed, Error: "x"},
	}

	client := NewClient(server.URL, "k", zap.NewNop())
	require.NoError(t, client.BatchUpdate(context.Background(), pending, results))

	require.Len(t, body.Updates, 1)
	u := body.Updates[0]
	assert.Equal(t, "42", u.ProductID)
	assert.Equal(t, models.StatusCompleted, u.Status)
	assert.Equal(t, "a111", u.AdID)
	assert.Equal(t, 4, u.Views)
}

func TestFetchImagesAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/42/images", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":["` + "http://" + r.Host + `/img/a.png","http://` + r.Host + `/img/broken"]}`))
	})
	mux.HandleFunc("/img/a.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/img/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "k", zap.NewNop())
	urls, err := client.FetchImages(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, urls, 2)

	dir := t.TempDir()
	paths := client.DownloadImages(context.Background(), dir, "ART-1", urls)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "ART-1_0.png")
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".jpeg", imageExt("https://cdn.x/p/photo.JPEG?w=100", ""))
	assert.Equal(t, ".png", imageExt("https://cdn.x/p/photo", "image/png"))
	assert.Equal(t, ".jpg", imageExt("https://cdn.x/p/photo", ""))
}
