package mistral_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfinsight/internal/adapter/mistral"
)

func TestClient_Process(t *testing.T) {
	var uploadedPurpose string
	var signedURLRequested bool
	var ocrRequest map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k1", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v1/files":
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			uploadedPurpose = r.FormValue("purpose")
			_, header, err := r.FormFile("file")
			assert.NoError(t, err)
			assert.Equal(t, "doc.pdf", header.Filename)

			json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})

		case "/v1/files/file-123/url":
			signedURLRequested = true
			assert.Equal(t, "1", r.URL.Query().Get("expiry"))
			json.NewEncoder(w).Encode(map[string]string{"url": "https://signed.example/file-123"})

		case "/v1/ocr":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&ocrRequest))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"pages": []map[string]interface{}{
					{"index": 0, "markdown": "# Hello"},
					{"index": 1, "markdown": "World", "images": []map[string]string{{"id": "img-0", "image_base64": "aGk="}}},
				},
			})

		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := mistral.NewClient("k1", "mistral-ocr-latest")
	client.SetBaseURL(ts.URL)

	resp, err := client.Process(context.Background(), "doc.pdf", []byte("%PDF fake"))
	assert.NoError(t, err)
	assert.Len(t, resp.Pages, 2)
	assert.Equal(t, "# Hello", resp.Pages[0].Markdown)
	assert.Equal(t, "img-0", resp.Pages[1].Images[0].ID)

	assert.Equal(t, "ocr", uploadedPurpose)
	assert.True(t, signedURLRequested)
	assert.Equal(t, "mistral-ocr-latest", ocrRequest["model"])
	assert.Equal(t, true, ocrRequest["include_image_base64"])
	doc := ocrRequest["document"].(map[string]interface{})
	assert.Equal(t, "document_url", doc["type"])
	assert.Equal(t, "https://signed.example/file-123", doc["document_url"])
}

func TestClient_Process_UploadError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer ts.Close()

	client := mistral.NewClient("bad-key", "mistral-ocr-latest")
	client.SetBaseURL(ts.URL)

	_, err := client.Process(context.Background(), "doc.pdf", []byte("%PDF"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mistral upload error: 401")
}

func TestClient_Process_OCRError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/files":
			json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
		case "/v1/files/file-123/url":
			json.NewEncoder(w).Encode(map[string]string{"url": "https://signed.example/file-123"})
		case "/v1/ocr":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"unsupported document"}`))
		}
	}))
	defer ts.Close()

	client := mistral.NewClient("k1", "mistral-ocr-latest")
	client.SetBaseURL(ts.URL)

	_, err := client.Process(context.Background(), "doc.pdf", []byte("%PDF"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mistral ocr error: 422")
}

func TestClient_Process_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
	}))
	defer ts.Close()

	client := mistral.NewClient("k1", "mistral-ocr-latest")
	client.SetBaseURL(ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Process(ctx, "doc.pdf", []byte("%PDF"))
	assert.Error(t, err)
}
