package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Page is one page of an OCR run as the capability returns it. Index is
// 0-based on the wire; callers usually renumber to 1-based page numbers.
type Page struct {
	Index    int      `json:"index"`
	Markdown string   `json:"markdown"`
	Images   []Image  `json:"images,omitempty"`
	Tables   []string `json:"tables,omitempty"`
}

type Image struct {
	ID      string `json:"id"`
	Base64  string `json:"image_base64,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type OCRResponse struct {
	Pages []Page `json:"pages"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.mistral.ai",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Process runs the full OCR flow: upload the document, exchange the file id
// for a short-lived signed URL, then request OCR on it.
func (c *Client) Process(ctx context.Context, filename string, document []byte) (*OCRResponse, error) {
	fileID, err := c.upload(ctx, filename, document)
	if err != nil {
		return nil, err
	}

	signedURL, err := c.signedURL(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return c.process(ctx, signedURL)
}

func (c *Client) upload(ctx context.Context, filename string, document []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("purpose", "ocr"); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(document); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mistral upload error: %d: %s", resp.StatusCode, body)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *Client) signedURL(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/v1/files/%s/url?expiry=1", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("mistral signed url error: %d", resp.StatusCode)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.URL, nil
}

func (c *Client) process(ctx context.Context, documentURL string) (*OCRResponse, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"document": map[string]string{
			"type":         "document_url",
			"document_url": documentURL,
		},
		"include_image_base64": true,
	}

	jsonBody, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/ocr", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mistral ocr error: %d: %s", resp.StatusCode, body)
	}

	var result OCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
