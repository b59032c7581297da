package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
)

const defaultBlobBase = "https://blob.vercel-storage.com"

// BlobClient sobe arquivos para o object storage e devolve a URL pública.
// Só o fluxo de upload admin usa isso; o resto do sistema trata a URL como
// opaca.
type BlobClient struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

func NewBlobClient() (*BlobClient, error) {
	token := strings.TrimSpace(os.Getenv("BLOB_READ_WRITE_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("BLOB_READ_WRITE_TOKEN not set")
	}

	base := strings.TrimSpace(os.Getenv("BLOB_BASE_URL"))
	if base == "" {
		base = defaultBlobBase
	}

	return &BlobClient{
		Token:   token,
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

var unsafeBlobChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeBlobName normaliza o nome do arquivo para o path do blob.
func SafeBlobName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document.pdf"
	}
	return unsafeBlobChars.ReplaceAllString(name, "_")
}

// Put sobe o conteúdo em traveltactik/<path> com acesso público e devolve a
// URL final.
func (b *BlobClient) Put(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.BaseURL+"/traveltactik/"+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Access", "public")

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("blob api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("blob api: missing url in response")
	}
	return parsed.URL, nil
}
