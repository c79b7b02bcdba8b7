package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
)

// KuboStrategy publishes through the /api/v0/add endpoint of a Kubo
// compatible node or pinning gateway.
type KuboStrategy struct {
	baseURL string
	token   string
	client  *http.Client
	now     func() time.Time
}

// NewKuboStrategy creates a strategy for baseURL, e.g. http://127.0.0.1:5001.
// token, if set, is sent as a bearer token. A nil client means
// http.DefaultClient.
func NewKuboStrategy(baseURL, token string, client *http.Client) *KuboStrategy {
	if client == nil {
		client = http.DefaultClient
	}
	return &KuboStrategy{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		now:     time.Now,
	}
}

func (k *KuboStrategy) Name() string {
	return k.baseURL
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Publish streams src as the "file" field of a multipart upload.
func (k *KuboStrategy) Publish(ctx context.Context, src models.FileSource) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", src.Name, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer rc.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(src.Name))
		if err == nil {
			_, err = io.Copy(part, rc)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/api/v0/add", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if tokenUsable(k.token, k.now()) {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed: %s; body: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var r addResponse
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("gateway response has no Hash")
			}
			return "", fmt.Errorf("error decoding gateway response: %w", err)
		}
		if r.Hash != "" {
			return r.Hash, nil
		}
	}
}
