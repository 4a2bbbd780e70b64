// Package pinata pins files to IPFS through the Pinata pinning API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.pinata.cloud"

type Client struct {
	apiURL  string
	gateway string
	jwt     string
	http    *http.Client
}

func NewClient(apiURL, gatewayURL, jwt string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	gateway := strings.TrimRight(gatewayURL, "/")
	if gateway != "" && !strings.Contains(gateway, "://") {
		gateway = "https://" + gateway
	}
	return &Client{
		apiURL:  strings.TrimRight(apiURL, "/"),
		gateway: gateway,
		jwt:     jwt,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// UploadBytes pins b under filename and returns its IPFS CID.
func (c *Client) UploadBytes(ctx context.Context, filename string, b []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(b); err != nil {
		return "", err
	}
	meta, _ := json.Marshal(map[string]string{"name": filename})
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("pinata: status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out pinResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pinata: decode response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pinata: response without IpfsHash")
	}
	return out.IpfsHash, nil
}

// RetrievalURL returns the gateway URL for cid, or "" without a gateway.
func (c *Client) RetrievalURL(cid string) string {
	if c.gateway == "" || cid == "" {
		return ""
	}
	return c.gateway + "/ipfs/" + cid
}
