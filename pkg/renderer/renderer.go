// Package renderer turns a certificate into a PDF via the rendering service.
package renderer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"certhub/config"
)

// Document everything the renderer needs to lay out one certificate.
type Document struct {
	CertificateNumber string      `json:"certificate_number"`
	VerifyURL         string      `json:"verify_url"`
	Status            string      `json:"status"`
	Design            interface{} `json:"design"`
	Header            string      `json:"header"`
	Body              string      `json:"body"`
	Footer            string      `json:"footer"`
}

// Client calls POST /render and expects application/pdf back.
type Client struct {
	http *resty.Client
}

func NewClient(cfg *config.RendererConfig) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/pdf"),
	}
}

// Render returns the PDF bytes for doc.
func (c *Client) Render(ctx context.Context, doc Document) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(doc).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.CertificateNumber, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("render %s: status %d", doc.CertificateNumber, resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		return nil, fmt.Errorf("render %s: unexpected content type %q", doc.CertificateNumber, ct)
	}
	return resp.Body(), nil
}
