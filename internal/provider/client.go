package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"

	"github.com/pkg/errors"

	"ChatDesk/server/internal/config"
	"ChatDesk/server/internal/models"
)

// Client talks to the business messaging API's send endpoint. Every call is
// bounded by the configured timeout; a timed-out or rejected send is a
// failure, retries are the caller's decision.
type Client struct {
	cfg  config.Provider
	http *http.Client
}

func NewClient(cfg config.Provider) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.SendTimeout},
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText delivers a plain text message and returns the provider-assigned
// message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return c.send(ctx, payload)
}

// SendTemplate delivers a template message with positional variables grouped
// by component.
func (c *Client) SendTemplate(ctx context.Context, to, name, language string, vars TemplateVars) (string, error) {
	components := make([]map[string]interface{}, 0, 3)
	for _, group := range []struct {
		kind string
		vars map[int]string
	}{
		{"header", vars.Header},
		{"body", vars.Body},
		{"footer", vars.Footer},
	} {
		if len(group.vars) == 0 {
			continue
		}
		components = append(components, map[string]interface{}{
			"type":       group.kind,
			"parameters": positionalParams(group.vars),
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":       name,
			"language":   map[string]string{"code": language},
			"components": components,
		},
	}
	return c.send(ctx, payload)
}

// SendMedia delivers an uploaded media object by type. Caption applies to
// kinds that support one.
func (c *Client) SendMedia(ctx context.Context, to, mediaType, link, caption string) (string, error) {
	media := map[string]string{"link": link}
	if caption != "" {
		media["caption"] = caption
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              mediaType,
		mediaType:           media,
	}
	return c.send(ctx, payload)
}

func positionalParams(vars map[int]string) []map[string]string {
	positions := make([]int, 0, len(vars))
	for n := range vars {
		positions = append(positions, n)
	}
	sort.Ints(positions)

	params := make([]map[string]string, 0, len(vars))
	for _, n := range positions {
		params = append(params, map[string]string{"type": "text", "text": vars[n]})
	}
	return params
}

func (c *Client) send(ctx context.Context, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode send payload")
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build send request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("Provider send failed: %v", err)
		return "", errors.Wrap(models.ErrUpstreamSendFailure, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read send response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Provider rejected send with status %d: %s", resp.StatusCode, respBody)
		return "", errors.Wrapf(models.ErrUpstreamSendFailure, "status %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse send response")
	}
	if len(parsed.Messages) == 0 {
		return "", nil
	}

	log.Printf("Provider accepted send, message id %s", parsed.Messages[0].ID)
	return parsed.Messages[0].ID, nil
}

type mediaLookupResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// LookupMedia resolves a provider media id to a short-lived download URL and
// mime type.
func (c *Client) LookupMedia(ctx context.Context, mediaID string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to build media lookup request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", errors.Wrap(models.ErrStorageFailure, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", errors.Wrapf(models.ErrStorageFailure, "media lookup status %d", resp.StatusCode)
	}

	var parsed mediaLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", errors.Wrap(err, "failed to parse media lookup response")
	}

	return parsed.URL, parsed.MimeType, nil
}

// DownloadMedia streams the bytes behind a media download URL.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build media download request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(models.ErrStorageFailure, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(models.ErrStorageFailure, "media download status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
