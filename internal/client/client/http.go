package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
)

const maxErrorBody = 512

// HTTPRelay talks to the relay over JSON/HTTP.
type HTTPRelay struct {
	httpClient *http.Client
}

// NewHTTPRelay returns a relay client whose requests time out after timeout.
func NewHTTPRelay(timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{httpClient: &http.Client{Timeout: timeout}}
}

// NewHTTPRelayWithClient uses a caller-supplied *http.Client.
func NewHTTPRelayWithClient(c *http.Client) *HTTPRelay {
	return &HTTPRelay{httpClient: c}
}

type connectBody struct {
	Salt string `json:"salt"`
}

type pushRequest struct {
	Token   string             `json:"token"`
	Entries []models.SyncEntry `json:"entries"`
}

type pushResponse struct {
	ServerSeq int64 `json:"serverSeq"`
}

func (r *HTTPRelay) Health(ctx context.Context, ep Endpoint) error {
	return r.do(ctx, ep, "health", http.MethodGet, "/health", nil, nil)
}

func (r *HTTPRelay) Connect(ctx context.Context, ep Endpoint, salt string) (string, error) {
	var resp connectBody
	if err := r.do(ctx, ep, "connect", http.MethodPost, "/connect", connectBody{Salt: salt}, &resp); err != nil {
		return "", err
	}
	if resp.Salt == "" {
		return salt, nil
	}
	return resp.Salt, nil
}

func (r *HTTPRelay) Push(ctx context.Context, ep Endpoint, entries []models.SyncEntry) (int64, error) {
	var resp pushResponse
	req := pushRequest{Token: ep.Token, Entries: entries}
	if err := r.do(ctx, ep, "push", http.MethodPost, "/push", req, &resp); err != nil {
		return 0, err
	}
	return resp.ServerSeq, nil
}

func (r *HTTPRelay) Pull(ctx context.Context, ep Endpoint, since int64, limit int) (*PullPage, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	q.Set("limit", strconv.Itoa(limit))

	var page PullPage
	if err := r.do(ctx, ep, "pull", http.MethodGet, "/pull?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *HTTPRelay) DeleteAccount(ctx context.Context, ep Endpoint) error {
	return r.do(ctx, ep, "delete account", http.MethodDelete, "/account", nil, nil)
}

// do sends one request. in is JSON encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (r *HTTPRelay) do(ctx context.Context, ep Endpoint, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(ep.URL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+ep.Token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return mapStatus(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
