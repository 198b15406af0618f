// Package blobstore talks to a Pinata-compatible pinning service. The ledger
// core never dereferences content refs; this is the one place resolution to a
// URL happens.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	goredis "github.com/redis/go-redis/v9"

	"pharmledger/internal/platform/redis"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
)

const (
	pinEndpoint    = "/pinning/pinFileToIPFS"
	uploadAttempts = 3
	cacheTTL       = 10 * time.Minute
)

// Client uploads documents to the pinning service and resolves content refs
// to gateway URLs. The redis cache, when configured, keeps the pin metadata
// returned at upload time so Resolve can report it without another round trip
// to the pinning service.
type Client struct {
	http       *resty.Client
	gatewayURL string
	cache      *redis.Client
	logger     *slog.Logger
}

func New(baseURL, jwt, gatewayURL string, cache *redis.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(jwt).
		SetTimeout(30 * time.Second)
	return &Client{http: httpClient, gatewayURL: gatewayURL, cache: cache, logger: logger}
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Upload pins a document and returns its content ref. Transient upstream
// failures are retried with exponential backoff before giving up.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (id.ContentRef, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read upload")
	}
	if len(data) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "upload is empty")
	}

	var pinned pinResponse
	operation := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetFileReader("file", filename, bytes.NewReader(data)).
			SetResult(&pinned).
			Post(pinEndpoint)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("pinning service returned %d", resp.StatusCode())
		}
		if resp.IsError() {
			// Client-side rejection, retrying will not help.
			return backoff.Permanent(fmt.Errorf("pinning service rejected upload: %d", resp.StatusCode()))
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uploadAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "blob store upload failed")
	}

	ref, err := id.ParseContentRef(pinned.IpfsHash)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "pinning service returned an invalid content id")
	}
	c.cachePin(ctx, ref, pinInfo{PinSize: pinned.PinSize, PinnedAt: time.Now().UTC()})
	return ref, nil
}

// pinInfo is the cached record of a successful pin.
type pinInfo struct {
	PinSize  int64     `json:"pin_size"`
	PinnedAt time.Time `json:"pinned_at"`
}

// Resolution is a content ref together with its gateway URL. Pinned and
// PinSize come from the cache when this node uploaded the content recently.
type Resolution struct {
	ContentRef id.ContentRef `json:"content_ref"`
	URL        string        `json:"url"`
	Pinned     bool          `json:"pinned"`
	PinSize    int64         `json:"pin_size,omitempty"`
}

// Resolve maps a content ref to its gateway URL, serving cached pin metadata
// when present. The ref is validated but never fetched; callers follow the
// URL themselves.
func (c *Client) Resolve(ctx context.Context, raw string) (Resolution, error) {
	ref, err := id.ParseContentRef(raw)
	if err != nil {
		return Resolution{}, err
	}
	resolution := Resolution{
		ContentRef: ref,
		URL:        fmt.Sprintf("%s/%s", c.gatewayURL, ref),
	}
	if info, ok := c.lookupPin(ctx, ref); ok {
		resolution.Pinned = true
		resolution.PinSize = info.PinSize
	}
	return resolution, nil
}

func (c *Client) cachePin(ctx context.Context, ref id.ContentRef, info pinInfo) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, pinKey(ref), payload, cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "pin cache write failed", "error", err.Error())
	}
}

func (c *Client) lookupPin(ctx context.Context, ref id.ContentRef) (pinInfo, bool) {
	if c.cache == nil {
		return pinInfo{}, false
	}
	payload, err := c.cache.Get(ctx, pinKey(ref)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "pin cache read failed", "error", err.Error())
		}
		return pinInfo{}, false
	}
	var info pinInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return pinInfo{}, false
	}
	return info, true
}

func pinKey(ref id.ContentRef) string {
	return "blob:" + ref.String()
}
