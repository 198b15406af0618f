package blobstore

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
)

const testCID = "Qm" + "YwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "test-jwt", "https://gateway.example/ipfs", nil, slog.New(slog.DiscardHandler))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("pins a document and returns its content ref", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
			assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "rx.pdf", header.Filename)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"IpfsHash":"` + testCID + `","PinSize":42}`))
		})

		ref, err := client.Upload(ctx, "rx.pdf", strings.NewReader("document body"))
		require.NoError(t, err)
		assert.Equal(t, id.ContentRef(testCID), ref)
	})

	t.Run("retries transient upstream failures", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"IpfsHash":"` + testCID + `"}`))
		})

		ref, err := client.Upload(ctx, "rx.pdf", strings.NewReader("document body"))
		require.NoError(t, err)
		assert.Equal(t, id.ContentRef(testCID), ref)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry a rejected upload", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.Upload(ctx, "rx.pdf", strings.NewReader("document body"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rejects an empty upload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("empty upload must not reach the pinning service")
		})
		_, err := client.Upload(ctx, "rx.pdf", strings.NewReader(""))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects an invalid content id from upstream", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"IpfsHash":"not-a-cid"}`))
		})
		_, err := client.Upload(ctx, "rx.pdf", strings.NewReader("document body"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	client := New("http://unused", "jwt", "https://gateway.example/ipfs", nil, slog.New(slog.DiscardHandler))

	t.Run("maps a content ref to its gateway URL", func(t *testing.T) {
		resolution, err := client.Resolve(ctx, testCID)
		require.NoError(t, err)
		assert.Equal(t, id.ContentRef(testCID), resolution.ContentRef)
		assert.Equal(t, "https://gateway.example/ipfs/"+testCID, resolution.URL)
		assert.False(t, resolution.Pinned, "no cache configured, pin state is unknown")
	})

	t.Run("rejects a malformed content ref", func(t *testing.T) {
		_, err := client.Resolve(ctx, "not-a-cid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
