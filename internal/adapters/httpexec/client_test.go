package httpexec

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osier-labs/weave/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHTTPConfig() domain.HTTPConfig {
	return domain.HTTPConfig{RequestTimeout: 5 * time.Second, MaxResponseBytes: 1 << 20}
}

func TestClientParsesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q": "hello"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer": 42, "tags": ["a", "b"]}`))
	}))
	defer server.Close()

	client := NewClient(testHTTPConfig(), discard())
	resp, err := client.Do(context.Background(), "POST", server.URL, map[string]string{"X-Token": "secret"}, `{"q": "hello"}`)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := resp.Body.(map[string]interface{})
	assert.Equal(t, float64(42), body["answer"])
}

func TestClientKeepsNonJSONAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer server.Close()

	client := NewClient(testHTTPConfig(), discard())
	resp, err := client.Do(context.Background(), "GET", server.URL, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "plain text", resp.Body)
}

func TestClientFailsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testHTTPConfig(), discard())
	_, err := client.Do(context.Background(), "GET", server.URL, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "nope")
}

func TestClientCapsResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	cfg := domain.HTTPConfig{RequestTimeout: 5 * time.Second, MaxResponseBytes: 100}
	client := NewClient(cfg, discard())
	resp, err := client.Do(context.Background(), "GET", server.URL, nil, "")
	require.NoError(t, err)
	assert.Len(t, resp.Body.(string), 100)
}

func TestDownloaderURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("artifact bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "artifact.bin")
	d := NewDownloader(testHTTPConfig(), discard())
	result, err := d.Download(context.Background(), &domain.DownloadConfig{
		Source: domain.DownloadSourceURL,
		URL:    server.URL + "/artifact.bin",
		Dest:   dest,
	})
	require.NoError(t, err)
	assert.Equal(t, dest, result.Path)
	assert.Equal(t, int64(len("artifact bytes")), result.Bytes)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "artifact bytes", string(data))
}

func TestDownloaderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDownloader(testHTTPConfig(), discard())
	_, err := d.Download(context.Background(), &domain.DownloadConfig{
		Source: domain.DownloadSourceURL,
		URL:    server.URL + "/missing",
		Dest:   filepath.Join(t.TempDir(), "out"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestResolveURLSources(t *testing.T) {
	url, err := resolveURL(&domain.DownloadConfig{
		Source: domain.DownloadSourceHuggingFace,
		Repo:   "org/model",
		File:   "weights.safetensors",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://huggingface.co/org/model/resolve/main/weights.safetensors", url)

	url, err = resolveURL(&domain.DownloadConfig{
		Source:   domain.DownloadSourceGitHub,
		Repo:     "org/repo",
		Revision: "v1.2.3",
		File:     "README.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://raw.githubusercontent.com/org/repo/v1.2.3/README.md", url)

	url, err = resolveURL(&domain.DownloadConfig{
		Source: domain.DownloadSourceGitHub,
		Repo:   "org/repo",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://codeload.github.com/org/repo/tar.gz/main", url)

	_, err = resolveURL(&domain.DownloadConfig{
		Source: domain.DownloadSourceHuggingFace,
		Repo:   "org/model",
	})
	assert.Error(t, err)
}

func TestActionDispatcher(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewActionDispatcher(testHTTPConfig(), domain.GitHubConfig{
		Token:      "tok",
		APIBaseURL: server.URL,
	}, discard())

	err := d.TriggerWorkflow(context.Background(), &domain.GitHubActionConfig{
		Owner:    "org",
		Repo:     "repo",
		Workflow: "deploy.yml",
		Ref:      "release",
	}, map[string]string{"env": "prod"})
	require.NoError(t, err)

	assert.Equal(t, "/repos/org/repo/actions/workflows/deploy.yml/dispatches", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"ref": "release", "inputs": {"env": "prod"}}`, gotBody)
}

func TestActionDispatcherRejectsNon204(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	d := NewActionDispatcher(testHTTPConfig(), domain.GitHubConfig{APIBaseURL: server.URL}, discard())
	err := d.TriggerWorkflow(context.Background(), &domain.GitHubActionConfig{
		Owner:    "org",
		Repo:     "repo",
		Workflow: "deploy.yml",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
