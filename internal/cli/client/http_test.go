package client

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_ParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/requests/1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":1,"question":"hi"}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	resp, err := api.Get("/requests/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"question":"hi"}`, string(resp.Data))
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Post("/kb", map[string]string{"question": "q", "answer": "a"})
	require.NoError(t, err)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"request already terminal","code":"INVALID_STATE"}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Post("/requests/1/resolve", map[string]string{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "request already terminal", apiErr.Message)
	assert.Equal(t, "INVALID_STATE", apiErr.Code)
}

func TestAPIClient_ErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Get("/health")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIClient_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	resp, err := api.Delete("/kb/1")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestAPIClient_DownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("caller: hello"))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "transcript.txt")
	require.NoError(t, api.DownloadFile(srv.URL+"/file", outputPath))

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "caller: hello", string(content))
}

func TestAPIClient_DownloadFile_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	err = api.DownloadFile(srv.URL+"/file", filepath.Join(t.TempDir(), "out.txt"))
	assert.Error(t, err)
}

func TestNewAPIClientWithCmd_EnvFallback(t *testing.T) {
	t.Setenv(envAPIURL, "http://env.example.com")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", api.baseURL)
}

func TestNewAPIClientWithCmd_Default(t *testing.T) {
	t.Setenv(envAPIURL, "")
	withConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}
