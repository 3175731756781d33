package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadSourceSendsMultipart(t *testing.T) {
	var gotGroup, gotAuth string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/v1/sources", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotGroup = r.FormValue("derivation_group_name")
		file, _, err := r.FormFile("source_file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 1024)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(UploadResult{Key: "plan.json", EventCount: 2})
	}))
	defer srv.Close()

	path := writeTempFile(t, "plan.json", `{"source":{},"events":[]}`)
	result, err := NewClient(srv.URL, "secret-token").UploadSource(path, "Replanned")
	require.NoError(t, err)

	assert.Equal(t, "plan.json", result.Key)
	assert.Equal(t, 2, result.EventCount)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "Replanned", gotGroup)
	assert.JSONEq(t, `{"source":{},"events":[]}`, string(gotFile))
}

func TestUploadSourceSurfacesViolations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "validation failed",
			"violations": []map[string]string{
				{"field": "events.0.attributes", "description": "station is required"},
			},
		})
	}))
	defer srv.Close()

	path := writeTempFile(t, "plan.json", `{}`)
	_, err := NewClient(srv.URL, "").UploadSource(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "station is required")
}

func TestUploadSourceMissingFile(t *testing.T) {
	_, err := NewClient("http://localhost:1", "").UploadSource("/no/such/file.json", "")
	assert.Error(t, err)
}

func TestUploadTypesPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/source-types", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(TypesResult{EventTypes: []string{"GroundContact"}})
	}))
	defer srv.Close()

	path := writeTempFile(t, "types.json", `{"event_types":{}}`)
	result, err := NewClient(srv.URL, "").UploadTypes(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GroundContact"}, result.EventTypes)
}

func TestUploadTypesNonCreatedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := writeTempFile(t, "types.json", `{}`)
	_, err := NewClient(srv.URL, "").UploadTypes(path)
	assert.Error(t, err)
}
