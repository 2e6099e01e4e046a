package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photovault/pkg/config"
)

func newAIGenServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generations", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprint(w, `{"generations":[
				{"id":"gen-1","prompt":"a lighthouse","model":"sdxl","seed":7,"width":1024,"height":1024,"created_at":"2024-02-20T18:00:00Z","image_url":"`+r.Host+`"},
				{"id":"gen-2","prompt":"a forest","model":"sdxl","seed":8,"width":512,"height":512,"created_at":"2024-02-21T09:00:00Z","image_url":""}
			],"has_more":true}`)
		case "gen-2":
			fmt.Fprint(w, `{"generations":[],"has_more":false}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "png-bytes")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAIGenFetchPagesByGenerationID(t *testing.T) {
	server := newAIGenServer(t)
	connector := NewAIGenConnector(config.AIGenConfig{BaseURL: server.URL, APIKey: "test-key"})
	ctx := context.Background()

	first, err := connector.Fetch(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, first.Assets, 2)
	assert.Equal(t, "gen-1", first.Assets[0].SourceID)
	assert.Equal(t, "gen-2", first.NextCursor)
	assert.True(t, first.HasMore)

	gen, ok := first.Assets[0].Metadata["generation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a lighthouse", gen["prompt"])
	assert.Equal(t, "sdxl", gen["model"])

	second, err := connector.Fetch(ctx, first.NextCursor, 10)
	require.NoError(t, err)
	assert.Empty(t, second.Assets)
	assert.False(t, second.HasMore)
	// cursor never regresses on an empty page
	assert.Equal(t, "gen-2", second.NextCursor)
}

func TestAIGenRenditionDownloadsImage(t *testing.T) {
	server := newAIGenServer(t)
	connector := NewAIGenConnector(config.AIGenConfig{BaseURL: server.URL, APIKey: "test-key"})

	asset := connector.buildAsset(generation{
		ID:       "gen-1",
		ImageURL: server.URL + "/images/gen-1.png",
		Fields:   map[string]interface{}{"id": "gen-1"},
	})
	reader, err := asset.Renditions[0].Open()
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestAIGenRejectsBadStatus(t *testing.T) {
	server := newAIGenServer(t)
	connector := NewAIGenConnector(config.AIGenConfig{BaseURL: server.URL, APIKey: "wrong-key"})

	_, err := connector.Fetch(context.Background(), "", 10)
	require.Error(t, err)
}
