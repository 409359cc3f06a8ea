package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSABnzbd(t *testing.T, serverURL string) *SABnzbd {
	t.Helper()

	userConfig, err := config.DefaultUserConfig()
	require.NoError(t, err)
	userConfig.DownloaderURL = serverURL
	userConfig.DownloaderAPIKey = "test"

	return NewSABnzbd(config.NewService(&config.Config{UserConfig: userConfig}))
}

func TestDownload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "addfile", r.URL.Query().Get("mode"))
		assert.Equal(t, "foliarr", r.URL.Query().Get("cat"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		w.Write([]byte(`{"status":true,"nzo_ids":["SABnzbd_nzo_1"]}`))
	}))
	t.Cleanup(server.Close)

	s := testSABnzbd(t, server.URL)
	id, err := s.Download(context.Background(), []byte("<nzb/>"), "Some Release")
	require.NoError(t, err)
	assert.Equal(t, "SABnzbd_nzo_1", id)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "history", r.URL.Query().Get("mode"))
		w.Write([]byte(`{"history":{"slots":[
			{"nzo_id":"j1","name":"Done Release","status":"Completed","storage":"/downloads/foliarr/Done Release"},
			{"nzo_id":"j2","name":"Broken","status":"Failed","storage":""}
		]}}`))
	}))
	t.Cleanup(server.Close)

	s := testSABnzbd(t, server.URL)
	jobs, err := s.History(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, StatusCompleted, jobs["j1"].Status)
	assert.Equal(t, "/downloads/foliarr/Done Release", jobs["j1"].StoragePath)
	assert.Equal(t, StatusFailed, jobs["j2"].Status)
}

func TestCategoryDir(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"config":{
			"misc":{"complete_dir":"/downloads/complete"},
			"categories":[{"name":"foliarr","dir":"books"},{"name":"tv","dir":"/tv"}]
		}}`))
	}))
	t.Cleanup(server.Close)

	s := testSABnzbd(t, server.URL)
	dir, err := s.CategoryDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/downloads/complete/books", dir)
}
