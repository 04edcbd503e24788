package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, mux *http.ServeMux) (*CrowdinClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v2/") && r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, `{"error":{"code":401,"message":"Unauthorized"}}`)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewCrowdinClient(CrowdinOptions{BaseURL: srv.URL + "/api/v2", Token: "tok"}), srv
}

func projectHandler(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/projects/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"id":7,"targetLanguageIds":["de","fr","pt-BR"]}}`)
	})
}

func TestEnterpriseBaseURL(t *testing.T) {
	assert.Equal(t, "https://acme.api.crowdin.com/api/v2", EnterpriseBaseURL("acme"))
}

func TestListResources(t *testing.T) {
	mux := http.NewServeMux()
	projectHandler(mux)
	mux.HandleFunc("GET /api/v2/projects/7/directories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"data":{"id":11,"name":"ui","path":"/ui"}}],"pagination":{"offset":0,"limit":500}}`)
	})
	mux.HandleFunc("GET /api/v2/projects/7/files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"data":{"id":102,"name":"b.json","path":"/ui/b.json","directoryId":11,"revisionId":1}},
			{"data":{"id":101,"name":"a.json","path":"/a.json","revisionId":3,"excludedTargetLanguages":["fr"]}}
		],"pagination":{"offset":0,"limit":500}}`)
	})
	c, _ := newTestClient(t, mux)

	rs, err := c.ListResources(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, rs, 2)

	assert.Equal(t, "a.json", rs[0].RemoteKey)
	assert.Equal(t, "101", rs[0].RemoteID)
	assert.Equal(t, "rev-3", rs[0].RemoteHash)
	assert.Equal(t, []string{"de", "pt-BR"}, rs[0].Locales())
	assert.Equal(t, "ui/b.json", rs[1].RemoteKey)
	assert.Equal(t, []string{"de", "fr", "pt-BR"}, rs[1].Locales())
}

func TestListResourcesPaged(t *testing.T) {
	mux := http.NewServeMux()
	projectHandler(mux)
	mux.HandleFunc("GET /api/v2/projects/7/directories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})
	var pages atomic.Int32
	mux.HandleFunc("GET /api/v2/projects/7/files", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		n := pageLimit
		if offset >= pageLimit {
			n = 3
		}
		items := make([]string, n)
		for i := range items {
			id := offset + i + 1
			items[i] = fmt.Sprintf(`{"data":{"id":%d,"name":"f%05d.json","path":"/f%05d.json","revisionId":1}}`, id, id, id)
		}
		writeJSON(w, http.StatusOK, `{"data":[`+strings.Join(items, ",")+`]}`)
	})
	c, _ := newTestClient(t, mux)

	rs, err := c.ListResources(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, rs, pageLimit+3)
	assert.Equal(t, int32(2), pages.Load())
	assert.Equal(t, "f00001.json", rs[0].RemoteKey)
}

func TestCreateResourceCreatesDirectoriesOnce(t *testing.T) {
	mux := http.NewServeMux()
	projectHandler(mux)

	var dirPosts atomic.Int32
	mux.HandleFunc("POST /api/v2/projects/7/directories", func(w http.ResponseWriter, r *http.Request) {
		dirPosts.Add(1)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"name":"docs"`)
		writeJSON(w, http.StatusCreated, `{"data":{"id":50,"name":"docs","path":"/docs"}}`)
	})

	var storageID atomic.Int32
	mux.HandleFunc("POST /api/v2/storages", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(headerFileName))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"data":{"id":%d}}`, storageID.Add(1)))
	})

	var mu sync.Mutex
	var fileID int
	mux.HandleFunc("POST /api/v2/projects/7/files", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"directoryId":50`)
		mu.Lock()
		fileID++
		id := fileID
		mu.Unlock()
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"data":{"id":%d,"name":"x.json","path":"/docs/x%d.json","directoryId":50,"revisionId":1}}`, id, id))
	})
	c, _ := newTestClient(t, mux)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.CreateResource(context.Background(), "7", fmt.Sprintf("docs/x%d.json", i), []byte("{}"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), dirPosts.Load())
}

func TestCreateResourceNotUnique(t *testing.T) {
	mux := http.NewServeMux()
	projectHandler(mux)
	mux.HandleFunc("POST /api/v2/storages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"data":{"id":1}}`)
	})
	mux.HandleFunc("POST /api/v2/projects/7/files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"errors":[{"error":{"key":"name","errors":[{"code":"notUnique","message":"Name must be unique"}]}}]}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.CreateResource(context.Background(), "7", "a.json", []byte("{}"))
	require.Error(t, err)
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
	assert.Contains(t, err.Error(), "notUnique")
}

func TestUpdateResource(t *testing.T) {
	mux := http.NewServeMux()
	projectHandler(mux)
	mux.HandleFunc("POST /api/v2/storages", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"k":"v2"}`, string(body))
		writeJSON(w, http.StatusCreated, `{"data":{"id":9}}`)
	})
	mux.HandleFunc("PUT /api/v2/projects/7/files/101", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"storageId":9`)
		writeJSON(w, http.StatusOK, `{"data":{"id":101,"name":"a.json","path":"/a.json","revisionId":4}}`)
	})
	c, _ := newTestClient(t, mux)

	r, err := c.UpdateResource(context.Background(), "7", "101", []byte(`{"k":"v2"}`))
	require.NoError(t, err)
	assert.Equal(t, "rev-4", r.RemoteHash)
	assert.Equal(t, "a.json", r.RemoteKey)
}

func TestDeleteResource(t *testing.T) {
	var deleted []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v2/projects/7/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		switch id {
		case "101":
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		case "102":
			writeJSON(w, http.StatusNotFound, `{"error":{"code":404,"message":"File Not Found"}}`)
		default:
			writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"Forbidden"}}`)
		}
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, c.DeleteResource(ctx, "7", "101"))
	assert.Equal(t, []string{"101"}, deleted)

	require.NoError(t, c.DeleteResource(ctx, "7", "102"), "an already deleted file is not an error")

	err := c.DeleteResource(ctx, "7", "103")
	require.Error(t, err)
	assert.Equal(t, syncerr.KindAuth, syncerr.KindOf(err))
}

func TestFetchTranslationDownloadsWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("POST /api/v2/projects/7/translations/builds/files/101", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"targetLanguageId":"de"`)
		writeJSON(w, http.StatusOK, `{"data":{"url":"`+srvURL+`/download/101-de","expireIn":"2030-01-01T00:00:00+00:00"}}`)
	})
	mux.HandleFunc("GET /download/101-de", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"hello":"Hallo"}`)
	})
	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	data, err := c.FetchTranslation(context.Background(), "7", "101", "de")
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"Hallo"}`, string(data))
}

func TestFetchTranslationExpiredLinkIsTransient(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("POST /api/v2/projects/7/translations/builds/files/101", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"url":"`+srvURL+`/download/expired"}}`)
	})
	mux.HandleFunc("GET /download/expired", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	_, err := c.FetchTranslation(context.Background(), "7", "101", "de")
	assert.Equal(t, syncerr.KindTransient, syncerr.KindOf(err))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   syncerr.Kind
	}{
		{http.StatusUnauthorized, syncerr.KindAuth},
		{http.StatusForbidden, syncerr.KindAuth},
		{http.StatusRequestTimeout, syncerr.KindTransient},
		{http.StatusTooManyRequests, syncerr.KindTransient},
		{http.StatusInternalServerError, syncerr.KindTransient},
		{http.StatusServiceUnavailable, syncerr.KindTransient},
		{http.StatusNotFound, syncerr.KindValidation},
		{http.StatusUnprocessableEntity, syncerr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/v2/projects/7", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, `{"error":{"code":`+strconv.Itoa(tt.status)+`,"message":"nope"}}`)
			})
			c, _ := newTestClient(t, mux)

			_, err := c.ListResources(context.Background(), "7")
			require.Error(t, err)
			assert.Equal(t, tt.want, syncerr.KindOf(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestBadTokenIsAuthAndNotLeaked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":{"code":401,"message":"Unauthorized"}}`)
	}))
	defer srv.Close()
	c := NewCrowdinClient(CrowdinOptions{BaseURL: srv.URL, Token: "very-secret-value"})

	_, err := c.ListResources(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, syncerr.KindAuth, syncerr.KindOf(err))
	assert.NotContains(t, err.Error(), "very-secret-value")
}

func TestTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewCrowdinClient(CrowdinOptions{BaseURL: url, Token: "tok"})
	_, err := c.ListResources(context.Background(), "7")
	assert.Equal(t, syncerr.KindTransient, syncerr.KindOf(err))
}

func TestProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/projects/7/languages/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"data":{"languageId":"de","words":{"total":100,"translated":80,"approved":40},"phrases":{"total":10,"translated":8,"approved":4},"translationProgress":80,"approvalProgress":40}}
		]}`)
	})
	c, _ := newTestClient(t, mux)

	rows, err := c.Progress(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "de", rows[0].LanguageID)
	assert.Equal(t, Counts{Total: 100, Translated: 80, Approved: 40}, rows[0].Words)
	assert.Equal(t, 80, rows[0].TranslationProgress)
}
