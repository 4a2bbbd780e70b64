package pinata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.JSONEq(t, `{"name":"logo.png"}`, r.FormValue("pinataMetadata"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "logo.png", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(b))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"IpfsHash":"QmTest","PinSize":9,"Timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gateway.example", "jwt-token")
	cid, err := c.UploadBytes(context.Background(), "logo.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "QmTest", cid)
	assert.Equal(t, "https://gateway.example/ipfs/QmTest", c.RetrievalURL(cid))
}

func TestUploadBytes_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid jwt", http.StatusUnauthorized)
		},
		"missing hash": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewClient(srv.URL, "gw", "jwt").UploadBytes(context.Background(), "a.png", []byte("x"))
			assert.Error(t, err)
		})
	}
}

func TestRetrievalURL_KeepsScheme(t *testing.T) {
	c := NewClient("", "http://localhost:8080/", "jwt")
	assert.Equal(t, "http://localhost:8080/ipfs/cid", c.RetrievalURL("cid"))
	assert.Equal(t, DefaultAPIURL, c.apiURL)
}

func TestRetrievalURL_NoGateway(t *testing.T) {
	c := NewClient("", "", "jwt")
	assert.Empty(t, c.RetrievalURL("QmLogo"))
}
