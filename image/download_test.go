package image

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/rsimage/testutil"
	"github.com/BaSui01/rsimage/types"
)

func TestCleanURL(t *testing.T) {
	u, err := CleanURL(`  "https://x/a.png"  `)
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.png", u)

	for _, bad := range []string{"", "ftp://x/a.png", "https://", "/relative.png", `"x"`} {
		_, err := CleanURL(bad)
		assert.True(t, types.IsCode(err, types.ErrValidation), "url %q", bad)
	}
}

func TestDownloader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("PNG"))
		case "/empty.png":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDownloader(nil)
	ctx := testutil.TestContext(t)

	data, err := d.Fetch(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("PNG"), data)

	_, err = d.Fetch(ctx, srv.URL+"/missing.png")
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)

	_, err = d.Fetch(ctx, srv.URL+"/empty.png")
	assert.True(t, types.IsCode(err, types.ErrEmptyResponse))
}

func TestDownloader_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	d := NewDownloader(srv.Client())
	d.maxBytes = 16
	_, err := d.Fetch(testutil.TestContext(t), srv.URL+"/big.png")
	assert.Error(t, err)
}

func TestDownloader_TransportError(t *testing.T) {
	d := NewDownloader(unreachableHostClient())
	_, err := d.Fetch(testutil.TestContext(t), "https://x/r.png")
	assert.True(t, types.IsCode(err, types.ErrTransientTransport))
}
