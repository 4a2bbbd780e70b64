package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SundayYogurt/identity_service/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp() *fiber.App {
	return NewApp(config.Config{BaseURL: "*"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewApp_HealthAndMetrics(t *testing.T) {
	app := testApp()

	res, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewApp_RecoversPanics(t *testing.T) {
	app := testApp()
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	res, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestNewApp_UnknownRoute(t *testing.T) {
	res, err := testApp().Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestNewUploader(t *testing.T) {
	ctx := t.Context()

	up, err := newUploader(ctx, config.Config{UploadProvider: config.ProviderPinata, PinataGatewayURL: "gw.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/cid", up.RetrievalURL("cid"))

	_, err = newUploader(ctx, config.Config{UploadProvider: "ftp"})
	assert.Error(t, err)
}
