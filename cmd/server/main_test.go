package main

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailetl/internal/config"
	handlers "retailetl/internal/transport/http"
)

func TestFrontendEmbedding(t *testing.T) {
	frontendFS, err := fs.Sub(frontendFiles, "frontend")
	require.NoError(t, err)

	page, err := handlers.NewPageHandler(frontendFS, handlers.IndexPage{
		Title:          config.AppName,
		Version:        config.AppVersion,
		ProcessPath:    config.ProcessEndpoint,
		SalesField:     config.SalesFileField,
		InventoryField: config.InventoryFileField,
		MaxUploadMB:    config.DefaultMaxUploadBytes >> 20,
		OutputFilename: config.OutputFilename,
	}, slog.Default())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	page.ServeIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/process"`)
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, `name="sales_file"`)
	assert.Contains(t, body, `name="inventory_file"`)
	assert.Contains(t, body, "up to 100 MiB")
}
