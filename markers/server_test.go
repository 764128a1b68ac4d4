// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package markers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/mailgeo/record"
	"github.com/jcodagnone/mailgeo/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServerTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := store.NewRepository(db)
	require.NoError(t, repo.CreateSchema())
	require.NoError(t, repo.Save(store.History, "clientes", sampleRecords()))

	return NewServer(repo, "secret").Router()
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestListCollectionsAPI(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/stages/history")
	require.Equal(t, http.StatusOK, w.Code)

	var collections []store.Collection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &collections))
	require.Len(t, collections, 1)
	assert.Equal(t, "clientes", collections[0].Name)
	assert.Equal(t, 4, collections[0].Size)

	w = get(t, router, "/api/stages/labels")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = get(t, router, "/api/stages/bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCollectionAPI(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/stages/history/clientes")
	require.Equal(t, http.StatusOK, w.Code)

	var records []record.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 4)

	w = get(t, router, "/api/stages/history/clientes?format=markers")
	require.Equal(t, http.StatusOK, w.Code)

	var markers []Marker
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &markers))
	assert.Len(t, markers, 2)

	w = get(t, router, "/api/stages/history/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMapView(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/map/history/clientes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "var locations = [{")
	assert.Contains(t, w.Body.String(), "key=secret")

	w = get(t, router, "/map/geoinfo/clientes")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, router, "/api/stages")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["geoinfo","labels","history"]`, w.Body.String())
}
