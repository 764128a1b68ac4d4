// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package markers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/mailgeo/store"
)

// Server exposes stored collections and their maps.
type Server struct {
	repo   store.Repository
	apiKey string
}

// NewServer creates a server. The API key is passed to the map page, it may
// be empty.
func NewServer(repo store.Repository, apiKey string) *Server {
	return &Server{repo: repo, apiKey: apiKey}
}

// Router returns the HTTP handler.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/stages", s.listStages)
	r.GET("/api/stages/:stage", s.listCollections)
	r.GET("/api/stages/:stage/:name", s.getCollection)
	r.GET("/map/:stage/:name", s.mapView)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	fmt.Printf("📍 Open http://%s/api/stages in your browser\n", addr)

	return s.Router().Run(addr)
}

func (s *Server) listStages(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, store.Stages)
}

func (s *Server) listCollections(ctx *gin.Context) {
	stage, err := store.ParseStage(ctx.Param("stage"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	collections, err := s.repo.List(stage)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if collections == nil {
		collections = []store.Collection{}
	}

	ctx.JSON(http.StatusOK, collections)
}

func (s *Server) getCollection(ctx *gin.Context) {
	stage, err := store.ParseStage(ctx.Param("stage"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	records, err := s.repo.Load(stage, ctx.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if ctx.Query("format") == "markers" {
		ctx.JSON(http.StatusOK, Build(records))

		return
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) mapView(ctx *gin.Context) {
	stage, err := store.ParseStage(ctx.Param("stage"))
	if err != nil {
		ctx.String(http.StatusBadRequest, err.Error())

		return
	}

	name := ctx.Param("name")

	records, err := s.repo.Load(stage, name)
	if errors.Is(err, store.ErrNotFound) {
		ctx.String(http.StatusNotFound, err.Error())

		return
	}

	if err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())

		return
	}

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)

	page := Page{Title: name, APIKey: s.apiKey, Markers: Build(records)}
	if err := RenderPage(ctx.Writer, DefaultTemplate, page); err != nil {
		log.Printf("rendering map %s/%s: %v", stage, name, err)
	}
}
