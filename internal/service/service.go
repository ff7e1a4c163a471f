// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package service exposes the decoder as an observable Gin HTTP API,
// matching spec.md's DOMAIN STACK "REST decode service" and "Streaming
// decode" entries. It is grounded on services/trace's own Gin surface
// (routes.go registering a handler group, handlers_debug.go's
// request-id-then-log-then-respond shape), swapping that service's code
// graph and memory endpoints for a single translate endpoint plus a
// streaming variant.
package service

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/canoe-go/internal/decoder/phrase"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

// ErrorResponse is the uniform error body every handler in this package
// returns, matching services/trace's own ErrorResponse shape.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers bundles the shared, read-only decode state every request
// handler needs: the phrase table and the decoder built from it.
// Grounded on services/trace.Handlers, which wraps one *Service the same
// way.
type Handlers struct {
	Table   *phrase.Table
	Decoder *translate.Decoder
	Logger  *slog.Logger
}

// NewHandlers constructs a Handlers. logger may be nil (defaults to
// slog.Default()).
func NewHandlers(table *phrase.Table, decoder *translate.Decoder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Table: table, Decoder: decoder, Logger: logger}
}

// requestIDKey is the Gin context key getOrCreateRequestID stores the
// correlation id under, mirroring handlers_debug.go's own
// request-id-per-request convention.
const requestIDKey = "canoe_request_id"

// getOrCreateRequestID returns the X-Request-Id header's value, or mints
// a new github.com/google/uuid v4 if the caller didn't supply one,
// caching it on the Gin context so later middleware/handlers in the same
// request share it.
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		return v.(string)
	}
	id := c.GetHeader("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header("X-Request-Id", id)
	return id
}

// NewRouter builds a *gin.Engine with OpenTelemetry instrumentation
// (otelgin.Middleware, matching the ambient tracing stack) and every
// route RegisterRoutes defines.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("canoe"))

	v1 := r.Group("/v1")
	RegisterRoutes(v1, h)
	return r
}

// RegisterRoutes registers /v1/translate (and its streaming and health
// variants) on rg, mirroring trace.RegisterRoutes's shape of grouping
// everything this service exposes under one router group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/translate", h.HandleTranslate)
	rg.GET("/translate/ws", h.HandleTranslateWS)
	rg.GET("/health", h.HandleHealth)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
