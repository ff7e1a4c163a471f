// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package service

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

// TranslateRequest is the POST /v1/translate body. Source is whitespace
// tokenized the same way the teacher's chat handlers take already-split
// turns rather than doing their own tokenization.
type TranslateRequest struct {
	SentenceID int      `json:"sentence_id"`
	Source     []string `json:"source" binding:"required"`
	Reference  []string `json:"reference,omitempty"`
}

// TranslateResponse mirrors translate.Result, omitting the lattice (not
// JSON-serializable without a wire format of its own). HandleTranslateWS's
// replies omit it as well.
type TranslateResponse struct {
	RequestID string   `json:"request_id"`
	Best      string   `json:"best"`
	Score     float64  `json:"score"`
	NBest     []string `json:"nbest,omitempty"`
}

// HandleTranslate handles POST /v1/translate: decode one sentence and
// return its best translation (plus n-best, if configured), the way
// handlers_debug.go's HandleInspectNode binds a request body, logs with
// the request id attached, and responds with a uniform error shape on
// failure.
func (h *Handlers) HandleTranslate(c *gin.Context) {
	reqID := getOrCreateRequestID(c)
	log := h.Logger.With(slog.String("request_id", reqID))

	var body TranslateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
		return
	}

	req := translate.Request{
		SentenceID: body.SentenceID,
		Source:     body.Source,
		Info:       feature.NewSentenceInfo{SourceSentence: body.Source, SentenceLength: uint32(len(body.Source))},
	}

	result, err := h.Decoder.Decode(c.Request.Context(), h.Table, req)
	if err != nil {
		log.Error("translate failed", slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "decode_failed"})
		return
	}

	c.JSON(http.StatusOK, TranslateResponse{
		RequestID: reqID,
		Best:      result.Best,
		Score:     result.BestScore,
		NBest:     result.NBest,
	})
}

// splitWords is a small whitespace tokenizer used by surfaces (the MCP
// tool, the CLI) that accept a single source string rather than a
// pre-tokenized array.
func splitWords(s string) []string {
	return strings.Fields(s)
}
