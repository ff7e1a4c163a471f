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

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

// upgrader has no origin restriction beyond the default same-origin
// check some browsers perform; callers fronting this service with a
// different origin policy should terminate TLS/CORS at a reverse proxy,
// the same boundary services/trace leaves to its own ingress.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsRequest is one line of a translate/ws session: a source sentence to
// decode, answered with exactly one wsResponse before the connection
// waits for the next line.
type wsRequest struct {
	SentenceID int      `json:"sentence_id"`
	Source     []string `json:"source"`
}

type wsResponse struct {
	SentenceID int      `json:"sentence_id"`
	Best       string   `json:"best,omitempty"`
	Score      float64  `json:"score,omitempty"`
	NBest      []string `json:"nbest,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// HandleTranslateWS handles GET /v1/translate/ws: upgrades to a
// WebSocket and decodes one sentence per inbound JSON message, replying
// with one JSON message per decode, until the client closes the
// connection. This is the streaming counterpart to HandleTranslate for
// callers translating many sentences over one long-lived connection
// instead of one HTTP request per sentence.
func (h *Handlers) HandleTranslateWS(c *gin.Context) {
	reqID := getOrCreateRequestID(c)
	log := h.Logger.With(slog.String("request_id", reqID))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "upgrade_failed"})
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		resp := wsResponse{SentenceID: req.SentenceID}
		result, err := h.Decoder.Decode(ctx, h.Table, translate.Request{
			SentenceID: req.SentenceID,
			Source:     req.Source,
			Info:       feature.NewSentenceInfo{SourceSentence: req.Source, SentenceLength: uint32(len(req.Source))},
		})
		if err != nil {
			resp.Err = err.Error()
		} else {
			resp.Best = result.Best
			resp.Score = result.BestScore
			resp.NBest = result.NBest
		}

		if err := conn.WriteJSON(resp); err != nil {
			log.Warn("websocket write failed", slog.String("error", err.Error()))
			return
		}
	}
}
