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
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AleutianAI/canoe-go/internal/decoder/feature"
	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
)

// TranslateToolInput is the JSON schema google/jsonschema-go infers for
// the "translate" MCP tool's single argument.
type TranslateToolInput struct {
	Source string `json:"source" jsonschema:"the source sentence to translate, as plain text"`
}

// TranslateToolOutput is the structured result returned alongside the
// tool's text content block.
type TranslateToolOutput struct {
	Best  string   `json:"best"`
	Score float64  `json:"score"`
	NBest []string `json:"nbest,omitempty"`
}

// NewMCPServer builds an MCP server exposing a single "translate" tool
// backed by h.Decoder, so any MCP-speaking agent client can call into
// this decoder the same way HandleTranslate lets an HTTP caller do. No
// file anywhere in this tree or its reference pack demonstrates
// modelcontextprotocol/go-sdk usage; this follows the SDK's own
// published server/tool registration shape (mcp.NewServer plus a single
// mcp.AddTool registration with a typed handler) rather than an
// in-pack precedent.
func NewMCPServer(h *Handlers) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "canoe",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "translate",
		Description: "Translate a source-language sentence using the phrase-based decoder.",
	}, h.handleTranslateTool)

	return server
}

// handleTranslateTool is the typed MCP tool handler backing "translate".
func (h *Handlers) handleTranslateTool(ctx context.Context, req *mcp.CallToolRequest, in TranslateToolInput) (*mcp.CallToolResult, TranslateToolOutput, error) {
	source := splitWords(in.Source)
	if len(source) == 0 {
		return nil, TranslateToolOutput{}, fmt.Errorf("translate tool: empty source sentence")
	}

	result, err := h.Decoder.Decode(ctx, h.Table, translate.Request{
		Source: source,
		Info:   feature.NewSentenceInfo{SourceSentence: source, SentenceLength: uint32(len(source))},
	})
	if err != nil {
		return nil, TranslateToolOutput{}, err
	}

	out := TranslateToolOutput{Best: result.Best, Score: result.BestScore, NBest: result.NBest}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: out.Best},
		},
	}, out, nil
}
