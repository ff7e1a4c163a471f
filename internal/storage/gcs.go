// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage reads phrase tables and language-model files from
// remote object storage, matching SPEC_FULL.md's "Remote model
// storage" DOMAIN STACK entry: spec.md §1(a) scopes phrase-table
// *construction* out of the decoding core, but a deployment still has
// to get the constructed table bytes from wherever the build pipeline
// left them into the decoder process, and that's frequently a bucket
// rather than local disk for anything past a laptop-sized model.
//
// There is no retrieval-pack file that reads from cloud storage, so
// this is new functionality grounded directly on
// cloud.google.com/go/storage's own documented client/reader API
// rather than ported from an existing source file.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// IsRemote reports whether path names an object in remote storage
// (currently only "gs://bucket/object") rather than a local file.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// ReadObject fetches the full contents of a "gs://bucket/object" path.
// It opens a fresh client per call: phrase-table and weights files are
// read once at decoder startup, never in the per-sentence hot path
// spec.md §5 forbids suspension in, so the extra client-construction
// cost is immaterial next to the one-time network transfer it pays for.
func ReadObject(ctx context.Context, gsPath string) ([]byte, error) {
	bucket, object, err := splitGCSPath(gsPath)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: opening GCS client for %s: %w", gsPath, err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", gsPath, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s: %w", gsPath, err)
	}
	return data, nil
}

// splitGCSPath splits "gs://bucket/a/b/c.json" into ("bucket",
// "a/b/c.json").
func splitGCSPath(gsPath string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(gsPath, "gs://")
	if trimmed == gsPath {
		return "", "", fmt.Errorf("storage: %q is not a gs:// path", gsPath)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("storage: %q must be gs://bucket/object", gsPath)
	}
	return parts[0], parts[1], nil
}
