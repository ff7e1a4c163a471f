// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the ambient observability stack SPEC_FULL.md
// §0 commits this repository to: one OpenTelemetry tracer per package
// with spans around per-sentence decode, and Prometheus counters (via
// promauto) for the per-sentence statistics spec.md §6 requires at
// verbosity >= 2. A stdout exporter backs both signals for local
// development, matching the teacher's own "wire a stdout exporter,
// leave the real OTLP endpoint to deployment configuration" posture;
// nothing in the retrieval pack actually calls otel's SDK packages
// directly (they sit unused in the teacher's own go.mod, exactly like
// go-playground/validator/v10 per DESIGN.md), so this setup follows
// each library's own documented API rather than an existing call site.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracer is the package-scoped tracer every decoder package asks for
// through Tracer("canoe.<pkg>"), matching SPEC_FULL.md §0's "one
// tracer per package" convention.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Shutdown flushes and stops every provider Setup installed. Callers
// should defer it from main, not from a per-request handler.
type Shutdown func(context.Context) error

// Setup installs a stdout-backed TracerProvider and a
// Prometheus+stdout-backed MeterProvider as the process-wide OTel
// defaults, returning a combined Shutdown. serviceName identifies this
// process in exported spans/metrics (e.g. "canoe-serve", "canoe-decode").
func Setup(ctx context.Context, serviceName string) (Shutdown, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building metric exporter: %w", err)
	}
	promExporter, err := otelprometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: building prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithReader(promExporter),
	)
	otel.SetMeterProvider(mp)

	return func(shutdownCtx context.Context) error {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("telemetry: shutting down tracer provider: %w", err)
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("telemetry: shutting down meter provider: %w", err)
		}
		return nil
	}, nil
}

// Handler returns the promhttp handler for the global Prometheus
// registry, for a serving surface (cmd/canoe serve) to mount at
// /metrics alongside the OTel-exported /v1 routes.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
