package services_test

import (
	"context"
	"testing"

	"aaxsplit/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithConversionID(ctx, "conv-1")
	ctx = services.WithStage(ctx, "split")
	ctx = services.WithSource(ctx, "/tmp/book.aax")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ConversionIDFromContext(ctx); !ok || id != "conv-1" {
		t.Fatalf("unexpected conversion id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "split" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "/tmp/book.aax" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithConversionID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ConversionIDFromContext(ctx); ok {
		t.Fatal("expected no conversion id")
	}
}
