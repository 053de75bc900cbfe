package request

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/domain/search/depth"
)

func vec() []float32 { return []float32{0.1, 0.2, 0.3} }

func TestNew_Defaults(t *testing.T) {
	r, err := New(vec(), "", "company-a", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Category() != DefaultCategory {
		t.Errorf("Category() = %q, want %q", r.Category(), DefaultCategory)
	}
	if r.Depth() != depth.Detailed {
		t.Errorf("Depth() = %q, want detailed (default)", r.Depth())
	}
	if r.TopK() != 10 {
		t.Errorf("TopK() = %d, want 10", r.TopK())
	}
	if r.HasPinned() {
		t.Error("HasPinned() = true without pinned rfp")
	}
	if r.TenantID() != "company-a" {
		t.Errorf("TenantID() = %q", r.TenantID())
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	r, err := New(vec(), "  security ", "company-a", Options{
		PinnedSourceRfpID: " rfp-1 ",
		Depth:             depth.Basic,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Category() != "security" {
		t.Errorf("Category() = %q", r.Category())
	}
	if r.PinnedSourceRfpID() != "rfp-1" || !r.HasPinned() {
		t.Errorf("PinnedSourceRfpID() = %q", r.PinnedSourceRfpID())
	}
	if r.TopK() != 5 {
		t.Errorf("TopK() = %d, want 5", r.TopK())
	}
	if len(r.Embedding()) != 3 {
		t.Errorf("Embedding() len = %d", len(r.Embedding()))
	}
}

func TestNew_TenantNotValidatedHere(t *testing.T) {
	r, err := New(vec(), "", "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TenantID() != "" {
		t.Errorf("TenantID() = %q", r.TenantID())
	}
}

func TestNew_Invalid(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name      string
		embedding []float32
		category  string
		opts      Options
		want      string
	}{
		{"empty embedding", nil, "", Options{}, "embedding is required"},
		{"too many dims", make([]float32, MaxDimensions+1), "", Options{}, "embedding too long"},
		{"nan", []float32{0.1, nan}, "", Options{}, "non-finite"},
		{"long category", vec(), strings.Repeat("c", MaxCategoryLength+1), Options{}, "category too long"},
		{"long rfp", vec(), "", Options{PinnedSourceRfpID: strings.Repeat("r", MaxRfpIDLength+1)}, "pinned rfp id too long"},
		{"bad depth", vec(), "", Options{Depth: "deep"}, "invalid depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.embedding, tt.category, "company-a", tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}
