package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

func generateTestTransitions() []*models.Transition {
	now := time.Now()
	at := func(d time.Duration) models.BaseModel {
		return models.BaseModel{CreatedAt: now.Add(d)}
	}
	return []*models.Transition{
		{
			BaseModel: at(-1 * time.Hour),
			Signature: "sig1",
			Kind:      models.KindCurveInit,
			Mint:      "mintA",
			Actor:     "creator1",
			Amount:    800_000_000_000_000,
			Lamports:  30_000_000_000,
		},
		{
			BaseModel: at(-45 * time.Minute),
			Signature: "sig2",
			Kind:      models.KindCurveBuy,
			Mint:      "mintA",
			Actor:     "buyer1",
			Amount:    1_000_000,
			Lamports:  28,
		},
		{
			BaseModel: at(-30 * time.Minute),
			Signature: "sig3",
			Kind:      models.KindListingNew,
			Mint:      "mintB",
			Actor:     "seller1",
			Amount:    1,
			Lamports:  5_000_000_000,
		},
		{
			BaseModel:    at(-10 * time.Minute),
			Signature:    "sig4",
			Kind:         models.KindListingSold,
			Mint:         "mintB",
			Actor:        "buyer2",
			Counterparty: "seller1",
			Amount:       1,
			Lamports:     5_000_000_000,
			Fee:          100_000_000,
		},
	}
}

func TestExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	var buf bytes.Buffer
	err := exporter.Export(&buf, generateTestTransitions(), Options{Format: FormatCSV})
	if err != nil {
		t.Fatalf("Failed to export transitions: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected header plus 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,signature,kind") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
	if !strings.Contains(lines[2], "curve_buy") {
		t.Errorf("Expected rows in time order, got: %s", lines[2])
	}

	t.Logf("Exported CSV (%d bytes)", buf.Len())
}

func TestExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	var buf bytes.Buffer
	err := exporter.Export(&buf, generateTestTransitions(), Options{Format: FormatJSON})
	if err != nil {
		t.Fatalf("Failed to export transitions: %v", err)
	}

	var payload struct {
		Count   int     `json:"count"`
		Summary Summary `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if payload.Count != 4 {
		t.Errorf("Expected 4 transitions, got %d", payload.Count)
	}
	if payload.Summary.UniqueMints != 2 {
		t.Errorf("Expected 2 unique mints, got %d", payload.Summary.UniqueMints)
	}
}

func TestExportFilters(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	transitions := generateTestTransitions()

	// Mint filter
	var buf bytes.Buffer
	err := exporter.Export(&buf, transitions, Options{Format: FormatCSV, Mint: "mintA"})
	if err != nil {
		t.Fatalf("Failed to export with mint filter: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Errorf("Expected header plus 2 rows for mintA, got %d lines", got)
	}

	// Kind filter
	buf.Reset()
	err = exporter.Export(&buf, transitions, Options{Format: FormatCSV, Kind: models.KindListingSold})
	if err != nil {
		t.Fatalf("Failed to export with kind filter: %v", err)
	}
	if !strings.Contains(buf.String(), "sig4") {
		t.Error("Expected the sale transition in the kind-filtered export")
	}

	// Time filter
	buf.Reset()
	err = exporter.Export(&buf, transitions, Options{
		Format:    FormatCSV,
		StartTime: time.Now().Add(-35 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to export with time filter: %v", err)
	}
	if strings.Contains(buf.String(), "sig1") {
		t.Error("Time filter should have excluded the oldest transition")
	}

	// Nothing matches
	buf.Reset()
	err = exporter.Export(&buf, transitions, Options{Format: FormatCSV, Mint: "unknown"})
	if err == nil {
		t.Error("Expected an error when no transitions match")
	}
}

func TestSummaryCalculation(t *testing.T) {
	summary := Summarize(generateTestTransitions())

	if summary.Total != 4 {
		t.Errorf("Expected 4 total transitions, got %d", summary.Total)
	}
	if summary.ByKind[models.KindCurveBuy] != 1 {
		t.Errorf("Expected 1 curve buy, got %d", summary.ByKind[models.KindCurveBuy])
	}
	if summary.TotalFees != 100_000_000 {
		t.Errorf("Expected 100000000 lamports in fees, got %d", summary.TotalFees)
	}

	t.Logf("Summary: %+v", summary)
}

func TestFilenameGeneration(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	tests := []struct {
		options  Options
		expected string
	}{
		{Options{Format: FormatCSV}, "transitions_all"},
		{Options{Format: FormatJSON, Kind: models.KindCurveBuy}, "transitions_curve_buy"},
		{Options{Format: FormatCSV, Kind: models.KindListingSold, Mint: "mintABCD1234"}, "transitions_listing_sold_mintABCD"},
	}

	for _, tt := range tests {
		filename := exporter.Filename(tt.options)
		if !strings.HasPrefix(filename, tt.expected) {
			t.Errorf("Expected filename to start with %s, got %s", tt.expected, filename)
		}
		if !strings.HasSuffix(filename, "."+string(tt.options.Format)) {
			t.Errorf("Expected %s extension, got %s", tt.options.Format, filename)
		}
	}
}
