// Package export renders recorded protocol transitions as downloadable
// CSV or JSON reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options narrows which transitions end up in the report.
type Options struct {
	Format    Format
	Mint      string // filter by mint address
	Kind      string // filter by transition kind
	StartTime time.Time
	EndTime   time.Time
}

// Exporter writes transition reports.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// Export filters, sorts and writes the transitions to w in the requested
// format. Exporting an empty result is an error so callers can distinguish
// "nothing matched" from an empty file.
func (e *Exporter) Export(w io.Writer, transitions []*models.Transition, opts Options) error {
	filtered := filter(transitions, opts)
	if len(filtered) == 0 {
		return fmt.Errorf("no transitions match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(w, filtered)
	case FormatJSON:
		err = writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return err
	}

	e.logger.Info("Transitions exported",
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return nil
}

// Filename suggests a download filename for the options.
func (e *Exporter) Filename(opts Options) string {
	prefix := "transitions_all"
	if opts.Kind != "" {
		prefix = "transitions_" + opts.Kind
	}
	if opts.Mint != "" && len(opts.Mint) >= 8 {
		prefix += "_" + opts.Mint[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), opts.Format)
}

func filter(transitions []*models.Transition, opts Options) []*models.Transition {
	var out []*models.Transition
	for _, t := range transitions {
		if !opts.StartTime.IsZero() && t.CreatedAt.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && t.CreatedAt.After(opts.EndTime) {
			continue
		}
		if opts.Mint != "" && t.Mint != opts.Mint {
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		out = append(out, t)
	}
	return out
}

func csvHeaders() []string {
	return []string{"time", "signature", "kind", "mint", "actor", "counterparty", "amount", "lamports", "fee"}
}

func csvRow(t *models.Transition) []string {
	return []string{
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.Signature,
		t.Kind,
		t.Mint,
		t.Actor,
		t.Counterparty,
		strconv.FormatUint(t.Amount, 10),
		strconv.FormatUint(t.Lamports, 10),
		strconv.FormatUint(t.Fee, 10),
	}
}

func writeCSV(w io.Writer, transitions []*models.Transition) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range transitions {
		if err := cw.Write(csvRow(t)); err != nil {
			return fmt.Errorf("failed to write transition: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, transitions []*models.Transition) error {
	payload := struct {
		ExportTime  time.Time            `json:"export_time"`
		Count       int                  `json:"count"`
		Summary     Summary              `json:"summary"`
		Transitions []*models.Transition `json:"transitions"`
	}{
		ExportTime:  time.Now(),
		Count:       len(transitions),
		Summary:     Summarize(transitions),
		Transitions: transitions,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a set of transitions.
type Summary struct {
	Total         int            `json:"total"`
	ByKind        map[string]int `json:"by_kind"`
	UniqueMints   int            `json:"unique_mints"`
	TotalLamports uint64         `json:"total_lamports"`
	TotalFees     uint64         `json:"total_fees"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
}

// Summarize computes the aggregate view of the transitions. The input is
// assumed sorted by creation time.
func Summarize(transitions []*models.Transition) Summary {
	summary := Summary{
		Total:  len(transitions),
		ByKind: make(map[string]int),
	}
	if len(transitions) == 0 {
		return summary
	}

	summary.StartDate = transitions[0].CreatedAt
	summary.EndDate = transitions[len(transitions)-1].CreatedAt

	mints := make(map[string]bool)
	for _, t := range transitions {
		summary.ByKind[t.Kind]++
		mints[t.Mint] = true
		summary.TotalLamports += t.Lamports
		summary.TotalFees += t.Fee
	}
	summary.UniqueMints = len(mints)
	return summary
}
