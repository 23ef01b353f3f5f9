package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// benchLines are rotated to build synthetic documents. They mix valid and
// invalid identifiers so every validator runs.
var benchLines = []string{
	"Sehr geehrte Frau Keller,",
	"Rue de Lausanne 12, 1000 Lausanne",
	"Bahnhofstrasse 1, 8001 Zürich, Schweiz",
	"Kontakt: anna.keller@example.ch, Tel. +41 44 668 18 00",
	"IBAN CH93 0076 2011 6238 5295 7, AHV 756.1234.5678.97",
	"UID CHE-116.281.710 MWST, Rechnung vom 12.03.2024",
	"Invoice: billing@example.ch, call 12345 67890 123",
	"am 15. März 2024 Attestation für 2000 Neuchâtel",
	"lorem ipsum dolor sit amet, consectetur adipiscing elit",
}

func syntheticDocument(lines, offset int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString(benchLines[(offset+i)%len(benchLines)])
		b.WriteByte('\n')
	}
	return b.String()
}

type benchStats struct {
	N   int
	Avg float64
	P50 float64
	P95 float64
	P99 float64
	Max float64
}

func summarize(durations []time.Duration) benchStats {
	if len(durations) == 0 {
		return benchStats{}
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	at := func(q float64) float64 {
		i := int(float64(len(sorted)) * q)
		if i >= len(sorted) {
			i = len(sorted) - 1
		}
		return ms(sorted[i])
	}
	return benchStats{
		N:   len(sorted),
		Avg: ms(total) / float64(len(sorted)),
		P50: at(0.50),
		P95: at(0.95),
		P99: at(0.99),
		Max: ms(sorted[len(sorted)-1]),
	}
}

func benchCmd(open opener) *cobra.Command {
	var (
		n      int
		lines  int
		warmup int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure pipeline latency over synthetic documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, d, err := open(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			if n <= 0 {
				n = 1
			}
			for i := 0; i < warmup; i++ {
				if _, err := d.Process(ctx, syntheticDocument(lines, i), "warmup", ""); err != nil {
					return fmt.Errorf("warmup: %w", err)
				}
			}

			durations := make([]time.Duration, 0, n)
			entities := 0
			for i := 0; i < n; i++ {
				doc := syntheticDocument(lines, i)
				start := time.Now()
				res, err := d.Process(ctx, doc, fmt.Sprintf("bench-%d", i), "")
				if err != nil {
					return fmt.Errorf("process: %w", err)
				}
				durations = append(durations, time.Since(start))
				entities += len(res.Entities)
			}

			st := summarize(durations)
			src := d.SourceStatus()
			model := "none"
			if src.Enabled {
				model = src.SourceID + "@" + src.SourceVersion
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"bench: n=%d lines=%d avg_ms=%.2f p50_ms=%.2f p95_ms=%.2f p99_ms=%.2f max_ms=%.2f entities=%d model=%s seq_len=%d\n",
				st.N, lines, st.Avg, st.P50, st.P95, st.P99, st.Max, entities, model, cfg.Recall.SeqLen)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "iterations", "n", 200, "number of measured documents")
	cmd.Flags().IntVar(&lines, "lines", 40, "lines per synthetic document")
	cmd.Flags().IntVar(&warmup, "warmup", 5, "unmeasured warmup documents")
	return cmd
}
