package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/pipeline"
)

func scanCmd(open opener) *cobra.Command {
	var (
		lang    string
		docType string
		pretty  bool
	)
	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan files (or stdin) and print detection results as JSON",
		Long: `Scan runs the detection pipeline over each file and writes one JSON
result per line. Without arguments the document is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, d, err := open(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			docs, err := readDocuments(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			var opts []pipeline.ProcessOption
			if docType != "" {
				t := doctype.Parse(docType)
				if t == doctype.Unknown && !strings.EqualFold(docType, string(doctype.Unknown)) {
					return fmt.Errorf("unknown document type %q", docType)
				}
				opts = append(opts, pipeline.WithDocumentType(t))
			}
			for i := range docs {
				docs[i].Language = lang
				docs[i].Options = opts
			}

			results, err := d.ProcessBatch(ctx, docs)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			for _, res := range results {
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "document language (en, de, fr, it); detected when empty")
	cmd.Flags().StringVar(&docType, "type", "", "document type override (INVOICE, LETTER, FORM, CONTRACT, REPORT)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func readDocuments(stdin io.Reader, paths []string) ([]pipeline.Document, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []pipeline.Document{{ID: "stdin", Text: string(data)}}, nil
	}
	docs := make([]pipeline.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, pipeline.Document{ID: filepath.Base(p), Text: string(data)})
	}
	return docs, nil
}
