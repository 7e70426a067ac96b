package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rmcmillan34/edge-journal/internal/playbook"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guardrailctl",
		Short:         "Score playbook checklists and run guardrail scans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEvaluateCmd(), newTemplateCmd(), newScanCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readTemplate accepts an exported template document or a bare template.
func readTemplate(path string) (playbook.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return playbook.Template{}, err
	}
	doc, err := playbook.DecodeYAML(raw)
	if err != nil {
		return playbook.Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Template, nil
}

func readValues(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
