package playbook

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
)

// ExportFormat tags exported documents so imports can reject foreign YAML early.
const ExportFormat = "edge-journal/playbook-template"

type ExportDocument struct {
	Format   string `json:"format" yaml:"format"`
	Version  int    `json:"version" yaml:"version"`
	Template `yaml:",inline"`
}

func EncodeYAML(t Template, version int) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ExportDocument{Format: ExportFormat, Version: version, Template: t}); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeYAML parses an exported document and validates the template it carries.
// Unknown keys are rejected.
func DecodeYAML(data []byte) (ExportDocument, error) {
	var doc ExportDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return ExportDocument{}, apperr.Validation(fmt.Sprintf("decode template: %v", err))
	}
	if doc.Format != "" && doc.Format != ExportFormat {
		return ExportDocument{}, apperr.Validation(fmt.Sprintf("unsupported format %q", doc.Format))
	}
	if err := ValidateTemplate(doc.Template); err != nil {
		return ExportDocument{}, err
	}
	return doc, nil
}
