package reporting

import (
	"bytes"
	"fmt"

	"github.com/ethereum-optimism/infra/op-hwval/templates"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// RenderReport reads the finalized result document at jsonPath and writes the
// HTML report to htmlPath. The output depends only on the document, so
// rendering the same document twice produces identical files.
func RenderReport(jsonPath, htmlPath string) error {
	doc, err := ReadDocument(jsonPath)
	if err != nil {
		return err
	}
	html, err := RenderHTML(doc)
	if err != nil {
		return err
	}
	return writeAtomic(htmlPath, html)
}

// RenderHTML renders doc with the embedded report template
func RenderHTML(doc *types.ResultDocument) ([]byte, error) {
	tmpl, err := templates.Report()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
