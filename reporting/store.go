package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// WriteDocument serializes doc to path. The file is replaced atomically, so
// readers see either the previous document or the complete new one.
func WriteDocument(path string, doc *types.ResultDocument) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := jsonutil.WriteJSON(doc, ioutil.ToAtomicFile(path, 0o644)); err != nil {
		return fmt.Errorf("writing result document: %w", err)
	}
	return nil
}

// ReadDocument reads a result document written by WriteDocument
func ReadDocument(path string) (*types.ResultDocument, error) {
	doc, err := jsonutil.LoadJSON[types.ResultDocument](path)
	if err != nil {
		return nil, fmt.Errorf("loading result document: %w", err)
	}
	if doc.Results == nil {
		doc.Results = []*types.SuiteResult{}
	}
	return doc, nil
}

// writeAtomic replaces path with data through an atomic temp-file rename.
func writeAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	out, closer, abort, err := ioutil.ToAtomicFile(path, 0o644)()
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := out.Write(data); err != nil {
		abort()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
