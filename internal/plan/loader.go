package plan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Converter decodes a binary plan artifact.
type Converter interface {
	ShowPlan(ctx context.Context, path string) (*Document, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load decodes a plan JSON document. Numbers are kept as json.Number so
// resource values round-trip without loss. A leading UTF-8 BOM is skipped.
func Load(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if _, ok := firstToken(br); !ok {
		return nil, &MalformedPlanError{Reason: "empty plan"}
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &MalformedPlanError{Reason: "decode plan JSON", Err: err}
	}
	return &doc, nil
}

// LoadBytes decodes a plan JSON document held in memory.
func LoadBytes(data []byte) (*Document, error) {
	return Load(bytes.NewReader(data))
}

// LoadFile reads a plan from disk. Files that do not look like JSON are
// treated as binary plans and converted with conv first.
func LoadFile(ctx context.Context, path string, conv Converter) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	c, ok := firstToken(br)
	if !ok {
		return nil, &MalformedPlanError{Reason: "empty plan file " + path}
	}
	if c == '{' {
		return Load(br)
	}

	if conv == nil {
		return nil, fmt.Errorf("plan %s is not JSON and no converter is configured", path)
	}
	slog.Debug("Converting binary plan", "path", path)
	doc, err := conv.ShowPlan(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("convert binary plan: %w", err)
	}
	if doc == nil {
		return nil, &MalformedPlanError{Reason: "converter returned no plan for " + path}
	}
	return doc, nil
}

// firstToken skips a UTF-8 BOM and leading whitespace, then peeks at the
// next byte without consuming it. ok is false when the input is exhausted.
func firstToken(br *bufio.Reader) (c byte, ok bool) {
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, false
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.Discard(1)
		default:
			return b[0], true
		}
	}
}
