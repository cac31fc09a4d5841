package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies the source encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatForPath picks a Format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported protocol file extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// Load reads a protocol document from disk. The format follows the file
// extension. No schema validation is performed.
func Load(path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol: %w", err)
	}

	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatCUE:
		return ParseCUE(data, filepath.Base(path))
	default:
		return Parse(data)
	}
}

// Parse decodes a JSON protocol document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode protocol: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a YAML protocol document by converting it to JSON first,
// so both encodings share one decoding path.
func ParseYAML(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml protocol: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode yaml protocol: empty document")
	}
	val, err := FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("decode yaml protocol: %w", err)
	}
	jsonData, err := MarshalValue(val)
	if err != nil {
		return nil, fmt.Errorf("decode yaml protocol: %w", err)
	}
	return Parse(jsonData)
}

// ParseCUE evaluates a CUE protocol document and decodes its JSON export.
// The document must be concrete; CUE constraints in the file are evaluated
// but no external schema is applied.
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile cue protocol: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("cue protocol is not concrete: %w", err)
	}
	jsonData, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export cue protocol: %w", err)
	}
	return Parse(jsonData)
}
