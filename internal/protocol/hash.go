package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// The version suffix allows the algorithm to change without collisions.
const (
	DomainDocument = "labrun/document/v1"
	DomainParams   = "labrun/params/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash identifies a document by content. Two documents that differ
// only in key order or source format (JSON, YAML, CUE) hash identically.
func DocumentHash(doc *Document) (string, error) {
	data, err := MarshalCanonical(doc.Value())
	if err != nil {
		return "", fmt.Errorf("document hash: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}

// ParamsHash identifies a command's params by content.
func ParamsHash(params Object) (string, error) {
	if params == nil {
		params = Object{}
	}
	data, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("params hash: %w", err)
	}
	return hashWithDomain(DomainParams, data), nil
}
