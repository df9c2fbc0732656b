// Package fingerprint produces deterministic content hashes for documents.
// The ingest topic is at-least-once, so the same parsed document can arrive
// more than once; the fingerprint lets the store recognize a redelivery.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Generate creates a deterministic fingerprint for a generic data map.
// The fingerprint is a SHA256 hash of the canonicalized JSON.
func Generate(data map[string]any) string {
	hash := sha256.Sum256([]byte(canonicalize(data)))
	return hex.EncodeToString(hash[:])
}

// ForDocument fingerprints the identity-bearing content of a parsed document.
// Fields that vary between redeliveries of the same document (filename,
// ingest timestamps) are left out.
func ForDocument(docType, vendor, vendorID, documentNumber, currency string, date *time.Time, totalAmount *float64, fields map[string]any, reference map[string]any) string {
	m := map[string]any{
		"doc_type":        docType,
		"vendor":          vendor,
		"vendor_id":       vendorID,
		"document_number": documentNumber,
		"currency":        currency,
	}
	if date != nil {
		m["date"] = date.UTC().Format(time.RFC3339)
	}
	if totalAmount != nil {
		m["total_amount"] = *totalAmount
	}
	if fields != nil {
		m["fields"] = fields
	}
	if reference != nil {
		m["reference"] = reference
	}
	return Generate(m)
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

// canonicalize creates a deterministic string representation of a value
// by sorting map keys and recursively processing nested structures
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		return canonicalizeMap(v)
	case []any:
		return canonicalizeArray(v)
	default:
		// For primitives, use JSON encoding
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func canonicalizeMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := "{"
	for i, k := range keys {
		if i > 0 {
			result += ","
		}
		keyJSON, _ := json.Marshal(k)
		result += string(keyJSON) + ":" + canonicalize(m[k])
	}
	result += "}"
	return result
}

func canonicalizeArray(arr []any) string {
	result := "["
	for i, v := range arr {
		if i > 0 {
			result += ","
		}
		result += canonicalize(v)
	}
	result += "]"
	return result
}
