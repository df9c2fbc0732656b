package models

import (
	"time"
)

// DocumentType identifies the business document category
type DocumentType string

const (
	DocumentTypeInvoice       DocumentType = "invoice"
	DocumentTypePurchaseOrder DocumentType = "purchase_order"
	DocumentTypeGoodsReceipt  DocumentType = "goods_receipt"
	DocumentTypeVendorPolicy  DocumentType = "vendor_policy"
	DocumentTypeReference     DocumentType = "reference"
	DocumentTypeUnknown       DocumentType = "unknown"
)

// Document is a parsed business document. Parsing/OCR happens upstream; this
// service only ever sees the structured form.
//
// Fields holds the extracted scalar fields plus any line-item tables
// (a table is a list of row maps). A document with DocType "reference" carries
// its allow-lists in Reference instead of Fields.
type Document struct {
	ID             string         `json:"id" db:"id"`
	TenantID       string         `json:"tenant_id" db:"tenant_id"`
	DocType        DocumentType   `json:"doc_type" db:"doc_type"`
	Filename       string         `json:"filename,omitempty" db:"filename"`
	Vendor         string         `json:"vendor,omitempty" db:"vendor"`
	VendorID       string         `json:"vendor_id,omitempty" db:"vendor_id"`
	DocumentNumber string         `json:"document_number,omitempty" db:"document_number"`
	Date           *time.Time     `json:"date,omitempty" db:"doc_date"`
	TotalAmount    *float64       `json:"total_amount,omitempty" db:"total_amount"`
	Currency       string         `json:"currency,omitempty" db:"currency"`
	RawText        string         `json:"raw_text,omitempty" db:"raw_text"`
	Fingerprint    string         `json:"fingerprint,omitempty" db:"fingerprint"`
	Fields         map[string]any `json:"fields,omitempty" db:"-"`
	Reference      map[string]any `json:"reference,omitempty" db:"-"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DocumentSet is the evaluation input: at most one document per type, keyed by
// doc_type. The "reference" entry holds allow-lists addressed via reference.<name>.
type DocumentSet map[string]*Document

// Types returns the set of document types present.
func (s DocumentSet) Types() map[string]bool {
	types := make(map[string]bool, len(s))
	for t := range s {
		types[t] = true
	}
	return types
}

// Materialize converts the set into the generic tree consumed by path
// resolution. Ordinary documents expose their top-level metadata plus the
// nested "fields" map; reference documents expose their allow-lists directly.
func (s DocumentSet) Materialize() map[string]any {
	out := make(map[string]any, len(s))
	for docType, doc := range s {
		if doc == nil {
			continue
		}
		out[docType] = doc.AsMap()
	}
	return out
}

// AsMap returns the document as a generic map for path resolution.
func (d *Document) AsMap() map[string]any {
	if d.DocType == DocumentTypeReference {
		m := make(map[string]any, len(d.Reference))
		for k, v := range d.Reference {
			m[k] = v
		}
		return m
	}

	m := map[string]any{
		"doc_type": string(d.DocType),
	}
	if d.Filename != "" {
		m["filename"] = d.Filename
	}
	if d.Vendor != "" {
		m["vendor"] = d.Vendor
	}
	if d.VendorID != "" {
		m["vendor_id"] = d.VendorID
	}
	if d.DocumentNumber != "" {
		m["document_number"] = d.DocumentNumber
	}
	if d.Date != nil {
		m["date"] = d.Date.Format(time.RFC3339)
	}
	if d.TotalAmount != nil {
		m["total_amount"] = *d.TotalAmount
	}
	if d.Currency != "" {
		m["currency"] = d.Currency
	}
	if d.RawText != "" {
		m["raw_text"] = d.RawText
	}
	if d.Fields != nil {
		m["fields"] = d.Fields
	}
	return m
}

// CreateDocumentRequest is the request to submit a parsed document
type CreateDocumentRequest struct {
	DocType        DocumentType   `json:"doc_type" validate:"required"`
	Filename       string         `json:"filename,omitempty"`
	Vendor         string         `json:"vendor,omitempty"`
	VendorID       string         `json:"vendor_id,omitempty"`
	DocumentNumber string         `json:"document_number,omitempty"`
	Date           *time.Time     `json:"date,omitempty"`
	TotalAmount    *float64       `json:"total_amount,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	RawText        string         `json:"raw_text,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
	Reference      map[string]any `json:"reference,omitempty"`
}
