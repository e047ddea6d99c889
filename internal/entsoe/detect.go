package entsoe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DocumentType identifies the shape of a raw API payload by its root element
type DocumentType string

const (
	DataDocument            DocumentType = "GL_MarketDocument"
	PublicationDocument     DocumentType = "Publication_MarketDocument"
	AcknowledgementDocument DocumentType = "Acknowledgement_MarketDocument"
)

var rootElements = map[string]DocumentType{
	"GL_MarketDocument":              DataDocument,
	"Publication_MarketDocument":     PublicationDocument,
	"Acknowledgement_MarketDocument": AcknowledgementDocument,
}

// DetectDocumentType classifies a raw XML payload by its root element name
// only, with any namespace prefix stripped. It never builds a full tree, so
// the caller can pick the correct strict parser cheaply even when the payload
// is a differently-shaped acknowledgement document.
func DetectDocumentType(payload []byte) (DocumentType, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return "", &DocumentTypeError{Kind: EmptyContent, Detail: "blank payload"}
	}

	decoder := xml.NewDecoder(bytes.NewReader(trimmed))
	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || !bytes.ContainsRune(trimmed, '<') {
				return "", &DocumentTypeError{Kind: NoRootElement, Detail: "no root element found"}
			}
			return "", &DocumentTypeError{Kind: DetectionFailed, Detail: "malformed XML prologue", Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		// xml.Name.Local already carries the element name without its
		// namespace prefix.
		name := start.Name.Local
		if idx := strings.LastIndex(name, ":"); idx >= 0 {
			name = name[idx+1:]
		}

		docType, ok := rootElements[name]
		if !ok {
			return "", &DocumentTypeError{Kind: UnsupportedDocumentType, Detail: "unknown root element " + name}
		}
		return docType, nil
	}
}
