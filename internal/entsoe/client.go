package entsoe

import (
	"context"

	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
)

// ClientConfig configures the API client
type ClientConfig struct {
	BaseURL       string
	SecurityToken string
}

// Client composes the transport, the document type detector and the parsers
// into one fetch-and-decode call.
type Client struct {
	config    *ClientConfig
	transport *Transport
	logger    *logging.StructuredLogger
}

// NewClient creates a new API client
func NewClient(config *ClientConfig, transport *Transport, logger *logging.StructuredLogger) *Client {
	return &Client{
		config:    config,
		transport: transport,
		logger:    logger,
	}
}

// Close releases the client's transport resources
func (c *Client) Close() {
	c.transport.Close()
}

// Fetch validates and serializes the query parameters, performs the GET,
// classifies the response body and dispatches it to the matching parser.
// Transport failures propagate already classified; detection and parser
// failures are wrapped in a ClientError preserving the original cause.
func (c *Client) Fetch(ctx context.Context, params RequestParams) (Document, error) {
	values, err := BuildRequest(params)
	if err != nil {
		return nil, err
	}
	values.Set("securityToken", c.config.SecurityToken)

	body, err := c.transport.Get(ctx, c.config.BaseURL, values)
	if err != nil {
		return nil, err
	}

	docType, err := DetectDocumentType(body)
	if err != nil {
		return nil, &ClientError{Op: "detect", URL: c.config.BaseURL, Err: err}
	}

	c.logger.Debug(ctx, "[CLIENT_FETCH] Document fetched", logging.Fields{
		"document_type": string(docType),
		"bytes":         len(body),
		"area":          params.InArea.Code,
	})

	var doc Document
	switch docType {
	case AcknowledgementDocument:
		doc, err = ParseAcknowledgement(body)
	default:
		doc, err = ParseMarketDocument(body, docType)
	}
	if err != nil {
		return nil, &ClientError{Op: "parse", URL: c.config.BaseURL, Err: err}
	}

	return doc, nil
}
