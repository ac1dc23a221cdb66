package models

import (
	"encoding/xml"
	"strings"
)

// FeedDocument is the root of an inbound XML property feed. One document
// carries many offers; each offer is validated and processed independently.
type FeedDocument struct {
	XMLName xml.Name    `xml:"realty-feed"`
	Offers  []FeedOffer `xml:"offer"`
}

// FeedOffer is a single rental-unit listing inside a feed document.
type FeedOffer struct {
	InternalID   string   `xml:"internal-id,attr"`
	Title        string   `xml:"title"`
	PropertyID   string   `xml:"property-id"`
	Price        *float64 `xml:"price"`
	Currency     string   `xml:"currency"`
	Location     string   `xml:"location"`
	Amenities    []string `xml:"amenity"`
	Images       []string `xml:"image"`
	MinStayDays  *int     `xml:"min-stay"`
	Deposit      *float64 `xml:"deposit"`
	CheckInFrom  string   `xml:"check-in-from"`
	CheckOutTill string   `xml:"check-out-till"`
}

// Validate checks the fixed offer schema: internal id and title are required,
// everything else is optional.
func (o *FeedOffer) Validate() error {
	if strings.TrimSpace(o.InternalID) == "" {
		return NewValidationError("internal-id", "offer is missing its internal id")
	}
	if strings.TrimSpace(o.Title) == "" {
		return NewValidationError("title", "offer is missing its title")
	}
	if o.Price != nil && *o.Price < 0 {
		return NewValidationError("price", "offer price cannot be negative")
	}
	if o.MinStayDays != nil && *o.MinStayDays < 0 {
		return NewValidationError("min-stay", "minimum stay cannot be negative")
	}
	return nil
}

// FeedImportRequest is the inbound feed-import call.
type FeedImportRequest struct {
	OrgID      string `json:"org_id" binding:"required"`
	XMLContent string `json:"xml_content" binding:"required"`
}

// FeedImportOutcome classifies a whole import run.
type FeedImportOutcome string

const (
	FeedImportSuccess FeedImportOutcome = "SUCCESS"
	FeedImportPartial FeedImportOutcome = "PARTIAL"
	FeedImportError   FeedImportOutcome = "ERROR"
)

// FeedOfferError records why one offer was rejected.
type FeedOfferError struct {
	OfferID string `json:"offer_id"`
	Message string `json:"message"`
}

// FeedImportSummary is the per-document import result. Failures are
// per-offer: a bad offer never aborts its siblings.
type FeedImportSummary struct {
	Success   bool              `json:"success"`
	Outcome   FeedImportOutcome `json:"outcome"`
	Processed int               `json:"processed"`
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Errors    []FeedOfferError  `json:"errors"`
}
