package mappers

import (
	"strings"

	"github.com/staysync/booking-backend/internal/models"
)

// FeedSource builds the ExternalRef source for offers imported from an
// organization's XML feed. Feeds are per-organization, so offer ids are only
// unique within one org.
func FeedSource(orgID string) string {
	return "feed:" + orgID
}

// MapFeedOffer normalizes one validated feed offer into a unit-kind
// InboundAction keyed by the feed's own per-offer id. Whether the action
// lands as CREATED or UPDATED is decided downstream by whether the unit's
// external reference is already known to inventory.
func MapFeedOffer(orgID string, offer *models.FeedOffer) (*models.InboundAction, error) {
	if err := offer.Validate(); err != nil {
		return nil, err
	}

	payload := &models.UnitPayload{
		Title:        strings.TrimSpace(offer.Title),
		Price:        offer.Price,
		Currency:     optional(offer.Currency),
		Location:     optional(offer.Location),
		Amenities:    offer.Amenities,
		Images:       offer.Images,
		MinStayDays:  offer.MinStayDays,
		Deposit:      offer.Deposit,
		CheckInFrom:  optional(offer.CheckInFrom),
		CheckOutTill: optional(offer.CheckOutTill),
	}

	action := &models.InboundAction{
		Kind:   models.KindUnit,
		Action: models.ActionCreate,
		ExternalRef: models.ExternalRef{
			Source: FeedSource(orgID),
			ID:     strings.TrimSpace(offer.InternalID),
		},
		Unit: payload,
	}

	if propertyID := strings.TrimSpace(offer.PropertyID); propertyID != "" {
		ref := models.ExternalRef{Source: FeedSource(orgID), ID: propertyID}
		action.PropertyRef = &ref
		payload.PropertyRef = &ref
	}

	return action, nil
}
