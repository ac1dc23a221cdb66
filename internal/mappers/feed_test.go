package mappers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/booking-backend/internal/models"
)

func TestMapFeedOffer(t *testing.T) {
	price := 95.0
	offer := &models.FeedOffer{
		InternalID: " offer-1 ",
		Title:      "Seaside studio",
		PropertyID: "house-3",
		Price:      &price,
		Currency:   "EUR",
		Amenities:  []string{"wifi", "balcony"},
	}

	action, err := MapFeedOffer("org-1", offer)
	require.NoError(t, err)

	assert.Equal(t, models.KindUnit, action.Kind)
	assert.Equal(t, models.ExternalRef{Source: "feed:org-1", ID: "offer-1"}, action.ExternalRef)
	require.NotNil(t, action.PropertyRef)
	assert.Equal(t, models.ExternalRef{Source: "feed:org-1", ID: "house-3"}, *action.PropertyRef)
	require.NotNil(t, action.Unit)
	assert.Equal(t, "Seaside studio", action.Unit.Title)
	require.NotNil(t, action.Unit.Price)
	assert.Equal(t, price, *action.Unit.Price)
	assert.Equal(t, []string{"wifi", "balcony"}, action.Unit.Amenities)
}

func TestMapFeedOffer_NoPropertyRef(t *testing.T) {
	offer := &models.FeedOffer{InternalID: "offer-2", Title: "Loft"}

	action, err := MapFeedOffer("org-1", offer)
	require.NoError(t, err)
	assert.Nil(t, action.PropertyRef)
}

func TestMapFeedOffer_Invalid(t *testing.T) {
	offer := &models.FeedOffer{InternalID: "offer-3"}

	_, err := MapFeedOffer("org-1", offer)

	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "title", validation.Field)
}

// Offer ids are only unique within one organization's feed.
func TestFeedSource_IsPerOrg(t *testing.T) {
	assert.NotEqual(t, FeedSource("org-1"), FeedSource("org-2"))
}
