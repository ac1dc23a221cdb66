package services

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/staysync/booking-backend/internal/config"
	"github.com/staysync/booking-backend/internal/mappers"
	"github.com/staysync/booking-backend/internal/models"
)

// FeedService imports organization property feeds. A feed is a full snapshot
// of an org's listings; importing one upserts every offer into inventory.
type FeedService struct {
	reconciliation *ReconciliationService
	config         config.FeedConfig
	logger         *logrus.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(reconciliation *ReconciliationService, cfg config.FeedConfig, logger *logrus.Logger) *FeedService {
	return &FeedService{
		reconciliation: reconciliation,
		config:         cfg,
		logger:         logger,
	}
}

// Import parses and applies one feed document. Offers fail independently:
// one malformed offer is recorded and skipped, its siblings still land.
func (s *FeedService) Import(ctx context.Context, req *models.FeedImportRequest) (*models.FeedImportSummary, error) {
	if s.config.MaxDocumentBytes > 0 && len(req.XMLContent) > s.config.MaxDocumentBytes {
		return nil, models.NewValidationError("xml_content",
			fmt.Sprintf("feed document exceeds %d bytes", s.config.MaxDocumentBytes))
	}

	var doc models.FeedDocument
	if err := xml.Unmarshal([]byte(req.XMLContent), &doc); err != nil {
		return nil, models.NewValidationError("xml_content", "malformed feed XML: "+err.Error())
	}

	if s.config.MaxOffers > 0 && len(doc.Offers) > s.config.MaxOffers {
		return nil, models.NewValidationError("xml_content",
			fmt.Sprintf("feed carries %d offers, limit is %d", len(doc.Offers), s.config.MaxOffers))
	}

	summary := &models.FeedImportSummary{
		Processed: len(doc.Offers),
		Errors:    []models.FeedOfferError{},
	}

	for i := range doc.Offers {
		offer := &doc.Offers[i]
		if err := s.importOffer(ctx, req.OrgID, offer, summary); err != nil {
			summary.Errors = append(summary.Errors, models.FeedOfferError{
				OfferID: offer.InternalID,
				Message: err.Error(),
			})
		}
	}

	switch {
	case len(summary.Errors) == 0:
		summary.Success = true
		summary.Outcome = models.FeedImportSuccess
	case summary.Created+summary.Updated > 0:
		summary.Outcome = models.FeedImportPartial
	default:
		summary.Outcome = models.FeedImportError
	}

	s.logger.WithFields(logrus.Fields{
		"org_id":    req.OrgID,
		"processed": summary.Processed,
		"created":   summary.Created,
		"updated":   summary.Updated,
		"errors":    len(summary.Errors),
		"outcome":   summary.Outcome,
	}).Info("Feed import finished")

	return summary, nil
}

func (s *FeedService) importOffer(ctx context.Context, orgID string, offer *models.FeedOffer, summary *models.FeedImportSummary) error {
	action, err := mappers.MapFeedOffer(orgID, offer)
	if err != nil {
		return err
	}

	outcome := s.reconciliation.Apply(ctx, action)
	switch outcome.Outcome {
	case models.OutcomeCreated:
		summary.Created++
	case models.OutcomeUpdated:
		summary.Updated++
	case models.OutcomeError:
		reason := "reconciliation failed"
		if outcome.Reason != nil {
			reason = *outcome.Reason
		}
		return fmt.Errorf("%s", reason)
	}
	return nil
}
