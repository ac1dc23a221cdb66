package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/staysync/booking-backend/internal/database"
	"github.com/staysync/booking-backend/internal/models"
	"github.com/staysync/booking-backend/pkg/inventory"
)

// InventoryResolver resolves foreign property/unit references against the
// inventory service. Satisfied by *inventory.Client.
type InventoryResolver interface {
	GetPropertyByExternalRef(ctx context.Context, source, externalID string) (*inventory.Property, error)
	GetUnitByExternalRef(ctx context.Context, source, externalID string) (*inventory.Unit, error)
	CreateProperty(ctx context.Context, req inventory.CreatePropertyRequest) (*inventory.Property, error)
	CreateUnit(ctx context.Context, req inventory.CreateUnitRequest) (*inventory.Unit, error)
	UpdateUnit(ctx context.Context, unitID string, req inventory.UpdateUnitRequest) (*inventory.Unit, error)
}

// ReconciliationService merges externally reported events into the canonical
// store without violating local invariants. Every inbound action yields a
// typed outcome; errors never propagate as transport failures.
type ReconciliationService struct {
	bookingService *BookingService
	guestRepo      *database.GuestRepository
	resolver       InventoryResolver
	logger         *logrus.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	bookingService *BookingService,
	guestRepo *database.GuestRepository,
	resolver InventoryResolver,
	logger *logrus.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		bookingService: bookingService,
		guestRepo:      guestRepo,
		resolver:       resolver,
		logger:         logger,
	}
}

// Apply applies one inbound action and reports the outcome.
func (s *ReconciliationService) Apply(ctx context.Context, action *models.InboundAction) models.ReconciliationOutcome {
	var outcome models.ReconciliationOutcome
	switch action.Kind {
	case models.KindUnit:
		outcome = s.applyUnit(ctx, action)
	default:
		outcome = s.applyBooking(ctx, action)
	}

	s.logger.WithFields(logrus.Fields{
		"source":  action.ExternalRef.Source,
		"id":      action.ExternalRef.ID,
		"action":  action.Action,
		"outcome": outcome.Outcome,
	}).Info("Inbound action reconciled")

	return outcome
}

// applyBooking handles booking-kind actions (webhook events).
func (s *ReconciliationService) applyBooking(ctx context.Context, action *models.InboundAction) models.ReconciliationOutcome {
	existing, err := s.bookingService.GetBookingByExternalRef(action.ExternalRef.Source, action.ExternalRef.ID)
	if err != nil {
		return errorOutcome(fmt.Errorf("external ref lookup failed: %w", err))
	}

	switch action.Action {
	case models.ActionCreate:
		if existing != nil {
			// Duplicate delivery of an event we already applied
			reason := "external booking already reconciled"
			return models.ReconciliationOutcome{
				Outcome:   models.OutcomeIgnored,
				BookingID: &existing.ID,
				Reason:    &reason,
			}
		}
		return s.createBooking(ctx, action)

	case models.ActionUpdate:
		if existing == nil {
			// The create event was missed; treat the update as a create
			return s.createBooking(ctx, action)
		}
		return s.updateBooking(existing, action)

	case models.ActionCancel:
		return s.cancelBooking(existing, action, false)

	case models.ActionDelete:
		return s.cancelBooking(existing, action, true)

	default:
		return errorOutcome(fmt.Errorf("unsupported action %q", action.Action))
	}
}

// createBooking resolves the foreign unit reference and creates a confirmed
// booking. The foreign system already confirmed the reservation; pending
// would misreport its state.
func (s *ReconciliationService) createBooking(ctx context.Context, action *models.InboundAction) models.ReconciliationOutcome {
	unit, err := s.resolveUnit(ctx, action)
	if err != nil {
		return errorOutcome(err)
	}

	req := &models.CreateBookingRequest{
		UnitID:     unit.ID,
		PropertyID: &unit.PropertyID,
		GuestName:  &action.GuestName,
		GuestPhone: action.GuestPhone,
		GuestEmail: action.GuestEmail,
		CheckIn:    action.CheckIn,
		CheckOut:   action.CheckOut,
		Notes:      action.Notes,
		Confirmed:  true,
		ExternalRef: &models.ExternalRef{
			Source: action.ExternalRef.Source,
			ID:     action.ExternalRef.ID,
		},
	}
	if action.Amount != nil {
		req.TotalAmount = *action.Amount
	}
	if action.Currency != nil {
		req.Currency = *action.Currency
	}

	booking, err := s.bookingService.CreateBooking(req)
	if err != nil {
		var unavailable *models.UnavailableRangeError
		if errors.As(err, &unavailable) {
			return conflictOutcome(unavailable)
		}
		return errorOutcome(err)
	}

	return models.ReconciliationOutcome{
		Outcome:    models.OutcomeCreated,
		BookingID:  &booking.ID,
		UnitID:     &unit.ID,
		PropertyID: &unit.PropertyID,
	}
}

// updateBooking reschedules and/or patches an existing booking depending on
// which fields the external event changed.
func (s *ReconciliationService) updateBooking(existing *models.Booking, action *models.InboundAction) models.ReconciliationOutcome {
	booking := existing

	if !existing.CheckIn.Equal(action.CheckIn) || !existing.CheckOut.Equal(action.CheckOut) {
		updated, err := s.bookingService.ChangeBookingDates(existing.ID, action.CheckIn, action.CheckOut)
		if err != nil {
			var unavailable *models.UnavailableRangeError
			if errors.As(err, &unavailable) {
				return conflictOutcome(unavailable)
			}
			return errorOutcome(err)
		}
		booking = updated
	}

	patch := &models.UpdateBookingRequest{}
	changed := false
	if action.Amount != nil && *action.Amount != existing.TotalAmount {
		patch.TotalAmount = action.Amount
		changed = true
	}
	if action.Currency != nil && *action.Currency != existing.Currency {
		patch.Currency = action.Currency
		changed = true
	}
	if action.Notes != nil && !equalPtr(action.Notes, existing.Notes) {
		patch.Notes = action.Notes
		changed = true
	}
	if guestID := s.reconcileGuest(existing, action); guestID != nil {
		patch.GuestID = guestID
		changed = true
	}

	if changed {
		updated, err := s.bookingService.UpdateBooking(booking.ID, patch)
		if err != nil {
			return errorOutcome(err)
		}
		booking = updated
	}

	return models.ReconciliationOutcome{
		Outcome:   models.OutcomeUpdated,
		BookingID: &booking.ID,
	}
}

// reconcileGuest upserts the guest reported by the external event when it
// differs from the booking's current guest. The placeholder name carries no
// identity and never replaces a real guest.
func (s *ReconciliationService) reconcileGuest(existing *models.Booking, action *models.InboundAction) *string {
	if action.GuestName == "" || action.GuestName == "Guest" {
		return nil
	}
	if action.GuestPhone == nil && action.GuestEmail == nil {
		// Without a contact field there is nothing to match identity on;
		// re-upserting would mint a fresh guest on every update.
		return nil
	}

	guest, err := s.guestRepo.Upsert(action.GuestName, action.GuestPhone, action.GuestEmail)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to reconcile guest, keeping current one")
		return nil
	}
	if existing.GuestID != nil && *existing.GuestID == guest.ID {
		return nil
	}
	return &guest.ID
}

// cancelBooking handles CANCEL and DELETE. DELETE additionally purges the
// external-ref mapping so a replayed id no longer targets the booking;
// CANCEL keeps it for audit continuity.
func (s *ReconciliationService) cancelBooking(existing *models.Booking, action *models.InboundAction, purgeRef bool) models.ReconciliationOutcome {
	if existing == nil {
		reason := "no booking correlated with " + action.ExternalRef.String()
		return models.ReconciliationOutcome{Outcome: models.OutcomeIgnored, Reason: &reason}
	}

	booking, err := s.bookingService.CancelBooking(existing.ID, action.CancellationReason)
	if err != nil {
		return errorOutcome(err)
	}

	outcome := models.OutcomeCanceled
	if purgeRef {
		if err := s.bookingService.DetachExternalRef(booking.ID); err != nil {
			return errorOutcome(err)
		}
		outcome = models.OutcomeDeleted
	}

	return models.ReconciliationOutcome{
		Outcome:   outcome,
		BookingID: &booking.ID,
	}
}

// resolveUnit resolves the action's unit reference to a local inventory
// record, creating the property and unit just in time when the channel
// reports a listing we have never seen.
func (s *ReconciliationService) resolveUnit(ctx context.Context, action *models.InboundAction) (*inventory.Unit, error) {
	if action.UnitRef == nil {
		return nil, models.NewValidationError("unit_ref", "payload carries no unit reference")
	}

	unit, err := s.resolver.GetUnitByExternalRef(ctx, action.UnitRef.Source, action.UnitRef.ID)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		return unit, nil
	}

	propertyRef := action.PropertyRef
	if propertyRef == nil {
		// Standalone listing: key the property by the unit's own ref
		propertyRef = action.UnitRef
	}

	property, err := s.resolveProperty(ctx, propertyRef, "Imported property "+propertyRef.ID, nil)
	if err != nil {
		return nil, err
	}

	return s.resolver.CreateUnit(ctx, inventory.CreateUnitRequest{
		PropertyID:     property.ID,
		Title:          "Imported unit " + action.UnitRef.ID,
		ExternalSource: action.UnitRef.Source,
		ExternalID:     action.UnitRef.ID,
	})
}

// resolveProperty fetches or just-in-time creates a property by external ref.
func (s *ReconciliationService) resolveProperty(ctx context.Context, ref *models.ExternalRef, title string, location *string) (*inventory.Property, error) {
	property, err := s.resolver.GetPropertyByExternalRef(ctx, ref.Source, ref.ID)
	if err != nil {
		return nil, err
	}
	if property != nil {
		return property, nil
	}

	return s.resolver.CreateProperty(ctx, inventory.CreatePropertyRequest{
		Title:          title,
		Location:       location,
		ExternalSource: ref.Source,
		ExternalID:     ref.ID,
	})
}

// applyUnit handles unit-kind actions (feed offers): upsert the listing in
// inventory keyed by the feed's per-offer external id.
func (s *ReconciliationService) applyUnit(ctx context.Context, action *models.InboundAction) models.ReconciliationOutcome {
	payload := action.Unit
	if payload == nil {
		return errorOutcome(models.NewValidationError("unit", "unit action carries no payload"))
	}

	existing, err := s.resolver.GetUnitByExternalRef(ctx, action.ExternalRef.Source, action.ExternalRef.ID)
	if err != nil {
		return errorOutcome(err)
	}

	if existing != nil {
		unit, err := s.resolver.UpdateUnit(ctx, existing.ID, inventory.UpdateUnitRequest{
			Title:        payload.Title,
			Price:        payload.Price,
			Currency:     payload.Currency,
			Amenities:    payload.Amenities,
			Images:       payload.Images,
			MinStayDays:  payload.MinStayDays,
			Deposit:      payload.Deposit,
			CheckInFrom:  payload.CheckInFrom,
			CheckOutTill: payload.CheckOutTill,
		})
		if err != nil {
			return errorOutcome(err)
		}
		return models.ReconciliationOutcome{
			Outcome:    models.OutcomeUpdated,
			UnitID:     &unit.ID,
			PropertyID: &unit.PropertyID,
		}
	}

	propertyRef := action.PropertyRef
	if propertyRef == nil {
		propertyRef = &action.ExternalRef
	}
	property, err := s.resolveProperty(ctx, propertyRef, payload.Title, payload.Location)
	if err != nil {
		return errorOutcome(err)
	}

	unit, err := s.resolver.CreateUnit(ctx, inventory.CreateUnitRequest{
		PropertyID:     property.ID,
		Title:          payload.Title,
		Price:          payload.Price,
		Currency:       payload.Currency,
		Amenities:      payload.Amenities,
		Images:         payload.Images,
		MinStayDays:    payload.MinStayDays,
		Deposit:        payload.Deposit,
		CheckInFrom:    payload.CheckInFrom,
		CheckOutTill:   payload.CheckOutTill,
		ExternalSource: action.ExternalRef.Source,
		ExternalID:     action.ExternalRef.ID,
	})
	if err != nil {
		return errorOutcome(err)
	}

	return models.ReconciliationOutcome{
		Outcome:    models.OutcomeCreated,
		UnitID:     &unit.ID,
		PropertyID: &unit.PropertyID,
	}
}

func conflictOutcome(err *models.UnavailableRangeError) models.ReconciliationOutcome {
	reason := err.Error()
	return models.ReconciliationOutcome{
		Outcome:   models.OutcomeConflict,
		Reason:    &reason,
		Conflicts: err.Conflicts,
	}
}

func errorOutcome(err error) models.ReconciliationOutcome {
	reason := err.Error()
	return models.ReconciliationOutcome{
		Outcome: models.OutcomeError,
		Reason:  &reason,
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
