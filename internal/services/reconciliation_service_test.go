package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/booking-backend/internal/database"
	"github.com/staysync/booking-backend/internal/models"
	"github.com/staysync/booking-backend/pkg/inventory"
)

// fakeResolver is an in-memory InventoryResolver keyed by "source:id"
type fakeResolver struct {
	units      map[string]*inventory.Unit
	properties map[string]*inventory.Property
	err        error

	createdUnits      []inventory.CreateUnitRequest
	createdProperties []inventory.CreatePropertyRequest
	updatedUnits      map[string]inventory.UpdateUnitRequest
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		units:        make(map[string]*inventory.Unit),
		properties:   make(map[string]*inventory.Property),
		updatedUnits: make(map[string]inventory.UpdateUnitRequest),
	}
}

func refKey(source, id string) string { return source + ":" + id }

func (f *fakeResolver) GetPropertyByExternalRef(_ context.Context, source, externalID string) (*inventory.Property, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.properties[refKey(source, externalID)], nil
}

func (f *fakeResolver) GetUnitByExternalRef(_ context.Context, source, externalID string) (*inventory.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.units[refKey(source, externalID)], nil
}

func (f *fakeResolver) CreateProperty(_ context.Context, req inventory.CreatePropertyRequest) (*inventory.Property, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdProperties = append(f.createdProperties, req)
	property := &inventory.Property{ID: "prop-new", Title: req.Title}
	f.properties[refKey(req.ExternalSource, req.ExternalID)] = property
	return property, nil
}

func (f *fakeResolver) CreateUnit(_ context.Context, req inventory.CreateUnitRequest) (*inventory.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdUnits = append(f.createdUnits, req)
	unit := &inventory.Unit{ID: "unit-new", PropertyID: req.PropertyID, Title: req.Title}
	f.units[refKey(req.ExternalSource, req.ExternalID)] = unit
	return unit, nil
}

func (f *fakeResolver) UpdateUnit(_ context.Context, unitID string, req inventory.UpdateUnitRequest) (*inventory.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updatedUnits[unitID] = req
	for _, unit := range f.units {
		if unit.ID == unitID {
			return unit, nil
		}
	}
	return &inventory.Unit{ID: unitID, Title: req.Title}, nil
}

func setupReconciliationTest(t *testing.T) (*ReconciliationService, sqlmock.Sqlmock, *fakeResolver, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mockDB := &mockDatabase{db: db}
	bookingRepo := database.NewBookingRepository(mockDB)
	guestRepo := database.NewGuestRepository(mockDB)
	bookingService := NewBookingService(bookingRepo, guestRepo, testLogger())
	resolver := newFakeResolver()
	service := NewReconciliationService(bookingService, guestRepo, resolver, testLogger())

	return service, mock, resolver, func() { db.Close() }
}

func createAction(extID string) *models.InboundAction {
	checkIn := time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)
	return &models.InboundAction{
		Kind:        models.KindBooking,
		Action:      models.ActionCreate,
		ExternalRef: models.ExternalRef{Source: "stayport", ID: extID},
		GuestName:   "Anna Kern",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 4),
		UnitRef:     &models.ExternalRef{Source: "stayport", ID: "room-1"},
	}
}

func expectExternalRefLookupMiss(mock sqlmock.Sqlmock, extID string) {
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("stayport", extID).
		WillReturnError(sql.ErrNoRows)
}

func TestApply_CreateBooking(t *testing.T) {
	service, mock, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	resolver.units[refKey("stayport", "room-1")] = &inventory.Unit{ID: "unit-1", PropertyID: "prop-1"}

	action := createAction("ext-1")
	now := time.Now()

	expectExternalRefLookupMiss(mock, "ext-1")
	expectGuestCreate(mock, "Anna Kern")
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("unit-1", action.CheckIn, action.CheckOut, "").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeCreated, outcome.Outcome)
	require.NotNil(t, outcome.BookingID)
	require.NotNil(t, outcome.UnitID)
	assert.Equal(t, "unit-1", *outcome.UnitID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Redelivering a create we already applied must not create a second booking.
func TestApply_CreateReplayIgnored(t *testing.T) {
	service, mock, _, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := createAction("ext-1")

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("stayport", "ext-1").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, action.CheckIn, action.CheckOut))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeIgnored, outcome.Outcome)
	require.NotNil(t, outcome.BookingID)
	assert.Equal(t, "booking-1", *outcome.BookingID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_CreateConflict(t *testing.T) {
	service, mock, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	resolver.units[refKey("stayport", "room-1")] = &inventory.Unit{ID: "unit-1", PropertyID: "prop-1"}

	action := createAction("ext-2")

	expectExternalRefLookupMiss(mock, "ext-2")
	expectGuestCreate(mock, "Anna Kern")
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(bookingRow("booking-blocker", "unit-1", models.BookingStatusConfirmed,
			action.CheckIn.AddDate(0, 0, 1), action.CheckOut.AddDate(0, 0, 1)))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeConflict, outcome.Outcome)
	assert.Nil(t, outcome.BookingID)
	require.Len(t, outcome.Conflicts, 1)
	assert.Equal(t, "booking-blocker", outcome.Conflicts[0].BookingID)
}

// An unknown listing is created just in time: property first, then unit.
func TestApply_CreateResolvesUnknownUnit(t *testing.T) {
	service, mock, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := createAction("ext-3")
	action.PropertyRef = &models.ExternalRef{Source: "stayport", ID: "realty-9"}
	now := time.Now()

	expectExternalRefLookupMiss(mock, "ext-3")
	expectGuestCreate(mock, "Anna Kern")
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeCreated, outcome.Outcome)
	require.Len(t, resolver.createdProperties, 1)
	assert.Equal(t, "realty-9", resolver.createdProperties[0].ExternalID)
	require.Len(t, resolver.createdUnits, 1)
	assert.Equal(t, "room-1", resolver.createdUnits[0].ExternalID)
	assert.Equal(t, "prop-new", resolver.createdUnits[0].PropertyID)
}

func TestApply_ResolutionFailure(t *testing.T) {
	service, mock, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	resolver.err = &inventory.ResolutionFailedError{Op: "get unit stayport:room-1"}

	action := createAction("ext-4")
	expectExternalRefLookupMiss(mock, "ext-4")

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeError, outcome.Outcome)
	require.NotNil(t, outcome.Reason)
	assert.Contains(t, *outcome.Reason, "inventory resolution failed")
}

// An update for an unseen external id means the create event was missed;
// it is applied as a create.
func TestApply_UpdateUnseenBecomesCreate(t *testing.T) {
	service, mock, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	resolver.units[refKey("stayport", "room-1")] = &inventory.Unit{ID: "unit-1", PropertyID: "prop-1"}

	action := createAction("ext-5")
	action.Action = models.ActionUpdate
	now := time.Now()

	expectExternalRefLookupMiss(mock, "ext-5")
	expectGuestCreate(mock, "Anna Kern")
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeCreated, outcome.Outcome)
}

func TestApply_UpdateReschedules(t *testing.T) {
	service, mock, _, cleanup := setupReconciliationTest(t)
	defer cleanup()

	oldIn := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	oldOut := oldIn.AddDate(0, 0, 4)

	action := createAction("ext-6")
	action.Action = models.ActionUpdate

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("stayport", "ext-6").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, oldIn, oldOut))

	// ChangeBookingDates loads the booking again, re-checks, then writes
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, oldIn, oldOut))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("unit-1", action.CheckIn, action.CheckOut, "booking-1").
		WillReturnRows(sqlmock.NewRows(bookingTestColumns))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", action.CheckIn, action.CheckOut).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeUpdated, outcome.Outcome)
	require.NotNil(t, outcome.BookingID)
	assert.Equal(t, "booking-1", *outcome.BookingID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_CancelUnknownIgnored(t *testing.T) {
	service, mock, _, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := createAction("ext-7")
	action.Action = models.ActionCancel

	expectExternalRefLookupMiss(mock, "ext-7")

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeIgnored, outcome.Outcome)
	require.NotNil(t, outcome.Reason)
	assert.Contains(t, *outcome.Reason, "stayport:ext-7")
}

func TestApply_CancelKeepsExternalRef(t *testing.T) {
	service, mock, _, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := createAction("ext-8")
	action.Action = models.ActionCancel
	reason := "canceled 2026-09-20"
	action.CancellationReason = &reason

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("stayport", "ext-8").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, action.CheckIn, action.CheckOut))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, action.CheckIn, action.CheckOut))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", reason).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeCanceled, outcome.Outcome)

	// Only the cancel write: the external-ref mapping stays in place
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_DeletePurgesExternalRef(t *testing.T) {
	service, mock, _, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := createAction("ext-9")
	action.Action = models.ActionDelete

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("stayport", "ext-9").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, action.CheckIn, action.CheckOut))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "unit-1", models.BookingStatusConfirmed, action.CheckIn, action.CheckOut))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeDeleted, outcome.Outcome)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_UnitOfferCreates(t *testing.T) {
	service, _, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	action := &models.InboundAction{
		Kind:        models.KindUnit,
		Action:      models.ActionCreate,
		ExternalRef: models.ExternalRef{Source: "feed:org-1", ID: "offer-1"},
		Unit:        &models.UnitPayload{Title: "Seaside studio"},
	}

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeCreated, outcome.Outcome)
	require.Len(t, resolver.createdUnits, 1)
	assert.Equal(t, "Seaside studio", resolver.createdUnits[0].Title)
	// No property ref on the offer: the property is keyed by the offer itself
	require.Len(t, resolver.createdProperties, 1)
	assert.Equal(t, "offer-1", resolver.createdProperties[0].ExternalID)
}

func TestApply_UnitOfferRefreshesExisting(t *testing.T) {
	service, _, resolver, cleanup := setupReconciliationTest(t)
	defer cleanup()

	resolver.units[refKey("feed:org-1", "offer-1")] = &inventory.Unit{ID: "unit-1", PropertyID: "prop-1"}

	price := 120.0
	action := &models.InboundAction{
		Kind:        models.KindUnit,
		Action:      models.ActionCreate,
		ExternalRef: models.ExternalRef{Source: "feed:org-1", ID: "offer-1"},
		Unit:        &models.UnitPayload{Title: "Seaside studio", Price: &price},
	}

	outcome := service.Apply(context.Background(), action)

	assert.Equal(t, models.OutcomeUpdated, outcome.Outcome)
	assert.Empty(t, resolver.createdUnits)
	require.Contains(t, resolver.updatedUnits, "unit-1")
	require.NotNil(t, resolver.updatedUnits["unit-1"].Price)
	assert.Equal(t, price, *resolver.updatedUnits["unit-1"].Price)
}
