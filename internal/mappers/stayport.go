package mappers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/staysync/booking-backend/internal/models"
)

// StayportProvider is the channel-manager source name for Stayport webhooks.
const StayportProvider = "stayport"

// stayportActions is the provider action-code table. Unknown codes are not
// defaulted: an unmapped code must surface as an error, otherwise a new
// upstream action could silently create duplicate bookings.
var stayportActions = map[string]models.InboundActionType{
	"create_booking": models.ActionCreate,
	"update_booking": models.ActionUpdate,
	"cancel_booking": models.ActionCancel,
	"delete_booking": models.ActionDelete,
}

// stayportPayload is the wire shape of a Stayport webhook body
type stayportPayload struct {
	Action  string `json:"action"`
	Booking struct {
		ID            string   `json:"id"`
		BeginDate     string   `json:"begin_date"`
		EndDate       string   `json:"end_date"`
		ArrivalTime   string   `json:"arrival_time"`
		DepartureTime string   `json:"departure_time"`
		Amount        *float64 `json:"amount"`
		Currency      string   `json:"currency"`
		RealtyID      string   `json:"realty_id"`
		RealtyRoomID  string   `json:"realty_room_id"`
		CanceledDate  string   `json:"canceled_date"`
		Notes         string   `json:"notes"`
		Status        string   `json:"status"`
	} `json:"booking"`
	Client struct {
		FIO   string `json:"fio"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"client"`
}

// StayportMapper maps Stayport webhook bodies to InboundActions
type StayportMapper struct{}

// NewStayportMapper creates a new StayportMapper
func NewStayportMapper() *StayportMapper {
	return &StayportMapper{}
}

// Provider returns the Stayport source name
func (m *StayportMapper) Provider() string {
	return StayportProvider
}

// MapWebhook normalizes one Stayport webhook body
func (m *StayportMapper) MapWebhook(payload []byte) (*models.InboundAction, error) {
	var p stayportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &models.MappingError{Provider: StayportProvider, Message: "malformed JSON body: " + err.Error()}
	}

	action, ok := stayportActions[p.Action]
	if !ok {
		return nil, &models.MappingError{Provider: StayportProvider, Message: "unknown action code " + strconv.Quote(p.Action)}
	}

	if p.Booking.ID == "" {
		return nil, &models.MappingError{Provider: StayportProvider, Message: "booking id is missing"}
	}

	out := &models.InboundAction{
		Kind:   models.KindBooking,
		Action: action,
		ExternalRef: models.ExternalRef{
			Source: StayportProvider,
			ID:     p.Booking.ID,
		},
		GuestName:  guestName(p.Client.FIO, p.Client.Name),
		GuestPhone: optional(p.Client.Phone),
		GuestEmail: optional(p.Client.Email),
		Notes:      optional(p.Booking.Notes),
		Amount:     p.Booking.Amount,
		Currency:   optional(p.Booking.Currency),
	}

	// Stay dates are mandatory for create/update; cancel/delete payloads
	// may omit them.
	if action == models.ActionCreate || action == models.ActionUpdate {
		checkIn, err := composeTimestamp(p.Booking.BeginDate, p.Booking.ArrivalTime)
		if err != nil {
			return nil, &models.MappingError{Provider: StayportProvider, Message: "malformed begin_date: " + p.Booking.BeginDate}
		}
		checkOut, err := composeTimestamp(p.Booking.EndDate, p.Booking.DepartureTime)
		if err != nil {
			return nil, &models.MappingError{Provider: StayportProvider, Message: "malformed end_date: " + p.Booking.EndDate}
		}
		out.CheckIn = checkIn
		out.CheckOut = checkOut
	}

	if p.Booking.RealtyID != "" {
		out.PropertyRef = &models.ExternalRef{Source: StayportProvider, ID: p.Booking.RealtyID}
	}
	if p.Booking.RealtyRoomID != "" {
		out.UnitRef = &models.ExternalRef{Source: StayportProvider, ID: p.Booking.RealtyRoomID}
	}

	if action == models.ActionCancel || action == models.ActionDelete {
		if reason := cancellationReason(p.Booking.CanceledDate, p.Booking.Notes, p.Booking.Status); reason != "" {
			out.CancellationReason = &reason
		}
	}

	return out, nil
}

// composeTimestamp combines a date-only field with an optional HH:mm
// time-of-day field. A missing or malformed time defaults to midnight.
func composeTimestamp(date, timeOfDay string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	if timeOfDay != "" {
		if clock, err := time.Parse("15:04", timeOfDay); err == nil {
			return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
		}
	}
	return day, nil
}

// guestName picks the first non-empty name, falling back to a placeholder so
// the guest name is never empty.
func guestName(fio, name string) string {
	if s := strings.TrimSpace(fio); s != "" {
		return s
	}
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	return "Guest"
}

// cancellationReason joins the available cancellation fragments into one
// human-readable string: cancellation date, free-text note, upstream status.
func cancellationReason(canceledDate, notes, status string) string {
	parts := make([]string, 0, 3)
	if canceledDate != "" {
		parts = append(parts, "canceled "+canceledDate)
	}
	if notes != "" {
		parts = append(parts, notes)
	}
	if status != "" {
		parts = append(parts, "status "+status)
	}
	return strings.Join(parts, "; ")
}

// optional null-coalesces an empty string to absent
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
