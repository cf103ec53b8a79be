package model

import "time"

// Approval is the onboarding state of a partner.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// Partner is a field technician who picks up bookings.
//
// Fields:
//
//	Code      – tdpartner-NNN, assigned on approval.
//	OnDuty    – toggled by the partner; only on-duty partners receive fan-out.
//	PushToken – device address for push delivery, may be absent.
type Partner struct {
	ID        string    `json:"id"`
	Code      *string   `json:"partner_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Approval  Approval  `json:"status"`
	OnDuty    bool      `json:"duty_status"`
	PushToken *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is the durable record of one message to one partner about
// one booking. Only Read changes after insert.
type Notification struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partner_id"`
	BookingID string    `json:"booking_id"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
