package model

import "time"

// Request moderation states for an appointment. Attendance tracking reuses
// Waiting as its initial value but advances independently.
const (
	StatusWaiting  = "waiting"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Photo request states.
const (
	PhotoRequested = "requested"
	PhotoDelivered = "delivered"
)

type Appointment struct {
	ID               string
	ClientID         string
	ScenarioID       string
	ScenarioName     string
	ScenarioImage    string
	StartsAt         time.Time
	RequestStatus    string
	AttendanceStatus string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Scenario struct {
	ID             string
	Name           string
	Category       string
	Description    string
	Images         []string
	SessionMinutes int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Client struct {
	ID        string // identity provider uid
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Device binds a push token to a client-supplied device id. UserID is empty
// for anonymous registrations.
type Device struct {
	ID        string
	UserID    string
	Token     string
	Platform  string
	Active    bool
	UpdatedAt time.Time
}

// Notification is an append-only record of a dispatched notification,
// written independently of push delivery outcome.
type Notification struct {
	ID        string
	Recipient string
	Title     string
	Category  string
	Body      string
	Image     string
	CreatedAt time.Time
}

type PhotoRequest struct {
	ID            string
	ClientID      string
	AppointmentID string
	Status        string
	DownloadURL   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentFilter narrows appointment listings. Zero values mean "no
// constraint"; ClientID is forced to the caller for non-admins.
type AppointmentFilter struct {
	ClientID      string
	RequestStatus string
	From          time.Time
	To            time.Time
	Limit         int
	AfterID       string
}
