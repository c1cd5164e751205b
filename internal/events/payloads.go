package events

import "time"

// AppointmentUpdated is emitted when an appointment's request status
// changes.
type AppointmentUpdated struct {
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	ScenarioName  string    `json:"scenario_name"`
	ScenarioImage string    `json:"scenario_image"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	StartsAt      time.Time `json:"starts_at"`
}

// ScenarioCreated is emitted when an administrator publishes a new
// scenario.
type ScenarioCreated struct {
	ScenarioID string `json:"scenario_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Image      string `json:"image"`
}

// PhotoRequestDelivered is emitted when a photo request transitions to
// delivered.
type PhotoRequestDelivered struct {
	RequestID   string `json:"request_id"`
	ClientID    string `json:"client_id"`
	DownloadURL string `json:"download_url"`
}
