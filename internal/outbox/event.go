package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics published by this backend. Change-triggered reactions subscribe to
// these after the originating write has committed.
const (
	TopicAppointmentUpdated    = "booking.appointment.updated.v1"
	TopicScenarioCreated       = "catalog.scenario.created.v1"
	TopicPhotoRequestDelivered = "photos.request.delivered.v1"
)
