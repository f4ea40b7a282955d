package outbox

// TopicAppointmentChanged carries every appointment mutation. Dashboard
// sessions subscribe to it and reload their in-memory list on each message.
const TopicAppointmentChanged = "clinic.appointment.changed.v1"

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
