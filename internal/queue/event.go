// Package queue implements the durable event side channel for booking
// outcomes: a topic-exchange bus over RabbitMQ, the order event
// publisher with its retry policy, and the notification projector that
// consumes order events back into the database.
package queue

// Exchange is the durable topic exchange every order event flows
// through. Consumers bind wildcard patterns such as "order.#" to it.
const Exchange = "hospital.events"

// Routing keys for the order event family. The envelope's Event field
// always equals the routing key the message was published under.
const (
	OrderCreated   = "order.created"
	OrderWaiting   = "order.waiting"
	OrderPromoted  = "order.promoted"
	OrderCancelled = "order.cancelled"
)

// Envelope is the wire format of every published event:
// {"event":"order.<type>","data":...,"ts":<epoch-ms>}.
// Data carries the full order for created/waiting/promoted events and a
// {orderId, cancelledBy} pair for cancellations.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	Ts    int64  `json:"ts"`
}

// CancelledData is the payload of an order.cancelled event. It
// deliberately omits account details; consumers needing the recipient
// must look the order up themselves.
type CancelledData struct {
	OrderID     uint64 `json:"orderId"`
	CancelledBy string `json:"cancelledBy"`
}

// Meta accompanies every delivery handed to a subscriber handler.
type Meta struct {
	RoutingKey string
}

// Handler processes one delivery. Returning an error rejects the
// message without requeue; there is no dead-letter exchange, so a
// rejected message is dropped.
type Handler func(body []byte, meta Meta) error
