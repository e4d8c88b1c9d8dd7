// Package events publishes schema change events.
//
// Three events exist: table_created when a table is frozen or adopted,
// field_added when a field is added to a frozen table, and table_dropped.
// Each is a JSON Event. KafkaPublisher writes it to one topic keyed by
// "db/table"; AMQPPublisher routes it through a durable topic exchange with
// the key <prefix><type>, for example schema.field_added.
//
// Notifier is what the client uses. It stamps events with an id and a time
// and logs publish failures instead of returning them.
package events
