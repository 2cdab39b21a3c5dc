// Package events publishes ScienceSwipe domain events to Kafka.
//
// # Event Types
//
//   - reaction.added: a user reacted to a paper
//   - reaction.removed: a user withdrew a reaction
//   - reaction.reason_updated: a user replaced the reason of a reaction
//   - paper.image_generated: an illustration was generated for a paper
//
// # Usage
//
//	pub := events.NewKafkaPublisher(events.Config{
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "events.scienceswipe",
//	}, logger, metrics)
//	defer pub.Close()
//
//	event, _ := domain.NewEvent(domain.EventTypeReactionAdded, source, paperID, payload)
//	err := pub.Publish(ctx, event)
//
// When Kafka is disabled, NopPublisher satisfies the same interface.
//
// Messages are keyed by source and paper id so that the events of one paper
// stay ordered within a partition.
package events
