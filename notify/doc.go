// Package notify persists notifications and fans them out to live subscribers.
//
// A [Service] writes through a [Store] and then publishes an [Event] keyed by
// recipient id. Publishing happens strictly after a successful write, and a
// publish failure never fails the write. Subscribers receive at-least-once
// delivery; two events for the same recipient are delivered in publish order.
//
// [Hub] is the in-process fan-out. [RedisRelay] carries events between
// processes over Redis pub/sub and feeds them into a local Hub.
package notify
