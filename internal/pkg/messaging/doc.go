// Package messaging publishes events to a broker chosen at runtime.
//
// Drivers cover NATS, NSQ, Kafka and Google Pub/Sub. The "none" driver
// accepts and discards every message so event publishing can be switched off
// without changing callers.
package messaging
