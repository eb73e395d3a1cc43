// Package events publishes provisioning lifecycle events (started, completed,
// failed) to in-process subscribers. The pipeline publishes to a Broker when
// one is configured; the burrow command subscribes to log them.
package events
