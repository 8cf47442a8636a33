// Package mqtt maintains the device's broker session.
//
// The Session is a four-state machine (idle, connecting, connected,
// retrying) advanced one step per poll tick. Connect attempts are started
// asynchronously and their tokens polled on later ticks, so the control
// loop never blocks on the network. Failures wait out a fixed retry
// interval; while the device is not in station mode the session is forced
// idle and makes no attempts at all.
//
// While connected the session publishes retained status documents to
// {base}/status and subscribes {base}/cmd, translating recognized payloads
// (feed, restart) into the same intents the button and HTTP interface
// produce. paho's own auto-reconnect is deliberately disabled; retry
// policy lives here where it is observable and testable.
package mqtt
