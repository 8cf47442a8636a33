// Package device hosts the controller, the single cooperative loop that
// runs the appliance.
//
// Every input source is reduced to an intent: the physical button, the
// HTTP handlers and the broker command topic all feed the same queue, and
// the loop is the only place intents take effect. That makes the
// controller the sole writer of the config store, the only caller of the
// feed actuator and the only driver of the connectivity override, so no
// other component needs locking around those operations.
//
// Each tick polls the button, drains queued intents, advances the WiFi
// and MQTT state machines and publishes a status document when the
// composite state changed or the heartbeat is due. Synchronous callers
// (the HTTP handlers) block on a reply channel with a bounded wait;
// fire-and-forget sources get no reply. A restart intent is deferred
// until the current feed cycle, if any, has finished.
package device
