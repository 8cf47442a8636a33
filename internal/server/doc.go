// Package server exposes the feeder's HTTP configuration interface.
//
// It serves the embedded single-page UI at /, a JSON status document at
// /status, two action endpoints (/feed, /restart) and three save
// endpoints (/saveWifi, /saveMqtt, /saveServo) that accept form posts
// from the page. Validation failures come back as 400 with the failing
// field named; a feed request while a cycle is running is a 409.
//
// All mutating endpoints funnel into the device controller, which is the
// only writer of configuration and actuator state. The server itself
// holds no device state, so handlers are safe to exercise concurrently.
//
// /events upgrades to a websocket and streams status snapshots once a
// second, which is how the page keeps its connectivity banner live
// without polling. The listener is also announced over mDNS so the
// appliance can be found by name when it joins a new network.
package server
