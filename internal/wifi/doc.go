// Package wifi manages the device's network association lifecycle.
//
// The Manager is a four-state machine (disconnected, connecting, connected,
// access point) advanced one transition per poll tick. A configured network
// is joined with a bounded timeout; on failure the device falls back to a
// self-hosted access point named with the FishFeeder- prefix so the
// configuration page stays reachable. While in access point mode, station
// retries run in the background and the access point is only torn down once
// a replacement link is confirmed up.
//
// The platform's WiFi control plane sits behind the Backend interface.
// NmcliBackend shells out to NetworkManager's nmcli, which is how a Linux
// appliance actually provisions WiFi; tests script a fake backend instead.
//
// A long press on the physical button forces access point mode from any
// state and suspends automatic retries until new credentials are saved,
// so a device with stale credentials stays provisionable.
package wifi
