// Package config owns the persisted device configuration.
//
// A single DeviceConfig record holds every tunable: WiFi credentials,
// broker settings, and the servo motion parameters. The record is loaded
// once at boot (falling back to compiled-in defaults if the file is missing
// or corrupt), mutated only through validated partial updates, and written
// back atomically on every accepted change.
//
// # Update semantics
//
// Apply takes an Update whose nil fields are untouched. Only touched fields
// are validated; if any touched field is out of range the whole update is
// rejected with a *ValidationError naming the field, and the stored record
// is left unchanged. A storage write failure does not reject the update:
// the in-memory record still advances and the failure is logged, so a
// broken flash chip degrades persistence rather than operation.
//
// # Ownership
//
// The Store is the only holder of the mutable record. Other components get
// value copies from Snapshot or from Apply's return; nothing keeps a live
// reference across a yield point.
package config
