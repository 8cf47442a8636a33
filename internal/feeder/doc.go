// Package feeder sequences the servo motion that dispenses food.
//
// One feed cycle sweeps the horn from the closed angle to the open angle
// in single-degree steps, holds at the open position for the configured
// delay, then sweeps back. The per-degree dwell is scaled by the speed
// percentage (100% = fastest). A cycle in progress cannot be cancelled,
// and a second request while one is active is rejected with ErrBusy rather
// than queued.
package feeder
