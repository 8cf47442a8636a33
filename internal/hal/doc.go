// Package hal abstracts the feeder's hardware: the feed button input line
// and the servo output.
//
// Two implementations exist per device. GPIOButton and PWMServo talk to
// real hardware through the Linux GPIO character device (go-gpiocdev) and
// the sysfs PWM interface. MemoryButton and MemoryServo are in-memory
// stand-ins used by unit tests and by the daemon's --simulate mode.
//
// The interfaces are deliberately minimal: the control core only ever
// needs an instantaneous button level and a direct angle command. Debounce,
// press classification, and motion profiling live above this layer.
package hal
