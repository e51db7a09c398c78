// Package device implements the three device endpoint variants from spec
// §4.2: a non-blocking TCP-client device, a serial device with quarantine,
// and an in-process echo device. All three implement
// [github.com/ardnew/termbridge/internal/ioendpoint.Endpoint].
package device
