// Package driver defines the southbound contract a protocol adapter
// implements: initialize, read, write, discover, and stop. This is the
// capability interface called out in the runtime's design notes — it
// replaces a function-pointer/context-pointer callback style with a single
// value the driver owns, which the runtime only ever forwards requests to.
package driver

import "github.com/fieldlink/adapter-sdk/model"

// Request identifies one resource operation to perform against a device, as
// resolved by the dispatcher from a profile resource's get/set operations.
type Request struct {
	Device   *model.Device
	Resource model.DeviceResource
	Op       model.ResourceOperation
}

// Result is the outcome of a single Request within a Get call.
type Result struct {
	Resource string
	Value    model.Value
	Origin   int64 // unix millis; 0 means "use now()"
}

// WriteValue pairs a Request with the value to write for it.
type WriteValue struct {
	Request Request
	Value   model.Value
}

// Driver is the capability interface a protocol adapter implements and
// supplies to the runtime at construction. The runtime never manages any
// state on the driver's behalf beyond forwarding calls: there is no context
// pointer threaded through every call, as the driver is expected to capture
// whatever state it needs in its own implementation.
type Driver interface {
	// Name identifies the driver, used only for logging.
	Name() string

	// Initialize prepares the driver to serve requests, using the raw
	// key/value configuration under the "Driver.*" configuration namespace.
	Initialize(config map[string]string) error

	// Get performs a batch read. It is called once per command invocation
	// with the full set of resolved requests so the driver can optimize
	// multi-register reads if it wants to.
	Get(requests []Request) ([]Result, error)

	// Set performs a batch write.
	Set(values []WriteValue) error

	// Discover asynchronously probes for devices. Newly found devices are
	// registered with the runtime via the AddDevice callback passed to
	// Discover; Discover itself returns once the probe is launched, not
	// once it completes.
	Discover(addDevice func(*model.Device) error)

	// Stop releases any driver-held resources. If force is true, the driver
	// should not block waiting for in-flight operations to finish.
	Stop(force bool)
}
