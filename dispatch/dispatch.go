// Package dispatch implements the command dispatcher (C4) and the
// platform-initiated callback handler (C9): it parses inbound HTTP requests,
// resolves devices and resources through the registry, drives the transform
// engine and driver, and hands results to the event publisher.
package dispatch

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fieldlink/adapter-sdk/driver"
	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/event"
	"github.com/fieldlink/adapter-sdk/model"
	"github.com/fieldlink/adapter-sdk/registry"
	"github.com/fieldlink/adapter-sdk/transform"
	"github.com/fieldlink/adapter-sdk/workerpool"
)

// Dispatcher resolves and executes device commands.
type Dispatcher struct {
	Registry  *registry.Registry
	Driver    driver.Driver
	Publisher *event.Publisher
	Pool      *workerpool.Pool

	// DataTransform mirrors the orchestrator's dataTransform configuration
	// flag; when false the transform engine is bypassed entirely.
	DataTransform bool

	// Limiter caps the rate of driver-bound commands when non-nil. A
	// command that would exceed the rate is rejected immediately rather
	// than queued, so a slow driver can't build up unbounded backlog.
	Limiter *rate.Limiter
}

func (d *Dispatcher) checkRateLimit() error {
	if d.Limiter == nil {
		return nil
	}
	if !d.Limiter.Allow() {
		return errors.New(errors.KindRateLimited, "command rate limit exceeded")
	}
	return nil
}

// op pairs a resolved ResourceOperation with its target DeviceResource,
// preserving the operation's declared index for emission ordering.
type op struct {
	ResourceOp model.ResourceOperation
	Resource   model.DeviceResource
}

// resolveOps builds the ordered (operation, resource) pairs for a command's
// get or set section, matching ResourceOperation.Object names against the
// profile's device resources.
func resolveOps(profile *model.DeviceProfile, ops []model.ResourceOperation) ([]op, error) {
	out := make([]op, 0, len(ops))
	for _, o := range ops {
		res, found := profile.DeviceResourceByName(o.Object)
		if !found {
			return nil, errors.New(errors.KindHTTPNotFound, "resource %q not found in profile %q", o.Object, profile.Name)
		}
		out = append(out, op{ResourceOp: o, Resource: *res})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ResourceOp.Index < out[j].ResourceOp.Index
	})
	return out, nil
}

// Get executes the "get" half of a command against a single device: building
// driver requests, invoking the driver once, applying outgoing transforms
// (unless globally disabled), and returning readings in resource-operation
// index order. It also publishes the resulting event.
func (d *Dispatcher) Get(dev *model.Device, command string) (readings []model.Reading, err error) {
	start := time.Now()
	defer func() { observeCommand(command, "get", start, err) }()

	if err = d.checkCommandable(dev); err != nil {
		return nil, err
	}
	if err = d.checkRateLimit(); err != nil {
		return nil, err
	}

	res, found := dev.Profile.Resource(command)
	if !found {
		return nil, errors.New(errors.KindHTTPNotFound, "command %q not found on device %q", command, dev.Name)
	}

	ops, err := resolveOps(dev.Profile, res.Get)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, errors.New(errors.KindHTTPNotFound, "command %q defines no get operations", command)
	}

	requests := make([]driver.Request, len(ops))
	for i, o := range ops {
		requests[i] = driver.Request{Device: dev, Resource: o.Resource, Op: o.ResourceOp}
	}

	results, err := d.Driver.Get(requests)
	if err != nil {
		return nil, errors.Wrap(errors.KindDriverError, err, "driver get failed for device %q", dev.Name)
	}

	resultsByResource := make(map[string]driver.Result, len(results))
	for _, r := range results {
		resultsByResource[r.Resource] = r
	}

	readings = make([]model.Reading, 0, len(ops))
	now := time.Now().UnixMilli()

	for _, o := range ops {
		result, found := resultsByResource[o.Resource.Name]
		if !found {
			return nil, errors.New(errors.KindDriverError, "driver did not return a result for resource %q", o.Resource.Name)
		}

		value := result.Value
		strVal := value.String()

		if d.DataTransform {
			transformed, mapped, err := transform.Forward(value, o.Resource.Properties.Value, o.ResourceOp.Mappings)
			if err != nil {
				if errors.Is(err, errors.KindAssertionFailed) {
					_ = d.Registry.Update(dev.ID, func(dd *model.Device) {
						dd.OpState = model.Disabled
					})
				}
				return nil, err
			}
			value = transformed
			strVal = mapped
		}

		origin := result.Origin
		if origin == 0 {
			origin = now
		}

		readings = append(readings, model.Reading{
			Name:      o.Resource.Name,
			Value:     strVal,
			Origin:    origin,
			ValueType: o.Resource.Properties.Value.Type,
			MediaType: o.Resource.Properties.Value.MediaType,
		})
	}

	d.Publisher.Publish(dev.ID, readings)
	return readings, nil
}

// Set executes the "set" half of a command against a single device: parsing
// the request body's string values, coercing and bounds-checking them
// against each target resource, applying inverse transforms, then invoking
// the driver once with the full write batch.
func (d *Dispatcher) Set(dev *model.Device, command string, body map[string]string) (err error) {
	start := time.Now()
	defer func() { observeCommand(command, "set", start, err) }()

	if err = d.checkCommandable(dev); err != nil {
		return err
	}
	if err = d.checkRateLimit(); err != nil {
		return err
	}

	res, found := dev.Profile.Resource(command)
	if !found {
		return errors.New(errors.KindHTTPNotFound, "command %q not found on device %q", command, dev.Name)
	}

	ops, err := resolveOps(dev.Profile, res.Set)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return errors.New(errors.KindHTTPNotFound, "command %q defines no set operations", command)
	}

	values := make([]driver.WriteValue, 0, len(ops))

	for _, o := range ops {
		if !o.Resource.Properties.Value.ReadWrite.CanWrite() {
			return errors.New(errors.KindMethodNotAllowed, "resource %q is read-only", o.Resource.Name)
		}

		raw, present := body[o.Resource.Name]
		if !present {
			log.WithFields(log.Fields{
				"resource": o.Resource.Name,
				"command":  command,
			}).Warn("[dispatch] put body missing value for resource, skipping")
			continue
		}

		value, err := model.ParseValue(o.Resource.Properties.Value.Type, raw)
		if err != nil {
			return errors.Wrap(errors.KindInvalidArg, err, "invalid value for resource %q", o.Resource.Name)
		}

		if err := transform.ValidateBounds(value, o.Resource.Properties.Value); err != nil {
			return err
		}

		if d.DataTransform {
			value, err = transform.Inverse(value, o.Resource.Properties.Value)
			if err != nil {
				return errors.Wrap(errors.KindInvalidArg, err, "failed to invert transform for resource %q", o.Resource.Name)
			}
		}

		values = append(values, driver.WriteValue{
			Request: driver.Request{Device: dev, Resource: o.Resource, Op: o.ResourceOp},
			Value:   value,
		})
	}

	warnUnknownKeys(body, ops)

	if err = d.Driver.Set(values); err != nil {
		return errors.Wrap(errors.KindDriverError, err, "driver set failed for device %q", dev.Name)
	}
	return nil
}

func warnUnknownKeys(body map[string]string, ops []op) {
	known := make(map[string]struct{}, len(ops))
	for _, o := range ops {
		known[o.Resource.Name] = struct{}{}
	}
	for k := range body {
		if _, ok := known[k]; !ok {
			log.WithField("resource", k).Warn("[dispatch] unknown resource in put body, ignoring")
		}
	}
}

func (d *Dispatcher) checkCommandable(dev *model.Device) error {
	if dev.AdminState == model.Locked {
		return errors.New(errors.KindDeviceLocked, "device %q is locked", dev.Name)
	}
	if dev.OpState == model.Disabled {
		return errors.New(errors.KindDeviceDisabled, "device %q is disabled", dev.Name)
	}
	return nil
}

// AllResult is one device's outcome within a selector=all fan-out.
type AllResult struct {
	Device   string
	Readings []model.Reading
	Err      error
}

// GetAll executes Get against every enabled device whose profile defines
// command, in parallel on the worker pool. Order across devices is
// unspecified, per the runtime's concurrency model.
func (d *Dispatcher) GetAll(command string) []AllResult {
	var candidates []*model.Device
	for _, dev := range d.Registry.All() {
		if dev.OpState != model.Enabled {
			continue
		}
		if dev.Profile == nil {
			continue
		}
		if _, ok := dev.Profile.Resource(command); ok {
			candidates = append(candidates, dev)
		}
	}

	results := make([]AllResult, len(candidates))
	var wg sync.WaitGroup
	for i, dev := range candidates {
		wg.Add(1)
		i, dev := i, dev
		d.Pool.Submit(func() {
			defer wg.Done()
			readings, err := d.Get(dev, command)
			results[i] = AllResult{Device: dev.Name, Readings: readings, Err: err}
		})
	}
	wg.Wait()
	return results
}

// SetAll executes Set against every enabled device whose profile defines
// command, in parallel on the worker pool.
func (d *Dispatcher) SetAll(command string, body map[string]string) []AllResult {
	var candidates []*model.Device
	for _, dev := range d.Registry.All() {
		if dev.OpState != model.Enabled {
			continue
		}
		if dev.Profile == nil {
			continue
		}
		if _, ok := dev.Profile.Resource(command); ok {
			candidates = append(candidates, dev)
		}
	}

	results := make([]AllResult, len(candidates))
	var wg sync.WaitGroup
	for i, dev := range candidates {
		wg.Add(1)
		i, dev := i, dev
		d.Pool.Submit(func() {
			defer wg.Done()
			err := d.Set(dev, command, body)
			results[i] = AllResult{Device: dev.Name, Err: err}
		})
	}
	wg.Wait()
	return results
}
