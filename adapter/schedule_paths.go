package adapter

import (
	"strings"

	"github.com/fieldlink/adapter-sdk/model"
)

// invokeScheduledPath executes a scheduled event's configured path directly
// against the dispatcher and driver, without looping back through the HTTP
// server. path mirrors the shape of a northbound route with the "/api/v1"
// prefix and any selector segments stripped of their leading slash, e.g.
// "discovery", "device/all/temperature", or "device/name/sensor-1/temperature".
func (o *Orchestrator) invokeScheduledPath(path string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return
	}

	switch segments[0] {
	case "discovery":
		o.Driver.Discover(func(dev *model.Device) error { return o.Registry.Add(dev) })
	case "device":
		o.invokeScheduledDevice(segments[1:])
	default:
		o.Log.WithField("path", path).Warn("[adapter] scheduled event names an unsupported path, skipping")
	}
}

func (o *Orchestrator) invokeScheduledDevice(segments []string) {
	if len(segments) < 2 {
		return
	}

	if segments[0] == "all" {
		command := segments[1]
		for _, res := range o.Dispatch.GetAll(command) {
			if res.Err != nil {
				o.Log.WithFields(map[string]interface{}{"device": res.Device, "command": command, "error": res.Err}).
					Warn("[adapter] scheduled command failed for device")
			}
		}
		return
	}

	if len(segments) < 3 {
		return
	}
	kind, selector, command := segments[0], segments[1], segments[2]

	var dev = o.resolveDevice(kind, selector)
	if dev == nil {
		o.Log.WithFields(map[string]interface{}{"selector": kind, "value": selector}).
			Warn("[adapter] scheduled event names an unknown device, skipping")
		return
	}

	if _, err := o.Dispatch.Get(dev, command); err != nil {
		o.Log.WithFields(map[string]interface{}{"device": dev.Name, "command": command, "error": err}).
			Warn("[adapter] scheduled command failed")
	}
}

func (o *Orchestrator) resolveDevice(kind, value string) *model.Device {
	switch kind {
	case "id":
		return o.Registry.GetByID(value)
	case "name":
		return o.Registry.GetByName(value)
	default:
		return nil
	}
}
