// Package registry implements the in-memory device and profile store (C2):
// concurrent-safe maps of devices and profiles with name<->id lookup.
package registry

import (
	"sync"

	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/model"
)

// Registry is the thread-safe store of devices and profiles.
//
// The device/name maps are guarded by a single sync.RWMutex; Go's RWMutex
// blocks new RLock callers once a Lock is waiting, which satisfies the
// "readers must not starve writers" requirement without a custom fair lock
// (see DESIGN.md for the Open Question this resolves). The profile map uses
// its own independent mutex, since profile access is a separate hot path
// from per-request device lookups.
type Registry struct {
	devMu      sync.RWMutex
	devicesByID map[string]*model.Device
	nameToID    map[string]string

	profMu   sync.RWMutex
	profiles map[string]*model.DeviceProfile
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		devicesByID: make(map[string]*model.Device),
		nameToID:    make(map[string]string),
		profiles:    make(map[string]*model.DeviceProfile),
	}
}

// GetByID returns the device with the given id, or nil if none exists.
func (r *Registry) GetByID(id string) *model.Device {
	r.devMu.RLock()
	defer r.devMu.RUnlock()
	return r.devicesByID[id]
}

// GetByName returns the device with the given name, or nil if none exists.
func (r *Registry) GetByName(name string) *model.Device {
	r.devMu.RLock()
	defer r.devMu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil
	}
	return r.devicesByID[id]
}

// All returns every device currently registered.
func (r *Registry) All() []*model.Device {
	r.devMu.RLock()
	defer r.devMu.RUnlock()

	out := make([]*model.Device, 0, len(r.devicesByID))
	for _, d := range r.devicesByID {
		out = append(out, d)
	}
	return out
}

// Add inserts a new device. It rejects a duplicate id or name, and requires
// that the device's referenced profile already be present in the registry.
func (r *Registry) Add(d *model.Device) error {
	if d == nil {
		return errors.New(errors.KindInvalidArg, "cannot add nil device")
	}

	r.profMu.RLock()
	profile, ok := r.profiles[d.ProfileName]
	r.profMu.RUnlock()
	if !ok {
		return errors.New(errors.KindProfileNotFound, "profile %q not found for device %q", d.ProfileName, d.Name)
	}

	r.devMu.Lock()
	defer r.devMu.Unlock()

	if _, exists := r.devicesByID[d.ID]; exists {
		return errors.New(errors.KindDuplicateDevice, "device id %q already exists", d.ID)
	}
	if _, exists := r.nameToID[d.Name]; exists {
		return errors.New(errors.KindDuplicateDevice, "device name %q already exists", d.Name)
	}

	d.Profile = profile
	r.devicesByID[d.ID] = d
	r.nameToID[d.Name] = d.ID
	return nil
}

// Update atomically replaces an existing device's fields via the supplied
// mutator. If the mutator changes the device's Name, both maps are updated
// within the same critical section.
func (r *Registry) Update(idOrName string, mutate func(d *model.Device)) error {
	r.devMu.Lock()
	defer r.devMu.Unlock()

	d := r.devicesByID[idOrName]
	if d == nil {
		if id, ok := r.nameToID[idOrName]; ok {
			d = r.devicesByID[id]
		}
	}
	if d == nil {
		return errors.New(errors.KindHTTPNotFound, "device %q not found", idOrName)
	}

	oldName := d.Name
	mutate(d)

	if d.Name != oldName {
		delete(r.nameToID, oldName)
		r.nameToID[d.Name] = d.ID
	}
	return nil
}

// Remove deletes a device by id or name.
func (r *Registry) Remove(idOrName string) error {
	r.devMu.Lock()
	defer r.devMu.Unlock()

	id := idOrName
	if _, ok := r.devicesByID[id]; !ok {
		resolved, ok := r.nameToID[idOrName]
		if !ok {
			return errors.New(errors.KindHTTPNotFound, "device %q not found", idOrName)
		}
		id = resolved
	}

	d := r.devicesByID[id]
	delete(r.devicesByID, id)
	delete(r.nameToID, d.Name)
	return nil
}

// AddProfile inserts a new profile, or overwrites an existing one with the
// same name (used when the orchestrator loads local profiles at startup).
func (r *Registry) AddProfile(p *model.DeviceProfile) {
	r.profMu.Lock()
	defer r.profMu.Unlock()
	r.profiles[p.Name] = p
}

// GetProfile returns the named profile, or nil if none exists.
func (r *Registry) GetProfile(name string) *model.DeviceProfile {
	r.profMu.RLock()
	defer r.profMu.RUnlock()
	return r.profiles[name]
}

// RemoveProfile deletes the named profile. It is forbidden while any device
// still references the profile.
func (r *Registry) RemoveProfile(name string) error {
	r.devMu.RLock()
	for _, d := range r.devicesByID {
		if d.ProfileName == name {
			r.devMu.RUnlock()
			return errors.New(errors.KindHTTPConflict, "profile %q is still referenced by device %q", name, d.Name)
		}
	}
	r.devMu.RUnlock()

	r.profMu.Lock()
	defer r.profMu.Unlock()
	if _, ok := r.profiles[name]; !ok {
		return errors.New(errors.KindHTTPNotFound, "profile %q not found", name)
	}
	delete(r.profiles, name)
	return nil
}

// SnapshotProfiles returns deep copies of every registered profile, safe for
// the caller to read or mutate without affecting the registry's state.
func (r *Registry) SnapshotProfiles() []*model.DeviceProfile {
	r.profMu.RLock()
	defer r.profMu.RUnlock()

	out := make([]*model.DeviceProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.Clone())
	}
	return out
}
