package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/fieldlink/adapter-sdk/client"
	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/model"
	"github.com/fieldlink/adapter-sdk/registry"
)

// dedupWindow is how long an (operation, type, id) callback is remembered to suppress
// reprocessing a burst of duplicate notifications for the same entity.
const dedupWindow = 5 * time.Second

// CallbackType is the kind of entity a platform callback names.
type CallbackType string

// Recognized callback types.
const (
	CallbackDevice  CallbackType = "DEVICE"
	CallbackProfile CallbackType = "PROFILE"
	CallbackService CallbackType = "SERVICE"
)

// CallbackBody is the request body the platform posts to the callback
// endpoint: an entity type and its id (or name, for profiles).
type CallbackBody struct {
	Type CallbackType `json:"type"`
	ID   string       `json:"id"`
}

// Callback implements the platform-initiated callback handler (C9): device
// add/update/delete, profile delete, and service notifications.
//
// Profiles are owned locally (loaded once from the configured profile
// directory at startup, per the runtime's PROFILES_UPLOADED stage); there is
// no platform endpoint to re-fetch an updated profile body, so a PROFILE
// upsert callback is acknowledged but not applied. SERVICE callbacks concern
// the device service record itself, which this adapter does not mirror
// locally, so they are acknowledged without further action. See DESIGN.md.
type Callback struct {
	Registry *registry.Registry
	Metadata client.MetadataClient

	dedupOnce sync.Once
	dedup     *cache.Cache
}

func (c *Callback) seen(kind string, body CallbackBody) bool {
	c.dedupOnce.Do(func() {
		c.dedup = cache.New(dedupWindow, 2*dedupWindow)
	})
	key := fmt.Sprintf("%s:%s:%s", kind, body.Type, body.ID)
	if _, found := c.dedup.Get(key); found {
		return true
	}
	c.dedup.SetDefault(key, struct{}{})
	return false
}

// DecodeCallbackBody parses a callback request body.
func DecodeCallbackBody(data []byte) (CallbackBody, error) {
	var body CallbackBody
	if err := json.Unmarshal(data, &body); err != nil {
		return CallbackBody{}, errors.Wrap(errors.KindInvalidArg, err, "invalid callback body")
	}
	if body.ID == "" {
		return CallbackBody{}, errors.New(errors.KindInvalidArg, "callback body missing id")
	}
	return body, nil
}

// Upsert handles a PUT or POST callback: a device add/update, or a profile
// change notification.
func (c *Callback) Upsert(ctx context.Context, body CallbackBody) error {
	if c.seen("upsert", body) {
		log.WithFields(log.Fields{"type": body.Type, "id": body.ID}).Debug("[callback] duplicate upsert suppressed")
		return nil
	}
	switch body.Type {
	case CallbackDevice:
		return c.upsertDevice(ctx, body.ID)
	case CallbackProfile:
		log.WithField("profile", body.ID).Info(
			"[callback] profile update notification received; local profile files remain authoritative")
		return nil
	case CallbackService:
		log.WithField("service", body.ID).Info(
			"[callback] service update notification received; acknowledged, no local state to refresh")
		return nil
	default:
		return errors.New(errors.KindInvalidArg, "unrecognized callback type %q", body.Type)
	}
}

func (c *Callback) upsertDevice(ctx context.Context, id string) error {
	dev, err := c.Metadata.GetDevice(ctx, id)
	if err != nil {
		return errors.Wrap(errors.KindMetadataClient, err, "failed to fetch device %q for callback", id)
	}

	if existing := c.Registry.GetByID(id); existing != nil {
		return c.Registry.Update(id, func(d *model.Device) {
			d.Name = dev.Name
			d.Description = dev.Description
			d.Labels = dev.Labels
			d.AdminState = dev.AdminState
			d.OpState = dev.OpState
			d.Addressable = dev.Addressable
			d.ProfileName = dev.ProfileName
			d.Service = dev.Service
		})
	}

	if err := c.Registry.Add(dev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"device": dev.Name, "id": dev.ID}).Info("[callback] device added")
	return nil
}

// Delete handles a DELETE callback: a device removal, or a profile removal
// (rejected with a conflict if any device still references it).
func (c *Callback) Delete(ctx context.Context, body CallbackBody) error {
	if c.seen("delete", body) {
		log.WithFields(log.Fields{"type": body.Type, "id": body.ID}).Debug("[callback] duplicate delete suppressed")
		return nil
	}
	switch body.Type {
	case CallbackDevice:
		if err := c.Registry.Remove(body.ID); err != nil {
			return err
		}
		log.WithField("id", body.ID).Info("[callback] device removed")
		return nil
	case CallbackProfile:
		if err := c.Registry.RemoveProfile(body.ID); err != nil {
			return err
		}
		log.WithField("profile", body.ID).Info("[callback] profile removed")
		return nil
	case CallbackService:
		log.WithField("service", body.ID).Info(
			"[callback] service removal notification received; acknowledged, no local state to remove")
		return nil
	default:
		return errors.New(errors.KindInvalidArg, "unrecognized callback type %q", body.Type)
	}
}
