// Package event implements the event publisher (C5): it builds event
// payloads from a device's readings and hands off an asynchronous post to
// the worker pool. Delivery is at-most-once; there is no local spooling.
package event

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fieldlink/adapter-sdk/client"
	"github.com/fieldlink/adapter-sdk/model"
	"github.com/fieldlink/adapter-sdk/workerpool"
)

// Publisher builds events from readings and asynchronously posts them to
// the platform data service via the worker pool.
type Publisher struct {
	data client.DataClient
	pool *workerpool.Pool
}

// New creates a Publisher that posts through dataClient, submitting the
// post as a task on pool so it never blocks the originating HTTP response.
func New(dataClient client.DataClient, pool *workerpool.Pool) *Publisher {
	return &Publisher{data: dataClient, pool: pool}
}

// Publish builds an Event for device from readings and enqueues the post.
// The originating HTTP response does not wait on this; failures are logged
// only, per the runtime's at-most-once delivery contract.
func (p *Publisher) Publish(deviceID string, readings []model.Reading) {
	if len(readings) == 0 {
		return
	}

	evt := model.Event{
		Device:   deviceID,
		Origin:   time.Now().UnixMilli(),
		Readings: readings,
	}

	p.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.data.AddEvent(ctx, evt); err != nil {
			log.WithFields(log.Fields{
				"device": deviceID,
				"error":  err,
			}).Error("[event] failed to post event to data service")
		}
	})
}
