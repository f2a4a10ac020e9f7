package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fieldlink/adapter-sdk/config"
	"github.com/fieldlink/adapter-sdk/driver"
	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/health"
	"github.com/fieldlink/adapter-sdk/model"
	"github.com/fieldlink/adapter-sdk/registry"
	"github.com/fieldlink/adapter-sdk/schedule"
	"github.com/fieldlink/adapter-sdk/workerpool"
)

// scheduleEventRef is the fake metadata client's record of a fetched
// schedule event, mirroring the anonymous struct client.MetadataClient
// returns from GetScheduleEvents.
type scheduleEventRef struct{ Schedule, Path string }

// fakeMetadataClient is an in-memory client.MetadataClient used to exercise
// the orchestrator without a network dependency.
type fakeMetadataClient struct {
	schedules map[string]string
	events    map[string]scheduleEventRef

	getOrCreateScheduleErr      error
	getOrCreateScheduleEventErr error
	getScheduleEventsErr        error
	fetchedEvents               map[string]scheduleEventRef
}

func newFakeMetadataClient() *fakeMetadataClient {
	return &fakeMetadataClient{
		schedules: map[string]string{},
		events:    map[string]scheduleEventRef{},
	}
}

func (f *fakeMetadataClient) Ping(context.Context) error { return nil }

func (f *fakeMetadataClient) GetOrCreateAddressable(_ context.Context, a model.Addressable) (model.Addressable, error) {
	return a, nil
}

func (f *fakeMetadataClient) GetOrCreateDeviceService(context.Context, string, string, []string) (string, error) {
	return "service-1", nil
}

func (f *fakeMetadataClient) UploadProfile(context.Context, *model.DeviceProfile) (bool, error) {
	return false, nil
}

func (f *fakeMetadataClient) HasProfile(context.Context, string) (bool, error) { return false, nil }

func (f *fakeMetadataClient) GetDevicesForService(context.Context, string) ([]*model.Device, error) {
	return nil, nil
}

func (f *fakeMetadataClient) GetDevice(context.Context, string) (*model.Device, error) {
	return nil, nil
}

func (f *fakeMetadataClient) CreateDevice(context.Context, *model.Device) (string, error) {
	return "", nil
}

func (f *fakeMetadataClient) UpdateDevice(context.Context, *model.Device) error { return nil }
func (f *fakeMetadataClient) DeleteDevice(context.Context, string) error       { return nil }

func (f *fakeMetadataClient) GetOrCreateSchedule(_ context.Context, name, freq string) (bool, error) {
	if f.getOrCreateScheduleErr != nil {
		return false, f.getOrCreateScheduleErr
	}
	_, conflict := f.schedules[name]
	f.schedules[name] = freq
	return conflict, nil
}

func (f *fakeMetadataClient) GetOrCreateScheduleEvent(_ context.Context, name, sched, path string) (bool, error) {
	if f.getOrCreateScheduleEventErr != nil {
		return false, f.getOrCreateScheduleEventErr
	}
	_, conflict := f.events[name]
	f.events[name] = scheduleEventRef{Schedule: sched, Path: path}
	return conflict, nil
}

func (f *fakeMetadataClient) GetScheduleEvents(context.Context) (map[string]struct{ Schedule, Path string }, error) {
	if f.getScheduleEventsErr != nil {
		return nil, f.getScheduleEventsErr
	}
	source := f.fetchedEvents
	if source == nil {
		source = f.events
	}
	out := make(map[string]struct{ Schedule, Path string }, len(source))
	for k, v := range source {
		out[k] = struct{ Schedule, Path string }{Schedule: v.Schedule, Path: v.Path}
	}
	return out, nil
}

// fakeRegistryClient is an in-memory client.RegistryClient.
type fakeRegistryClient struct {
	stored             map[string][]byte
	registerServiceErr error
	registeredName      string
	registeredHealthURL string
}

func newFakeRegistryClient() *fakeRegistryClient {
	return &fakeRegistryClient{stored: map[string][]byte{}}
}

func (f *fakeRegistryClient) Ping(context.Context) error { return nil }

func (f *fakeRegistryClient) GetConfig(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := f.stored[key]
	return v, ok, nil
}

func (f *fakeRegistryClient) PutConfig(_ context.Context, key string, value []byte) error {
	f.stored[key] = value
	return nil
}

func (f *fakeRegistryClient) RegisterService(_ context.Context, name, healthCheckURL string) error {
	if f.registerServiceErr != nil {
		return f.registerServiceErr
	}
	f.registeredName = name
	f.registeredHealthURL = healthCheckURL
	return nil
}

func newTestOrchestrator(meta *fakeMetadataClient) *Orchestrator {
	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "test-adapter", Host: "127.0.0.1", Port: 48080},
	}
	pool := workerpool.New(1)
	return &Orchestrator{
		Config:    cfg,
		Metadata:  meta,
		Registry:  registry.New(),
		Pool:      pool,
		Scheduler: schedule.New(pool),
		Health:    health.NewManager(),
	}
}

func TestScheduleEventsRegistersAndBuildsFromFetched(t *testing.T) {
	meta := newFakeMetadataClient()
	o := newTestOrchestrator(meta)
	defer o.Pool.Stop(true)
	defer o.Scheduler.Stop()

	o.Config.Schedules = map[string]string{"every-minute": "PT1M"}
	o.Config.ScheduleEvents = map[string]config.ScheduleEvent{
		"poll-temp": {Schedule: "every-minute", Path: "device/all/temperature"},
	}

	err := o.scheduleEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "PT1M", meta.schedules["every-minute"])
	assert.Equal(t, "every-minute", meta.events["poll-temp"].Schedule)
}

func TestScheduleEventsRejectsUnknownScheduleReference(t *testing.T) {
	meta := newFakeMetadataClient()
	o := newTestOrchestrator(meta)
	defer o.Pool.Stop(true)
	defer o.Scheduler.Stop()

	o.Config.Schedules = map[string]string{"every-minute": "PT1M"}
	o.Config.ScheduleEvents = map[string]config.ScheduleEvent{
		"poll-temp": {Schedule: "does-not-exist", Path: "device/all/temperature"},
	}

	err := o.scheduleEvents(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindBadConfig))
}

func TestScheduleEventsRejectsUnparseableDuration(t *testing.T) {
	meta := newFakeMetadataClient()
	o := newTestOrchestrator(meta)
	defer o.Pool.Stop(true)
	defer o.Scheduler.Stop()

	o.Config.Schedules = map[string]string{"bad-freq": "not-a-duration"}

	err := o.scheduleEvents(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindBadConfig))
}

func TestScheduleEventsRejectsFetchedEventWithUnknownSchedule(t *testing.T) {
	meta := newFakeMetadataClient()
	o := newTestOrchestrator(meta)
	defer o.Pool.Stop(true)
	defer o.Scheduler.Stop()

	o.Config.Schedules = map[string]string{"every-minute": "PT1M"}
	o.Config.ScheduleEvents = map[string]config.ScheduleEvent{
		"poll-temp": {Schedule: "every-minute", Path: "device/all/temperature"},
	}
	// Simulate the platform returning an event referencing a schedule this
	// adapter's local configuration no longer has on record.
	meta.fetchedEvents = map[string]scheduleEventRef{
		"poll-temp": {Schedule: "stale-schedule", Path: "device/all/temperature"},
	}

	err := o.scheduleEvents(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindBadConfig))
}

func TestResolveRegistryConfigSeedsWhenAbsent(t *testing.T) {
	reg := newFakeRegistryClient()
	o := newTestOrchestrator(newFakeMetadataClient())
	o.Reg = reg

	err := o.resolveRegistryConfig(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reg.stored, o.registryConfigKey())
}

func TestResolveRegistryConfigMergesWhenPresent(t *testing.T) {
	reg := newFakeRegistryClient()
	o := newTestOrchestrator(newFakeMetadataClient())
	o.Reg = reg

	remote := &config.Config{Service: config.ServiceConfig{Name: "test-adapter", Port: 9999}}
	data, err := yaml.Marshal(remote)
	require.NoError(t, err)
	reg.stored[o.registryConfigKey()] = data

	require.NoError(t, o.resolveRegistryConfig(context.Background()))
	assert.Equal(t, 9999, o.Config.Service.Port)
}

func TestRegisterWithRegistryAdvertisesHealthURL(t *testing.T) {
	reg := newFakeRegistryClient()
	o := newTestOrchestrator(newFakeMetadataClient())
	o.Reg = reg

	require.NoError(t, o.registerWithRegistry(context.Background()))
	assert.Equal(t, "test-adapter", reg.registeredName)
	assert.Equal(t, "http://127.0.0.1:48080/api/v1/ping", reg.registeredHealthURL)
}

func TestServeWrapsDriverInitFailureAsDriverUnstart(t *testing.T) {
	o := newTestOrchestrator(newFakeMetadataClient())
	o.Driver = &failingInitDriver{}

	err := o.serve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindDriverUnstart))
}

// failingInitDriver is a driver.Driver whose Initialize always fails, used
// to exercise the DEVICES_LOADED -> SERVING failure path.
type failingInitDriver struct{}

func (failingInitDriver) Name() string                       { return "failing" }
func (failingInitDriver) Initialize(map[string]string) error { return assert.AnError }
func (failingInitDriver) Get(requests []driver.Request) ([]driver.Result, error) {
	return nil, nil
}
func (failingInitDriver) Set(values []driver.WriteValue) error          { return nil }
func (failingInitDriver) Discover(addDevice func(*model.Device) error) {}
func (failingInitDriver) Stop(force bool)                               {}
