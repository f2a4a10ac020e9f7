// Package adapter implements the lifecycle orchestrator (C8): it owns the
// startup sequence that brings a driver up from nothing to serving traffic,
// and the reverse sequence that tears it back down.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/imdario/mergo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/fieldlink/adapter-sdk/client"
	"github.com/fieldlink/adapter-sdk/config"
	"github.com/fieldlink/adapter-sdk/dispatch"
	"github.com/fieldlink/adapter-sdk/driver"
	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/event"
	"github.com/fieldlink/adapter-sdk/health"
	"github.com/fieldlink/adapter-sdk/model"
	"github.com/fieldlink/adapter-sdk/registry"
	"github.com/fieldlink/adapter-sdk/schedule"
	"github.com/fieldlink/adapter-sdk/workerpool"
)

// Orchestrator drives a Driver through the runtime's startup and shutdown
// sequence: config is assumed already loaded (see config.Load), and State
// begins at StateConfigLoaded.
type Orchestrator struct {
	Config *config.Config
	Driver driver.Driver
	Log    *logrus.Logger

	Registry  *registry.Registry
	Pool      *workerpool.Pool
	Scheduler *schedule.Scheduler
	Health    *health.Manager

	Data     client.DataClient
	Metadata client.MetadataClient
	Reg      client.RegistryClient // nil unless Config.Registry is set

	Publisher *event.Publisher
	Dispatch  *dispatch.Dispatcher
	Server    *dispatch.Server

	state      State
	serviceID  string
	httpServer *http.Server
}

// New wires the runtime's components from cfg and drv, without performing
// any network calls; State is StateConfigLoaded on return. Run carries the
// orchestrator through the remaining stages.
func New(cfg *config.Config, drv driver.Driver, log *logrus.Logger) *Orchestrator {
	pool := workerpool.New(0)

	o := &Orchestrator{
		Config:    cfg,
		Driver:    drv,
		Log:       log,
		Registry:  registry.New(),
		Pool:      pool,
		Scheduler: schedule.New(pool),
		Health:    health.NewManager(),
		Data:      client.NewDataClient(cfg.Clients.Data.Host, cfg.Clients.Data.Port),
		Metadata:  client.NewMetadataClient(cfg.Clients.Metadata.Host, cfg.Clients.Metadata.Port),
		state:     StateConfigLoaded,
	}
	if cfg.Registry != "" {
		o.Reg = client.NewRegistryClient(cfg.Registry)
	}
	o.Publisher = event.New(o.Data, o.Pool)
	return o
}

// State returns the orchestrator's current lifecycle stage.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) advance(s State) {
	o.Log.WithField("state", s).Info("[adapter] lifecycle stage reached")
	o.state = s
}

// Run carries the orchestrator from StateConfigLoaded through StateScheduled,
// then serves the northbound HTTP API until ctx is cancelled, at which point
// it shuts down in reverse order and returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.waitForPlatform(ctx); err != nil {
		return err
	}
	o.advance(StatePlatformReady)

	if err := o.register(ctx); err != nil {
		return err
	}
	o.advance(StateRegistered)

	if err := o.uploadProfiles(ctx); err != nil {
		return err
	}
	o.advance(StateProfilesUploaded)

	if err := o.loadDevices(ctx); err != nil {
		return err
	}
	o.advance(StateDevicesLoaded)

	if err := o.serve(); err != nil {
		return err
	}
	o.advance(StateServing)

	if err := o.scheduleEvents(ctx); err != nil {
		return err
	}
	if o.Reg != nil {
		if err := o.registerWithRegistry(ctx); err != nil {
			return err
		}
	}
	o.advance(StateScheduled)

	<-ctx.Done()
	o.Log.Info("[adapter] shutdown signal received")
	return o.shutdown()
}

// waitForPlatform pings the data and metadata services, retrying up to
// Service.ConnectRetries times with Service.Timeout between attempts. It
// also pings the optional configuration registry, if one is configured.
func (o *Orchestrator) waitForPlatform(ctx context.Context) error {
	retries := o.Config.Service.ConnectRetries
	timeout := o.Config.Service.TimeoutDuration()

	ping := func(name string, fn func(context.Context) error) error {
		var lastErr error
		for attempt := 0; attempt <= retries; attempt++ {
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			lastErr = fn(pingCtx)
			cancel()
			if lastErr == nil {
				return nil
			}
			o.Log.WithFields(logrus.Fields{
				"client":  name,
				"attempt": attempt + 1,
				"error":   lastErr,
			}).Warn("[adapter] platform client not ready, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(timeout):
			}
		}
		return errors.Wrap(errors.KindRemoteServerDown, lastErr, "%s did not become ready", name)
	}

	if err := ping("data service", o.Data.Ping); err != nil {
		return err
	}
	if err := ping("metadata service", o.Metadata.Ping); err != nil {
		return err
	}
	if o.Reg != nil {
		if err := ping("configuration registry", o.Reg.Ping); err != nil {
			return err
		}
		if err := o.resolveRegistryConfig(ctx); err != nil {
			return err
		}
		o.Health.RegisterPeriodic("registry", o.Config.Service.CheckIntervalDuration(), func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return o.Reg.Ping(pingCtx)
		})
	}

	o.Health.RegisterPeriodic("data-service", o.Config.Service.CheckIntervalDuration(), func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return o.Data.Ping(pingCtx)
	})
	o.Health.RegisterPeriodic("metadata-service", o.Config.Service.CheckIntervalDuration(), func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return o.Metadata.Ping(pingCtx)
	})

	return nil
}

// register ensures this adapter's own addressable and device-service record
// exist on the platform, so the platform knows where to send callbacks.
func (o *Orchestrator) register(ctx context.Context) error {
	addr := model.Addressable{
		Name:     o.Config.Service.Name,
		Protocol: "HTTP",
		Address:  o.Config.Service.Host,
		Port:     o.Config.Service.Port,
		Path:     "/api/v1/callback",
	}
	if addr.Name == "" {
		addr.Name = "adapter"
	}

	if _, err := o.Metadata.GetOrCreateAddressable(ctx, addr); err != nil {
		return errors.Wrap(errors.KindMetadataClient, err, "failed to register addressable")
	}

	id, err := o.Metadata.GetOrCreateDeviceService(ctx, addr.Name, addr.Path, o.Config.Service.Labels)
	if err != nil {
		return errors.Wrap(errors.KindMetadataClient, err, "failed to register device service")
	}
	o.serviceID = id
	return nil
}

// uploadProfiles loads local profile definitions and registers each one both
// in the in-memory registry and, idempotently, with the platform.
func (o *Orchestrator) uploadProfiles(ctx context.Context) error {
	profiles, errs := config.LoadProfiles(o.Config.Device.ProfilesDir)
	if len(errs) > 0 {
		multi := errors.NewMultiError("load profiles")
		for _, e := range errs {
			multi.Add(e)
		}
		return multi.Err()
	}

	for _, p := range profiles {
		o.Registry.AddProfile(p)

		conflict, err := o.Metadata.UploadProfile(ctx, p)
		if err != nil {
			return errors.Wrap(errors.KindMetadataClient, err, "failed to upload profile %q", p.Name)
		}
		if conflict {
			o.Log.WithField("profile", p.Name).Debug("[adapter] profile already present on platform")
		}
	}
	return nil
}

// loadDevices pulls existing devices for this service from the platform,
// then creates any devices declared in local configuration that are not
// already present.
func (o *Orchestrator) loadDevices(ctx context.Context) error {
	existing, err := o.Metadata.GetDevicesForService(ctx, o.Config.Service.Name)
	if err != nil {
		return errors.Wrap(errors.KindMetadataClient, err, "failed to list devices for this service")
	}

	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		if o.Registry.GetProfile(d.ProfileName) == nil {
			o.Log.WithFields(logrus.Fields{"device": d.Name, "profile": d.ProfileName}).
				Warn("[adapter] skipping device with no locally loaded profile")
			continue
		}
		if err := o.Registry.Add(d); err != nil {
			o.Log.WithField("device", d.Name).WithError(err).Warn("[adapter] failed to register existing device")
			continue
		}
		seen[d.Name] = true
	}

	for _, entry := range o.Config.DeviceList {
		if seen[entry.Name] {
			continue
		}

		dev := &model.Device{
			Name:        entry.Name,
			Description: entry.Description,
			Labels:      entry.Labels,
			AdminState:  model.Unlocked,
			OpState:     model.Enabled,
			ProfileName: entry.Profile,
			Service:     o.serviceID,
			Addressable: model.Addressable{
				Name:     entry.Name,
				Protocol: entry.Addressable.Protocol,
				Address:  entry.Addressable.Address,
				Port:     entry.Addressable.Port,
				Path:     entry.Addressable.Path,
			},
		}

		id, err := o.Metadata.CreateDevice(ctx, dev)
		if err != nil {
			return errors.Wrap(errors.KindMetadataClient, err, "failed to create device %q", entry.Name)
		}
		dev.ID = id

		if err := o.Registry.Add(dev); err != nil {
			return err
		}
	}
	return nil
}

// serve initializes the driver and starts the northbound HTTP server.
func (o *Orchestrator) serve() error {
	if err := o.Driver.Initialize(o.Config.Driver); err != nil {
		return errors.Wrap(errors.KindDriverUnstart, err, "driver failed to initialize")
	}

	o.Dispatch = &dispatch.Dispatcher{
		Registry:      o.Registry,
		Driver:        o.Driver,
		Publisher:     o.Publisher,
		Pool:          o.Pool,
		DataTransform: o.Config.Device.DataTransform,
		Limiter:       buildLimiter(o.Config.Device),
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(workerpool.QueueDepth)
	for _, c := range dispatch.Collectors() {
		reg.MustRegister(c)
	}

	o.Server = &dispatch.Server{
		Dispatch: o.Dispatch,
		Callback: &dispatch.Callback{Registry: o.Registry, Metadata: o.Metadata},
		Health:   o.Health,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	addr := fmt.Sprintf("%s:%d", o.Config.Service.Host, o.Config.Service.Port)
	o.httpServer = &http.Server{Addr: addr, Handler: o.Server.Router()}

	go func() {
		if err := o.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.Log.WithError(err).Error("[adapter] http server terminated unexpectedly")
		}
	}()

	o.Log.WithField("addr", addr).Info("[adapter] serving northbound API")
	return nil
}

// buildLimiter constructs the dispatcher's rate limiter from configuration,
// or returns nil if rate limiting is not configured.
func buildLimiter(cfg config.DeviceConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// scheduleEvents registers the configured schedules and schedule events with
// the platform's metadata service, then builds C7 tasks from the fetched,
// platform-authoritative event list rather than local configuration
// directly — a schedule event surviving a round trip through the metadata
// service is one the platform has actually accepted.
//
// An event referencing an unknown schedule, or a schedule whose frequency is
// not a parseable ISO-8601 duration, is a fatal configuration error: it
// aborts startup rather than being logged and skipped.
func (o *Orchestrator) scheduleEvents(ctx context.Context) error {
	for name, freq := range o.Config.Schedules {
		if _, err := parseISO8601Duration(freq); err != nil {
			return errors.Wrap(errors.KindBadConfig, err, "schedule %q has an unparseable interval %q", name, freq)
		}
		if _, err := o.Metadata.GetOrCreateSchedule(ctx, name, freq); err != nil {
			return errors.Wrap(errors.KindMetadataClient, err, "failed to register schedule %q", name)
		}
	}

	for name, evt := range o.Config.ScheduleEvents {
		if _, ok := o.Config.Schedules[evt.Schedule]; !ok {
			return errors.New(errors.KindBadConfig, "schedule event %q references unknown schedule %q", name, evt.Schedule)
		}
		if _, err := o.Metadata.GetOrCreateScheduleEvent(ctx, name, evt.Schedule, evt.Path); err != nil {
			return errors.Wrap(errors.KindMetadataClient, err, "failed to register schedule event %q", name)
		}
	}

	fetched, err := o.Metadata.GetScheduleEvents(ctx)
	if err != nil {
		return errors.Wrap(errors.KindMetadataClient, err, "failed to fetch schedule events")
	}

	for name, evt := range fetched {
		freq, ok := o.Config.Schedules[evt.Schedule]
		if !ok {
			return errors.New(errors.KindBadConfig, "fetched schedule event %q references unknown schedule %q", name, evt.Schedule)
		}
		interval, err := parseISO8601Duration(freq)
		if err != nil {
			return errors.Wrap(errors.KindBadConfig, err, "schedule %q has an unparseable interval %q", evt.Schedule, freq)
		}

		path := evt.Path
		name := name
		o.Scheduler.Add(&schedule.Task{
			Name:     name,
			Interval: interval,
			Action:   func() { o.invokeScheduledPath(path) },
		})
	}
	o.Scheduler.Start()
	return nil
}

// registryConfigKey namespaces this adapter's entry in the remote
// configuration registry.
func (o *Orchestrator) registryConfigKey() string {
	return "adapter/" + o.Config.Service.Name
}

// resolveRegistryConfig reconciles local configuration with the remote
// registry: if the registry already holds a config for this service, it is
// merged onto the local configuration, with registry values taking
// precedence; otherwise the local configuration is pushed to the registry so
// later starts (and other adapter instances) can pick it up.
func (o *Orchestrator) resolveRegistryConfig(ctx context.Context) error {
	data, found, err := o.Reg.GetConfig(ctx, o.registryConfigKey())
	if err != nil {
		return errors.Wrap(errors.KindRemoteServerDown, err, "failed to fetch configuration from registry")
	}

	if !found {
		local, err := yaml.Marshal(o.Config)
		if err != nil {
			return errors.Wrap(errors.KindBadConfig, err, "failed to marshal local configuration for registry seed")
		}
		if err := o.Reg.PutConfig(ctx, o.registryConfigKey(), local); err != nil {
			return errors.Wrap(errors.KindRemoteServerDown, err, "failed to seed registry with local configuration")
		}
		return nil
	}

	var remote config.Config
	if err := yaml.Unmarshal(data, &remote); err != nil {
		return errors.Wrap(errors.KindBadConfig, err, "failed to parse registry configuration")
	}
	if err := mergo.Merge(o.Config, remote, mergo.WithOverride); err != nil {
		return errors.Wrap(errors.KindBadConfig, err, "failed to merge registry configuration")
	}
	return nil
}

// registerWithRegistry advertises this adapter's health-check endpoint to
// the remote configuration registry, once startup has reached the point of
// actually serving traffic.
func (o *Orchestrator) registerWithRegistry(ctx context.Context) error {
	healthURL := fmt.Sprintf("http://%s:%d/api/v1/ping", o.Config.Service.Host, o.Config.Service.Port)
	if err := o.Reg.RegisterService(ctx, o.Config.Service.Name, healthURL); err != nil {
		return errors.Wrap(errors.KindRemoteServerDown, err, "failed to register service with registry")
	}
	return nil
}

// shutdown tears the orchestrator down in the reverse order it was built:
// scheduler, HTTP server, driver, worker pool, health checks.
func (o *Orchestrator) shutdown() error {
	o.Scheduler.Stop()

	if o.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.httpServer.Shutdown(ctx); err != nil {
			o.Log.WithError(err).Warn("[adapter] http server shutdown did not complete cleanly")
		}
	}

	o.Driver.Stop(false)
	o.Pool.Stop(true)
	o.Health.Stop()

	o.Log.Info("[adapter] shutdown complete")
	return nil
}
