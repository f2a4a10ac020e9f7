package adapter

// State is a stage in the orchestrator's startup sequence. Stages are
// strictly ordered; Run advances through them one at a time and never skips
// or revisits one on a successful startup.
type State string

// Lifecycle stages, in the order Run advances through them.
const (
	StateInit             State = "INIT"
	StateConfigLoaded     State = "CONFIG_LOADED"
	StatePlatformReady    State = "PLATFORM_READY"
	StateRegistered       State = "REGISTERED"
	StateProfilesUploaded State = "PROFILES_UPLOADED"
	StateDevicesLoaded    State = "DEVICES_LOADED"
	StateServing          State = "SERVING"
	StateScheduled        State = "SCHEDULED"
)
