package temporalx

import "time"

// Config is the `temporal` config section. An empty Address disables Temporal;
// the in-process scheduler then owns the decay sweep.
type Config struct {
	Address   string `koanf:"address"`
	Namespace string `koanf:"namespace" validate:"required_with=Address"`
	TaskQueue string `koanf:"task_queue" validate:"required_with=Address"`

	ClientCertPath string `koanf:"client_cert_path"`
	ClientKeyPath  string `koanf:"client_key_path"`
	ClientCAPath   string `koanf:"client_ca_path"`

	DialTimeout    time.Duration `koanf:"dial_timeout" validate:"gte=0"`
	DialMaxWait    time.Duration `koanf:"dial_max_wait" validate:"gte=0"`
	DialBackoff    time.Duration `koanf:"dial_backoff" validate:"gte=0"`
	DialBackoffMax time.Duration `koanf:"dial_backoff_max" validate:"gte=0"`

	AutoRegisterNamespace bool          `koanf:"auto_register_namespace"`
	NamespaceRetention    time.Duration `koanf:"namespace_retention" validate:"gte=0"`
	WorkerConcurrency     int           `koanf:"worker_concurrency" validate:"gte=0"`

	// SweepCron schedules the decay sweep workflow, in standard cron syntax.
	SweepCron string `koanf:"sweep_cron"`
}

func (c Config) Enabled() bool { return c.Address != "" }

// WithDefaults fills unset fields with the shipped values.
func (c Config) WithDefaults() Config {
	c.Namespace = stringsOr(c.Namespace, "mastery")
	c.TaskQueue = stringsOr(c.TaskQueue, "mastery")
	c.SweepCron = stringsOr(c.SweepCron, "15 3 * * *")
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialBackoff <= 0 {
		c.DialBackoff = 250 * time.Millisecond
	}
	if c.DialBackoffMax <= 0 {
		c.DialBackoffMax = 5 * time.Second
	}
	if c.NamespaceRetention < 24*time.Hour {
		c.NamespaceRetention = 7 * 24 * time.Hour
	}
	if c.NamespaceRetention > 365*24*time.Hour {
		c.NamespaceRetention = 365 * 24 * time.Hour
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 4
	}
	return c
}

func stringsOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
