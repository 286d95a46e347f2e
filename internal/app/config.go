package app

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	dataagg "github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/data/db"
	httpx "github.com/yungbote/neurobridge-mastery/internal/http"
	"github.com/yungbote/neurobridge-mastery/internal/jobs/scheduler"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/learning/srs"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-mastery/internal/platform/redisx"
	"github.com/yungbote/neurobridge-mastery/internal/services"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx"
)

// EnvPrefix namespaces environment overrides: MASTERY_DECAY_FACTOR sets decay.factor.
const EnvPrefix = "MASTERY_"

//go:embed default.yaml
var defaultYAML []byte

type LogConfig struct {
	Mode  string `koanf:"mode" validate:"oneof=dev prod test nop"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	HTTP     httpx.ServerConfig           `koanf:"http"`
	Log      LogConfig                    `koanf:"log"`
	Database db.Config                    `koanf:"database"`
	Redis    redisx.Config                `koanf:"redis"`
	Neo4j    neo4jdb.Config               `koanf:"neo4j"`
	Temporal temporalx.Config             `koanf:"temporal"`
	Otel     observability.OtelConfig     `koanf:"otel"`
	Metrics  observability.MetricsConfig  `koanf:"metrics"`
	// Auth is validated only by commands that serve requests.
	Auth services.AuthConfig `koanf:"auth" validate:"-"`

	Mastery   masterymodel.Params       `koanf:"mastery"`
	Schedule  srs.Params                `koanf:"schedule"`
	Decay     masterymodel.DecayParams  `koanf:"decay"`
	Graph     services.GraphParams      `koanf:"graph"`
	Recommend services.RecommendParams  `koanf:"recommend"`
	Sweep     services.SweepParams      `koanf:"sweep"`
	Scheduler scheduler.Config          `koanf:"scheduler"`
	Retry     dataagg.RetryPolicy       `koanf:"retry"`
}

// LoadConfig layers the embedded defaults, the optional YAML file at path,
// then MASTERY_* environment variables, and validates the result.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load default config: %w", err)
	}
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps MASTERY_SECTION_FIELD_NAME to section.field_name. Comma-separated
// values become lists.
func envKey(key, value string) (string, any) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower, value
	}
	if strings.Contains(value, ",") {
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		return parts[0] + "." + parts[1], items
	}
	return parts[0] + "." + parts[1], value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", flattenValidation(err))
	}
	return nil
}

// ValidateAuth checks the auth section, which only serving needs.
func (c Config) ValidateAuth() error {
	if err := validate.Struct(c.Auth); err != nil {
		return fmt.Errorf("invalid auth config: %w", flattenValidation(err))
	}
	return nil
}

func flattenValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
