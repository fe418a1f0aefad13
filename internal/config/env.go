package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".annoflow/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"annoflow/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

// EngineEnv tunes the workflow engine and the allocator scoring weights.
type EngineEnv struct {
	LockWait        time.Duration `envconfig:"LOCK_WAIT" default:"2s"`
	SkillWeight     float64       `envconfig:"SKILL_WEIGHT" default:"0.35"`
	HeadroomWeight  float64       `envconfig:"HEADROOM_WEIGHT" default:"0.25"`
	AccuracyWeight  float64       `envconfig:"ACCURACY_WEIGHT" default:"0.25"`
	UrgencyWeight   float64       `envconfig:"URGENCY_WEIGHT" default:"0.15"`
	MetricsAlpha    float64       `envconfig:"METRICS_ALPHA" default:"0.3"`
	UrgencyHorizon  time.Duration `envconfig:"URGENCY_HORIZON" default:"72h"`
	MaxAssigneesCap int           `envconfig:"MAX_ASSIGNEES_CAP" default:"3"`
}

// SamplingEnv configures the external quality sampling service. An empty
// base URL disables the advisory lookup.
type SamplingEnv struct {
	BaseURL string        `envconfig:"SAMPLING_BASE_URL"`
	Timeout time.Duration `envconfig:"SAMPLING_TIMEOUT" default:"5s"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:ops@annoflow.dev"`
}

type Env struct {
	BaseEnv
	StorageEnv
	EngineEnv
	SamplingEnv
	VAPIDEnv
}

const namespace = "ANNOFLOW"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func EngineEnvFromEnv(env *Env) *EngineEnv {
	return &env.EngineEnv
}

func SamplingEnvFromEnv(env *Env) *SamplingEnv {
	return &env.SamplingEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
