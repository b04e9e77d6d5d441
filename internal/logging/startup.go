package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects process identity, resources and feature flags,
// then emits a single structured zerolog event summarising how the CLI or
// Lambda was configured. Useful when correlating a run with CloudWatch.
type StartupLogger struct {
	name         string
	commitHash   string
	initDuration time.Duration

	s3Buckets    map[string]string
	dynamoTables map[string]string
	ssmParams    map[string]string
	eventBuses   map[string]string
	models       map[string]string
	projects     map[string]string
	features     map[string]bool
	config       map[string]string
}

// NewStartupLogger creates a StartupLogger for the given component name
// (e.g. "mediajobs", "mediajob-lambda").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:         name,
		s3Buckets:    make(map[string]string),
		dynamoTables: make(map[string]string),
		ssmParams:    make(map[string]string),
		eventBuses:   make(map[string]string),
		models:       make(map[string]string),
		projects:     make(map[string]string),
		features:     make(map[string]bool),
		config:       make(map[string]string),
	}
}

// CommitHash sets the git commit hash baked into the binary at build time.
func (s *StartupLogger) CommitHash(hash string) *StartupLogger {
	s.commitHash = hash
	return s
}

func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	return s.set(s.s3Buckets, label, name)
}

func (s *StartupLogger) DynamoTable(label, name string) *StartupLogger {
	return s.set(s.dynamoTables, label, name)
}

// SSMParam registers an SSM parameter path. Only the path is logged, never
// the value.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	return s.set(s.ssmParams, label, path)
}

func (s *StartupLogger) EventBus(label, name string) *StartupLogger {
	return s.set(s.eventBuses, label, name)
}

// Model registers a Bedrock model ID used for generation.
func (s *StartupLogger) Model(label, id string) *StartupLogger {
	return s.set(s.models, label, id)
}

// Project registers a Data Automation project name used for analysis.
func (s *StartupLogger) Project(label, name string) *StartupLogger {
	return s.set(s.projects, label, name)
}

func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	return s.set(s.config, key, value)
}

func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// empty values are skipped so optional resources don't clutter the event
func (s *StartupLogger) set(m map[string]string, k, v string) *StartupLogger {
	if v != "" {
		m[k] = v
	}
	return s
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	identity := zerolog.Dict().
		Str("name", s.name).
		Str("region", os.Getenv("AWS_REGION")).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv(LevelEnv))
	if InLambda() {
		identity = identity.
			Str("functionName", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).
			Str("version", os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")).
			Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	}
	if s.commitHash != "" {
		identity = identity.Str("commitHash", s.commitHash)
	}
	evt = evt.Dict("process", identity)

	resources := zerolog.Dict()
	hasResources := false
	for _, r := range []struct {
		key string
		m   map[string]string
	}{
		{"s3Buckets", s.s3Buckets},
		{"dynamoTables", s.dynamoTables},
		{"ssmParams", s.ssmParams},
		{"eventBuses", s.eventBuses},
		{"models", s.models},
		{"projects", s.projects},
	} {
		if len(r.m) > 0 {
			resources = resources.Dict(r.key, dictFromMap(r.m))
			hasResources = true
		}
	}
	if hasResources {
		evt = evt.Dict("resources", resources)
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
