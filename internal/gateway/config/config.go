package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	ProviderCatalog string
	TraceDir        string
	Artifact        ArtifactConfig
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether the S3 settings are complete enough to build
// a client.
func (c ArtifactConfig) CanUseS3() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:            *port,
		Env:             env,
		ProviderCatalog: strings.TrimSpace(os.Getenv("PROVIDER_CATALOG")),
		TraceDir:        strings.TrimSpace(os.Getenv("TRACE_DIR")),
		Artifact:        loadArtifactConfig(env),
	}, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	local := strings.EqualFold(strings.TrimSpace(env), "local")

	access := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY"))
	secret := strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY"))
	if local {
		access = firstNonEmpty(access, strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "appforge")
		secret = firstNonEmpty(secret, strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "appforge123")
	} else {
		access = firstNonEmpty(access, strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")))
		secret = firstNonEmpty(secret, strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")))
	}

	return ArtifactConfig{
		Enabled:   local || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: access,
		SecretKey: secret,
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "appforge-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
