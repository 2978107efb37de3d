package app

import (
	"strings"
	"time"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/utils"
)

type Config struct {
	Port               string
	SecretKey          string
	AccessTokenTTL     time.Duration
	ExpressionFilepath string
	AtlasFilepath      string
	AllowOrigins       []string
	AdminUsername      string
	AdminPassword      string
	ServiceName        string
	Environment        string
	Version            string
	TracingEnabled     bool
}

func LoadConfig(log *logger.Logger) Config {
	secretKey := utils.GetEnv("SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 7200, log)
	expressionFilepath := utils.GetEnv("EXPRESSION_FILEPATH", "data/expression", log)
	atlasFilepath := utils.GetEnv("ATLAS_FILEPATH", "data/atlas", log)
	allowOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:8080", log)
	return Config{
		Port:               utils.GetEnv("PORT", "8080", log),
		SecretKey:          secretKey,
		AccessTokenTTL:     time.Duration(accessTokenTTLSeconds) * time.Second,
		ExpressionFilepath: expressionFilepath,
		AtlasFilepath:      atlasFilepath,
		AllowOrigins:       splitOrigins(allowOrigins),
		AdminUsername:      utils.GetEnv("ADMIN_USERNAME", "", log),
		AdminPassword:      utils.GetEnv("ADMIN_PASSWORD", "", log),
		ServiceName:        utils.GetEnv("SERVICE_NAME", "s4m-api", log),
		Environment:        utils.GetEnv("ENVIRONMENT", "development", log),
		Version:            utils.GetEnv("VERSION", "dev", log),
		TracingEnabled:     utils.GetEnvAsBool("OTEL_ENABLED", false, log),
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
