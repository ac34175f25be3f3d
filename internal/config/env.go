package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envSource resolves variables from the process environment, falling back
// to values read from a .env file. The process environment is never modified.
type envSource struct {
	dotenv map[string]string
}

func newEnvSource(dotenvPath string) (*envSource, error) {
	values, err := godotenv.Read(dotenvPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
		values = map[string]string{}
	}
	return &envSource{dotenv: values}, nil
}

func (e *envSource) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value, true
	}
	value, ok := e.dotenv[key]
	return value, ok && value != ""
}

func (e *envSource) apply(c *Config) {
	c.Service.Kind = e.getString("SERVICE_KIND", c.Service.Kind)
	c.Service.APIURL = e.getString("LLM_API_URL", c.Service.APIURL)
	c.Service.APIKey = e.getString("LLM_API_KEY", c.Service.APIKey)
	c.Service.Model = e.getString("LLM_MODEL", c.Service.Model)
	c.Service.Timeout = e.getInt("LLM_TIMEOUT", c.Service.Timeout)
	c.Service.MaxTokens = e.getInt("LLM_MAX_TOKENS", c.Service.MaxTokens)
	c.Service.Temperature = e.getFloat("LLM_TEMPERATURE", c.Service.Temperature)

	c.Translate.TargetLanguage = e.getString("TARGET_LANGUAGE", c.Translate.TargetLanguage)
	c.Translate.MaxRetries = e.getInt("MAX_RETRIES", c.Translate.MaxRetries)
	c.Translate.RetryDelay = Duration(e.getDuration("RETRY_DELAY", c.Translate.RetryDelay.Std()))
	c.Translate.SkipMarkers = e.getBool("SKIP_MARKERS", c.Translate.SkipMarkers)
	c.Translate.CheckpointBackend = e.getString("CHECKPOINT_BACKEND", c.Translate.CheckpointBackend)
	c.Translate.ResumeCron = e.getString("RESUME_CRON", c.Translate.ResumeCron)

	c.Log.Level = e.getString("LOG_LEVEL", c.Log.Level)
	c.Log.File = e.getString("LOG_FILE", c.Log.File)
}

// getString gets a string value from environment variables with default
func (e *envSource) getString(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return defaultValue
}

// getInt gets an integer value from environment variables with default
func (e *envSource) getInt(key string, defaultValue int) int {
	if value, ok := e.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloat gets a float value from environment variables with default
func (e *envSource) getFloat(key string, defaultValue float64) float64 {
	if value, ok := e.lookup(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func (e *envSource) getBool(key string, defaultValue bool) bool {
	if value, ok := e.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (e *envSource) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.lookup(key); ok {
		if d, err := parseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
