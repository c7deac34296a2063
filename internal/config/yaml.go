// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	applog "spectrum/internal/log"
	"spectrum/internal/transport/udp"
	"spectrum/pkg/bitint"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is shared; validator caches struct metadata per instance.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		return bitint.IsPowerOfTwo(int(fl.Field().Int()))
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateUDPSpectrum, Config{})
	return v
}

// validateUDPSpectrum rejects spectra too long to fit one UDP packet while the
// publisher is enabled.
func validateUDPSpectrum(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Transport.UDPEnabled && c.Spectrum.Length/2 > udp.MaxAmplitudes {
		sl.ReportError(c.Spectrum.Length, "spectrum.length", "Length", "udp_packet", strconv.Itoa(udp.MaxAmplitudes))
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is empty it
// looks for config.yaml in the working directory and falls back to built-in
// defaults when there is none. Environment overrides are applied last, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field against its constraints and reports all failures.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationMessage(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// formatValidationMessage renders a field error using the YAML key path.
func formatValidationMessage(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, e.Param(), e.Value())
	case "pow2":
		if n, ok := e.Value().(int); ok {
			return fmt.Sprintf("%s must be a power of two, got %d (try %d)", field, n, bitint.NextPowerOfTwo(n))
		}
		return fmt.Sprintf("%s must be a power of two, got %v", field, e.Value())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, e.Tag(), e.Param(), e.Value())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "udp_packet":
		return fmt.Sprintf("%s must be at most %d with transport.udp_enabled set, got %v",
			field, bitint.NextPowerOfTwo(udp.MaxAmplitudes*2)/2, e.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("ENV_DEBUG", &c.Debug)
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(val)
		applog.Debugf("configuration: overriding log_level from env: %s", val)
	}

	envBool("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", &c.Transport.WebSocketAddress)

	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			applog.Debugf("configuration: overriding udp_send_interval from env: %s", d)
		} else {
			applog.Warnf("configuration: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: overriding from env %s=%v", key, b)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("configuration: overriding from env %s=%s", key, val)
	}
}
