// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gogama/hopper/request"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix of the environment variables read by
// Load.
const DefaultEnvPrefix = "HOPPER_"

// An Option configures Load.
type Option func(o *options)

type options struct {
	path      string
	envPrefix string
	env       bool
}

// WithFile loads the YAML file at path over the defaults. A missing
// file is not an error.
func WithFile(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithEnvPrefix sets the prefix of the environment variables read.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithoutEnv disables reading the environment.
func WithoutEnv() Option {
	return func(o *options) {
		o.env = false
	}
}

// Load returns the request configuration built by layering, from lowest
// to highest priority, request.DefaultConfig, an optional YAML file and
// the environment.
//
// Environment variables are named after the key path with the prefix
// prepended, the path separator replaced by an underscore and the words
// of camel-case keys run together: HOPPER_RETRY_ATTEMPTS sets
// retry.attempts and HOPPER_RETRY_MAXRETRYAFTER sets
// retry.maxRetryAfter. List values are separated by commas, as in
// HOPPER_RETRY_STATUSCODES=429,503.
//
// The result is checked with request.ValidateConfig.
func Load(opts ...Option) (request.Config, error) {
	o := options{envPrefix: DefaultEnvPrefix, env: true}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return request.Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if o.path != "" {
		if _, err := os.Stat(o.path); err == nil {
			if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
				return request.Config{}, fmt.Errorf("failed to load %s: %w", o.path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return request.Config{}, fmt.Errorf("failed to stat %s: %w", o.path, err)
		}
	}

	if o.env {
		prefix := o.envPrefix
		keys := envKeys(k)
		err := k.Load(env.Provider(".", env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, prefix)), "_", ".")
				path, ok := keys[key]
				if !ok {
					return key, value
				}
				switch k.Get(path).(type) {
				case []string, []int, []any:
					return path, strings.Split(value, ",")
				}
				return path, value
			},
		}), nil)
		if err != nil {
			return request.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	return unmarshal(k)
}

// envKeys maps the lower-cased form of every key already in k to the key
// itself, so that environment variables land on the camel-case paths
// used by the struct tags.
func envKeys(k *koanf.Koanf) map[string]string {
	keys := make(map[string]string)
	for _, key := range k.Keys() {
		keys[strings.ToLower(key)] = key
	}
	return keys
}

// LoadBytes is like Load, but reads the YAML document b instead of a
// file and ignores the environment.
func LoadBytes(b []byte) (request.Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return request.Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return request.Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (request.Config, error) {
	var cfg request.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return request.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := request.ValidateConfig(cfg); err != nil {
		return request.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	d := request.DefaultConfig()
	headers := make(map[string]any, len(d.Header))
	for name, values := range d.Header {
		headers[name] = append([]string(nil), values...)
	}
	defaults := map[string]any{
		"baseURL":             d.BaseURL,
		"headers":             headers,
		"cookies":             d.Cookies,
		"credentials":         string(d.Credentials),
		"redirect":            string(d.Redirect),
		"follow":              d.Follow,
		"timeout":             d.Timeout,
		"digest":              d.Digest,
		"parse":               d.Parse,
		"thenable":            d.Thenable,
		"h2":                  d.H2,
		"allowDowngrade":      d.AllowDowngrade,
		"trimTrailingSlashes": d.TrimTrailingSlashes,
		"stripTrailingSlash":  d.StripTrailingSlash,

		"retry.attempts":      d.Retry.Attempts,
		"retry.interval":      d.Retry.Interval,
		"retry.backoff":       string(d.Retry.Backoff),
		"retry.errorCodes":    append([]string(nil), d.Retry.ErrorCodes...),
		"retry.statusCodes":   append([]int(nil), d.Retry.StatusCodes...),
		"retry.retryAfter":    d.Retry.RetryAfter,
		"retry.maxRetryAfter": d.Retry.MaxRetryAfter,
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}
