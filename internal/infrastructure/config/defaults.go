package config

import (
	"time"

	"github.com/spf13/viper"
)

// defaults lists every key. Keys that must be known to viper for env
// overrides but have no sensible default are registered with a zero value.
var defaults = map[string]map[string]any{
	"app": {
		"name": "pharmanet-backend",
		"env":  "development",
		"port": "8080",
	},
	"database": {
		"host":               "localhost",
		"port":               5432,
		"user":               "postgres",
		"password":           "",
		"dbname":             "pharmanet",
		"sslmode":            "disable",
		"max_open_conns":     25,
		"max_idle_conns":     5,
		"conn_max_lifetime":  60,
		"conn_max_idle_time": 30,
		"migrate_on_start":   false,
	},
	"redis": {
		"host":     "",
		"port":     6379,
		"password": "",
		"db":       0,
	},
	"jwt": {
		"secret":                   "",
		"refresh_secret":           "",
		"access_token_expiration":  15 * time.Minute,
		"refresh_token_expiration": 7 * 24 * time.Hour,
		"issuer":                   "pharmanet-backend",
		"max_refresh_count":        10,
	},
	"log": {
		"level":  "info",
		"format": "console",
		"output": "stdout",
	},
	"event": {
		"processor_enabled": true,
		"batch_size":        100,
		"poll_interval":     5 * time.Second,
		"max_retries":       5,
		"cleanup_enabled":   true,
		"cleanup_interval":  time.Hour,
		"cleanup_retention": 7 * 24 * time.Hour,
		"idempotency_ttl":   24 * time.Hour,
		"admin_allowed_ips": []string{"127.0.0.1", "::1"},
	},
	"http": {
		"read_timeout":             15 * time.Second,
		"write_timeout":            30 * time.Second,
		"idle_timeout":             time.Minute,
		"max_header_bytes":         1 << 20,
		"max_body_size":            1 << 20,
		"rate_limit_enabled":       false,
		"rate_limit_requests":      100,
		"rate_limit_window":        time.Minute,
		"auth_rate_limit_enabled":  true,
		"auth_rate_limit_requests": 5,
		"auth_rate_limit_window":   time.Minute,
		// no origins: cross-origin requests are refused until configured
		"cors_allow_origins": []string{},
		"cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		"cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
		"trusted_proxies":    []string{},
	},
	"kafka": {
		"enabled":       false,
		"brokers":       []string{},
		"topic":         "pharmanet.events",
		"batch_size":    100,
		"batch_timeout": 10 * time.Millisecond,
	},
	"storage": {
		"enabled":            false,
		"endpoint":           "",
		"region":             "us-east-1",
		"bucket":             "pharmanet-documents",
		"access_key":         "",
		"secret_key":         "",
		"use_ssl":            true,
		"use_path_style":     false,
		"presign_expiration": 15 * time.Minute,
	},
	"printing": {
		"enabled":        false,
		"chrome_path":    "",
		"render_timeout": 30 * time.Second,
		"locale":         "es-AR",
		"currency":       "ARS",
		"link_ttl":       time.Duration(0),
	},
	"swagger": {
		"enabled":      false,
		"require_auth": false,
		"allowed_ips":  []string{},
	},
	"telemetry": {
		"enabled":                 false,
		"collector_endpoint":      "localhost:4317",
		"sampling_ratio":          1.0,
		"service_name":            "pharmanet-backend",
		"insecure":                false,
		"metrics_enabled":         false,
		"metrics_interval":        15 * time.Second,
		"logs_enabled":            false,
		"db_trace_enabled":        false,
		"db_log_full_sql":         false,
		"db_slow_query_threshold": 200 * time.Millisecond,
		"profiling_enabled":       false,
		"pyroscope_endpoint":      "http://localhost:4040",
		"pyroscope_auth_token":    "",
	},
}

func setDefaults(v *viper.Viper) {
	for section, keys := range defaults {
		for key, value := range keys {
			v.SetDefault(section+"."+key, value)
		}
	}
}
