// Package config loads foodking client settings.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file (unknown keys are rejected)
//  3. an optional .env file
//  4. FOODKING_* environment variables
//
// Example YAML:
//
//	api_url: https://foodking.example.com/api
//	state_path: /var/lib/foodking/state.db
//	http_timeout: 15s
//	orders_interval: 30s
//	dashboard_interval: 1m
//	geo_timeout: 3s
//	default_location: {lat: 26.5678, lng: 84.3779}
//	log_format: json
package config
