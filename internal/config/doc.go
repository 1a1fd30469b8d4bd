// Package config loads application configuration.
//
// Values come from three layers, highest priority first:
//
//  1. Environment variables prefixed RECONCILE_ (RECONCILE_SINK_MODE,
//     RECONCILE_PIPELINE_MULTIPLIER, ...)
//  2. A YAML file named by RECONCILE_CONFIG_FILE, or config.yaml /
//     configs/config.yaml in the working directory
//  3. Defaults from Default
//
// A loaded Config is validated with validator/v10 struct tags and the
// sink-mode specific rules in Validate.
package config
