// Package config handles loading and validating the JAP control panel configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of the device table, control bounds and service settings
//   - Default value handling
//
// The configuration is loaded once at startup and treated as read-only
// afterwards; components receive the sections they need explicitly.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Panel.Name, len(cfg.Devices))
//
// Example device section:
//
//	devices:
//	  - name: "Lobby Display"
//	    address: "192.168.8.16"
//	jap:
//	  timeout: 10s
//	  max_channels: 100
//	  min_volume: 0
//	  max_volume: 100
//	  volume_step: 5
//	  volume_models: ["3G+AVP RX"]
package config
