// Package config provides configuration parsing for reactivectl.
//
// Configuration is optional: every field has a default, and a file passed
// with --config only needs to name the values it changes. Files are YAML or
// JSON, chosen by extension.
//
// # Configuration File Structure
//
//	log:
//	  level: debug        # debug, info, warn, error
//	  format: json        # text or json
//	live:
//	  addr: ":8080"
//	  writeTimeout: 10s
//	  pingInterval: 30s
//	  sendBuffer: 16
//	  stepInterval: 1s    # serve: delay between replayed steps
//	metrics:
//	  enabled: true
//	  path: /metrics
//	  namespace: reactive
//
// # Usage
//
//	cfg, err := config.FromFile("reactivectl.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("listening on", cfg.Live.Addr)
package config
