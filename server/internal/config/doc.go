// Package config loads the regionpulse configuration file (config.yaml).
//
// Config fields:
//   - Server.HTTPPort            REST API, WebSocket and /metrics port (default 8080)
//   - Server.MaxBodyBytes        request body cap for aggregation calls (default 1 MiB)
//   - Server.CORS.AllowedOrigin  Access-Control-Allow-Origin value (default "*")
//   - Server.WS.Enabled          mount /ws/aggregate (default true)
//   - Telemetry.Path             telemetry JSON dataset (default telemetry.json)
//   - Log.Level                  debug | info | warn | error (default info)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file through fsnotify.
package config
