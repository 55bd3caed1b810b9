// Package config provides 12-factor configuration management for the launcher daemon.
//
// Configuration is layered: built-in defaults, then an optional TOML file named
// by LAUNCHER_CONFIG, then environment variables. CLI flags in cmd/server
// override the result.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Storage: data directory and download root
//   - Catalog: catalog URL, GitHub API endpoint, token and request rate
//   - Transfer: header timeout, redirect limit, user agent
//   - Install: executable extension, discovery depth, progress tick
//   - Uninstall: settling delay and removal retries
//   - Logging: log level, output format and optional file
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Launcher listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, LAUNCHER_DATA_DIR, LAUNCHER_DOWNLOAD_DIR
//   - CATALOG_URL, GITHUB_API_URL, GITHUB_TOKEN, GITHUB_RPS, LAUNCHER_REPO, LAUNCHER_VERSION
//   - TRANSFER_HEADER_TIMEOUT, TRANSFER_MAX_REDIRECTS, TRANSFER_USER_AGENT
//   - INSTALL_EXECUTABLE_EXT, INSTALL_DISCOVERY_DEPTH, INSTALL_TICK
//   - UNINSTALL_SETTLE, UNINSTALL_RETRIES, UNINSTALL_RETRY_DELAY
//   - LOG_LEVEL, LOG_DEV, LOG_FILE
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
