// Package config provides configuration management for uidthrottle.
//
// Configuration is YAML decoded on top of the defaults, so any field left
// out of the file keeps its default and an explicit false survives.
//
//	cfg, err := config.LoadConfig("uidthrottle.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("uidthrottle.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention UIDTHROTTLE_SECTION_FIELD:
//
//   - UIDTHROTTLE_THROTTLE_WINDOW overrides throttle.window
//   - UIDTHROTTLE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - UIDTHROTTLE_STORE_REDIS_PASSWORD overrides store.redis.password
//
// A .env file in the working directory is loaded first. It never replaces a
// variable that is already set.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast and reports every invalid field)
//
// # Singleton Pattern
//
//	if err := config.Initialize("uidthrottle.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer passing explicit Config values around.
package config
