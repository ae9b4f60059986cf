// Package config loads futurenet configuration from YAML files, .env files
// and environment variables.
//
// It uses Viper for file and environment handling and godotenv for .env
// files. Environment variables carrying the service prefix override file
// values; nested keys are separated by underscores:
//
//	FUTURENET_CLIENT_TIMEOUT=5s
//	FUTURENET_CLIENT_MTLS_BUNDLE_PASSWORD=secret
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("futurenet", &cfg, config.WithConfigFile("client.yml"))
package config
