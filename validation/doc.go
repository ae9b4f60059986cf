// Package validation validates configuration structs using struct tags.
//
// Field names in error messages follow the mapstructure tag so they match
// the keys used in YAML files and environment variables.
//
//	type ProxyConfig struct {
//	    HTTPProxy string `mapstructure:"http_proxy" validate:"omitempty,url"`
//	}
//	err := validation.Validate(cfg)
package validation
