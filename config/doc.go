// Package config loads container settings from YAML files, .env files and
// environment variables using viper and godotenv.
//
// # Configuration
//
//	validation:
//	  implicit_override: true
//	  nothing_overridden: true
//	  nothing_decorated: false
//	skip_validation: false
//	lock: true
//	start_scope: "APP"
//	logging: true
//	log:
//	  level: "debug"
//	  format: "json"
//
// Every key can be overridden from the environment with the SCOPED_ prefix:
//
//	SCOPED_LOCK=false SCOPED_LOG_LEVEL=warn ./server
//
// # Usage
//
//	s, err := config.Load(config.WithFile("scoped.yml"), config.WithEnvFile(".env"))
//	c, err := di.MakeContainer(providers, di.WithSettings(s))
package config
