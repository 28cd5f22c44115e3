// Package scoped is a scoped dependency injection engine for Go.
//
// The repository is organised as:
//
//   - di: providers, registries, graph validation and the scoped containers
//   - config: container settings loaded from YAML, .env files and environment
//   - logger: the zerolog-based logger used by the engine
//   - examples/basic: console walkthrough of scopes, aliases and decorators
//   - examples/webapp: chi router entering a REQUEST scope per HTTP request
//
// Import
//
//	"github.com/sghaida/scoped/di"
package scoped
