// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on the domain and port packages; concrete
// adapters are injected by cmd/nephra.
package services
