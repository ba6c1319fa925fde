// Package yumetypes defines the shared types for the yumeadmin console.
// It contains the server-synchronized data model (configuration, character
// documents, log listings) and the core architectural interfaces.
package yumetypes

// Service defines the interface for yumeadmin services that provide specific
// functionality. Services are registered at startup and initialized before the
// first command executes.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry manages the registration and retrieval of services.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}
