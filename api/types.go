package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	projectHandler projectHandler
	authHandler    authHandler
	adminHandler   adminHandler
	healthHandler  healthHandler
}
