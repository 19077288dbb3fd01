package api

import (
	"github.com/rpupo63/hundred-days/database"
	"github.com/rpupo63/hundred-days/services"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(database database.Database, responder Responder, adminPassword string, uploader services.ImageUploader, events projectNotifier) *routeHandlers {
	return &routeHandlers{
		projectHandler: newProjectHandler(responder, database.ProjectRepo()),
		authHandler:    newAuthHandler(responder, adminPassword),
		adminHandler:   newAdminHandler(responder, database.ProjectRepo(), uploader, events),
		healthHandler:  newHealthHandler(database),
	}
}
