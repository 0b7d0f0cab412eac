// Package routes wires repositories, services and handlers into the HTTP
// route tree, with middleware applied per group.
package routes

import (
	"time"

	"domus/internal/config"
	"domus/internal/handlers"
	"domus/internal/middleware"
	"domus/internal/repositories"
	"domus/internal/repositories/cache"
	"domus/internal/services/audit"
	authsvc "domus/internal/services/auth"
	invitesvc "domus/internal/services/invite"
	leasesvc "domus/internal/services/lease"
	maintsvc "domus/internal/services/maintenance"
	"domus/internal/services/notification"
	propertysvc "domus/internal/services/property"
	"domus/internal/services/recurrence"
	rentsvc "domus/internal/services/rent"
	usersvc "domus/internal/services/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// SetupRoutes builds the dependency graph and registers every route. The
// returned generator is shared with the periodic scheduler in main.
func SetupRoutes(app *fiber.App, db *gorm.DB, cacheSvc *cache.CacheService,
	notifier *notification.Service) *recurrence.Generator {

	// Repositories
	userRepo := repositories.NewUserRepository(db, cacheSvc)
	assocRepo := repositories.NewAssociationRepository(db, cacheSvc)
	propertyRepo := repositories.NewPropertyRepository(db)
	leaseRepo := repositories.NewLeaseRepository(db)
	rentRepo := repositories.NewRentRepository(db)
	maintRepo := repositories.NewMaintenanceRepository(db)
	inviteRepo := repositories.NewInviteRepository(db)
	vendorRepo := repositories.NewVendorRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	auditService := audit.NewService(auditRepo)
	userService := usersvc.NewService(userRepo, assocRepo)
	authService := authsvc.NewService(userRepo)
	propertyService := propertysvc.NewService(propertyRepo, assocRepo)
	leaseService := leasesvc.NewService(leaseRepo, rentRepo)
	rentService := rentsvc.NewService(rentRepo)
	maintService := maintsvc.NewService(maintRepo)
	inviteService := invitesvc.NewService(inviteRepo, db)
	generator := recurrence.NewGenerator(rentRepo, maintRepo, inviteRepo, auditService, notifier)

	inviteExpiry := config.GetDurationEnv("INVITE_EXPIRY", invitesvc.DefaultExpiry)

	// Handlers
	actors := handlers.NewActorLoader(userService)
	authHandler := handlers.NewAuthHandler(authService, userService, auditService)
	userHandler := handlers.NewUserHandler(userService, auditService)
	propertyHandler := handlers.NewPropertyHandler(propertyService, assocRepo, actors, auditService)
	leaseHandler := handlers.NewLeaseHandler(leaseService, actors, auditService)
	rentHandler := handlers.NewRentHandler(rentService, leaseService, actors, auditService)
	requestHandler := handlers.NewRequestHandler(maintService, actors, auditService)
	scheduledHandler := handlers.NewScheduledHandler(maintService, actors, auditService)
	inviteHandler := handlers.NewInviteHandler(inviteService, authService, notifier, actors, auditService, inviteExpiry)
	publicHandler := handlers.NewPublicHandler(maintService, auditService)
	vendorHandler := handlers.NewVendorHandler(vendorRepo, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)
	adminHandler := handlers.NewAdminHandler(userService, propertyService, generator, auditService)
	healthHandler := handlers.NewHealthHandler(db, cacheSvc)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Unauthenticated surfaces are rate limited; everything else rides on
	// the bearer token.
	publicLimiter := limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_MAX", 30),
		Expiration: time.Duration(config.GetIntEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	})

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", publicLimiter, authHandler.Register)
	api.Post("/login", publicLimiter, authHandler.Login)
	api.Post("/refresh", publicLimiter, authHandler.Refresh)

	public := api.Group("/public", publicLimiter)
	public.Get("/requests/:token", publicHandler.GetRequest)
	public.Patch("/requests/:token", publicHandler.UpdateRequest)
	public.Get("/templates/:token", publicHandler.GetTemplate)
	public.Get("/invites/:token", inviteHandler.Verify)
	public.Post("/invites/:token/accept", inviteHandler.Accept)
	public.Post("/invites/:token/decline", inviteHandler.Decline)

	// Authenticated endpoints
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.Logout)
	protected.Get("/me", authHandler.Me)
	protected.Post("/change-password", authHandler.ChangePassword)

	properties := protected.Group("/properties")
	properties.Post("/", propertyHandler.Create)
	properties.Get("/", propertyHandler.List)
	properties.Get("/:id", propertyHandler.Get)
	properties.Put("/:id", propertyHandler.Update)
	properties.Delete("/:id", propertyHandler.Archive)
	properties.Post("/:id/units", propertyHandler.CreateUnit)
	properties.Get("/:id/units", propertyHandler.ListUnits)
	properties.Get("/:id/units/:unitId", propertyHandler.GetUnit)
	properties.Put("/:id/units/:unitId", propertyHandler.UpdateUnit)
	properties.Post("/:id/associations", propertyHandler.Associate)
	properties.Get("/:id/associations", propertyHandler.ListAssociations)
	protected.Delete("/associations/:assocId", propertyHandler.Deactivate)

	leases := protected.Group("/leases")
	leases.Post("/", leaseHandler.Create)
	leases.Get("/", leaseHandler.List)
	leases.Get("/:id", leaseHandler.Get)
	leases.Post("/:id/activate", leaseHandler.Activate)
	leases.Post("/:id/terminate", leaseHandler.Terminate)
	leases.Post("/:id/schedules", leaseHandler.CreateSchedule)
	leases.Get("/:id/schedules", leaseHandler.ListSchedules)
	protected.Put("/schedules/:schedId", leaseHandler.UpdateSchedule)

	rents := protected.Group("/rents")
	rents.Get("/", rentHandler.List)
	rents.Get("/:id", rentHandler.Get)
	rents.Post("/:id/pay", rentHandler.Pay)
	rents.Post("/:id/waive", rentHandler.Waive)

	requests := protected.Group("/requests")
	requests.Post("/", requestHandler.Create)
	requests.Get("/", requestHandler.List)
	requests.Get("/:id", requestHandler.Get)
	requests.Post("/:id/transition", requestHandler.Transition)
	requests.Post("/:id/assign", requestHandler.Assign)
	requests.Post("/:id/feedback", requestHandler.Feedback)
	requests.Post("/:id/comments", requestHandler.AddComment)
	requests.Get("/:id/comments", requestHandler.ListComments)
	requests.Post("/:id/public-link", requestHandler.IssuePublicLink)

	templates := protected.Group("/scheduled-maintenance")
	templates.Post("/", scheduledHandler.Create)
	templates.Get("/", scheduledHandler.List)
	templates.Get("/:id", scheduledHandler.Get)
	templates.Put("/:id", scheduledHandler.Update)
	templates.Post("/:id/pause", scheduledHandler.Pause)
	templates.Post("/:id/resume", scheduledHandler.Resume)
	templates.Post("/:id/cancel", scheduledHandler.Cancel)
	templates.Post("/:id/public-link", scheduledHandler.IssuePublicLink)

	invites := protected.Group("/invites")
	invites.Post("/", inviteHandler.Create)
	invites.Get("/", inviteHandler.List)
	invites.Post("/:id/cancel", inviteHandler.Cancel)
	invites.Post("/:id/resend", inviteHandler.Resend)

	vendors := protected.Group("/vendors")
	vendors.Get("/", vendorHandler.List)
	vendors.Get("/:id", vendorHandler.Get)
	vendors.Post("/", vendorHandler.Create)
	vendors.Put("/:id", vendorHandler.Update)

	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Get("/users", userHandler.List)
	admin.Get("/users/:id", userHandler.Get)
	admin.Put("/users/:id", userHandler.Update)
	admin.Put("/users/:id/status", userHandler.SetStatus)
	admin.Post("/users/:id/approve", adminHandler.ApproveUser)
	admin.Delete("/users/:id", userHandler.Delete)
	admin.Delete("/properties/:id", adminHandler.HardDeleteProperty)
	admin.Post("/generate", adminHandler.TriggerGeneration)
	admin.Get("/audit", auditHandler.List)

	return generator
}
