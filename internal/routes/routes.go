package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/mhorbach/weather-reminder/internal/config"
	"github.com/mhorbach/weather-reminder/internal/handlers"
	"github.com/mhorbach/weather-reminder/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Subscription + cities, all JWT-protected
	sub := api.Group("/subscription", middleware.JWTProtected(cfg))
	sub.Get("/", subscriptionHandler.Get)
	sub.Post("/", subscriptionHandler.Create)
	sub.Put("/", subscriptionHandler.Update)
	sub.Delete("/", subscriptionHandler.Delete)

	sub.Get("/weather/", subscriptionHandler.WeatherNow)

	sub.Get("/cities/", subscriptionHandler.ListCities)
	sub.Post("/cities/", subscriptionHandler.AddCity)
	sub.Get("/cities/:id/", subscriptionHandler.GetCity)
	sub.Delete("/cities/:id/", subscriptionHandler.DeleteCity)
}
