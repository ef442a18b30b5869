package main

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"shopfront/internal/config"
	"shopfront/internal/http/handlers"
	applog "shopfront/internal/log"
	"shopfront/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	slots, closeSlots, err := openSlots(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSlots()

	deps := handlers.NewDeps(slots, cfg)

	// Templates & app
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and show a friendly message
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/api/v1/toasts")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	// Resolve the visitor (token check against /auth/me) and their shelf
	app.Use(handlers.Session(deps.Auth, deps.Shelf, deps.Toasts))

	// ---------- Static assets ----------
	log.Printf("[static] /static -> ./web/static")
	app.Static("/static", "./web/static")

	// ---------- Pages ----------
	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/page/:name", deps.PageHandler.Show)

	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/cart/clear", deps.CartHandler.Clear)

	app.Get("/wishlist", deps.WishlistHandler.List)
	app.Post("/wishlist/toggle", deps.WishlistHandler.Toggle)

	// Auth routes (login throttled)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	// Registration wizard; the remote calls are throttled per client
	regLimiter := func(name string, max int) fiber.Handler {
		return limiter.New(limiter.Config{
			Max:        max,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP() + "|" + name
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate."+name+".hit", nil)
				return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many attempts. Please try again later."})
			},
		})
	}
	app.Get("/register", deps.RegisterHandler.Form)
	app.Post("/register", regLimiter("register", 10), deps.RegisterHandler.Submit)
	app.Post("/register/step/:n", deps.RegisterHandler.Step)
	app.Post("/register/verify", regLimiter("verify", 10), deps.RegisterHandler.Verify)
	app.Post("/register/resend", regLimiter("resend", 5), deps.RegisterHandler.Resend)

	// API for the page script
	api := app.Group("/api/v1")
	api.Get("/counts", deps.CartHandler.Counts)
	api.Get("/toasts", deps.ToastHandler.List)
	api.Post("/toasts/:id/pause", deps.ToastHandler.Pause)
	api.Post("/toasts/:id/resume", deps.ToastHandler.Resume)
	api.Post("/toasts/:id/dismiss", deps.ToastHandler.Dismiss)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	applog.Background("server.start", map[string]any{"port": cfg.Port, "store": cfg.StoreBackend, "api": cfg.APIBaseURL})
	log.Fatal(app.Listen(":" + cfg.Port))
}

// openSlots picks the slot store named by STORE_BACKEND.
func openSlots(cfg config.Config) (repos.SlotStore, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		r, err := repos.NewRedisSlots(cfg.RedisURL, cfg.SlotTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[store] redis slot store")
		return r, func() { _ = r.Close() }, nil
	default:
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return repos.NewSlotRepo(db), func() { _ = db.Close() }, nil
	}
}
