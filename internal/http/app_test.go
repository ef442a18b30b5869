package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"shopfront/internal/config"
	"shopfront/internal/http/handlers"
	applog "shopfront/internal/log"
	"shopfront/internal/repos"
)

// fakeAPI stands in for the remote REST server.
type fakeAPI struct {
	*httptest.Server
	mu          sync.Mutex
	calls       map[string]int
	meStatus    int
	usersStatus int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{calls: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.calls[path]++
		meStatus, usersStatus := f.meStatus, f.usersStatus
		f.mu.Unlock()

		switch {
		case path == "/auth/login":
			if body["email"] != "ada@example.com" || body["password"] != "Passw0rd!" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"token":"tok-ada","user":{"id":7,"username":"ada","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}}`))
		case path == "/auth/me":
			if meStatus != 0 {
				w.WriteHeader(meStatus)
				return
			}
			if r.Header.Get("Authorization") != "Bearer tok-ada" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":7,"username":"ada","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}}`))
		case path == "/users":
			if usersStatus != 0 {
				w.WriteHeader(usersStatus)
				return
			}
			_, _ = w.Write([]byte(`[{"id":7,"username":"ada","email":"ada@example.com","active":true},{"id":8,"username":"<b>bob</b>","email":"bob@example.com"}]`))
		case path == "/users/register":
			_, _ = w.Write([]byte(`{"success":true,"message":"Registered"}`))
		case path == "/users/verify/email":
			if body["otp"] != "123456" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"success":true}`))
		case strings.HasPrefix(path, "/users/resend/email-verification/"):
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) set(me, users int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meStatus, f.usersStatus = me, users
}

// testEnv is the full app wired like main, plus a cookie jar for one browser.
type testEnv struct {
	t     *testing.T
	app   *fiber.App
	api   *fakeAPI
	deps  *handlers.Deps
	slots repos.SlotStore
	jar   map[string]string
}

type envOpts struct {
	loginMax int
}

func newEnv(t *testing.T, opts ...envOpts) *testEnv {
	t.Helper()
	o := envOpts{loginMax: 100}
	if len(opts) > 0 {
		o = opts[0]
	}

	api := newFakeAPI(t)
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	slots := repos.NewSlotRepo(db)

	cfg := config.Defaults()
	cfg.APIBaseURL = api.URL + "/api/v1"
	cfg.APITimeout = 2 * time.Second
	cfg.TokenSecret = "handlers-test-secret"
	cfg.ToastDuration = time.Minute
	deps := handlers.NewDeps(slots, cfg)

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Something went wrong. Please try again."})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
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
	app.Use(handlers.Session(deps.Auth, deps.Shelf, deps.Toasts))

	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/page/:name", deps.PageHandler.Show)
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/cart/clear", deps.CartHandler.Clear)
	app.Get("/wishlist", deps.WishlistHandler.List)
	app.Post("/wishlist/toggle", deps.WishlistHandler.Toggle)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        o.loginMax,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)
	app.Get("/register", deps.RegisterHandler.Form)
	app.Post("/register", deps.RegisterHandler.Submit)
	app.Post("/register/step/:n", deps.RegisterHandler.Step)
	app.Post("/register/verify", deps.RegisterHandler.Verify)
	app.Post("/register/resend", deps.RegisterHandler.Resend)
	api1 := app.Group("/api/v1")
	api1.Get("/counts", deps.CartHandler.Counts)
	api1.Get("/toasts", deps.ToastHandler.List)
	api1.Post("/toasts/:id/pause", deps.ToastHandler.Pause)
	api1.Post("/toasts/:id/resume", deps.ToastHandler.Resume)
	api1.Post("/toasts/:id/dismiss", deps.ToastHandler.Dismiss)
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})

	env := &testEnv{t: t, app: app, api: api, deps: deps, slots: slots, jar: map[string]string{}}
	env.get("/login") // csrf cookie
	if env.jar["csrf_"] == "" {
		t.Fatal("csrf token missing")
	}
	return env
}

func (e *testEnv) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	for k, v := range e.jar {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		e.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(e.jar, c.Name)
			continue
		}
		e.jar[c.Name] = c.Value
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) get(path string) (*http.Response, string) {
	return e.do(httptest.NewRequest("GET", path, nil))
}

// post sends a form with the csrf field filled in.
func (e *testEnv) post(path string, form url.Values) (*http.Response, string) {
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form["csrf"]; !ok {
		form.Set("csrf", e.jar["csrf_"])
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) postJSON(path string, form url.Values) (*http.Response, map[string]any) {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", e.jar["csrf_"])
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, body := e.do(req)
	var out map[string]any
	_ = json.Unmarshal([]byte(body), &out)
	return resp, out
}

func (e *testEnv) login() {
	e.t.Helper()
	resp, _ := e.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"Passw0rd!"}})
	if resp.StatusCode != http.StatusFound {
		e.t.Fatalf("login: expected redirect, got %d", resp.StatusCode)
	}
}

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	UserID int64                  `json:"user_id"`
	Fields map[string]interface{} `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
