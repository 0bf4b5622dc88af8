// Package apitest provides an in-memory Engineering ToolBox backend built on
// fiber. Tests run it on a loopback listener; cmd/devapi serves it for demos.
package apitest

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"toolbox/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSecret signs tokens unless WithSecret is given.
const DefaultSecret = "toolbox-dev-secret"

type account struct {
	user  models.User
	hash  []byte
	saved []models.ID
}

// Backend holds all state of the fake API.
type Backend struct {
	mu  sync.Mutex
	app *fiber.App

	secret []byte
	now    func() time.Time

	accounts map[models.ID]*account
	posts    []*models.Post
	comments map[models.ID][]*models.Comment
	chats    []*models.Chat
	formulas []models.Formula
	solvers  map[models.ID]map[string]Solver

	calls  map[string]int
	faults map[string][]int
}

type options struct {
	secret     string
	now        func() time.Time
	middleware []fiber.Handler
}

// Option configures a Backend.
type Option func(*options)

// WithSecret sets the HS256 signing secret.
func WithSecret(secret string) Option {
	return func(o *options) { o.secret = secret }
}

// WithClock replaces time.Now for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMiddleware installs handlers ahead of every route.
func WithMiddleware(h ...fiber.Handler) Option {
	return func(o *options) { o.middleware = append(o.middleware, h...) }
}

// New builds a backend with the formula catalogue loaded and no users.
func New(opts ...Option) *Backend {
	o := options{secret: DefaultSecret, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{
		secret:   []byte(o.secret),
		now:      o.now,
		accounts: make(map[models.ID]*account),
		comments: make(map[models.ID][]*models.Comment),
		solvers:  make(map[models.ID]map[string]Solver),
		calls:    make(map[string]int),
		faults:   make(map[string][]int),
	}
	b.loadCatalogue()

	b.app = fiber.New(fiber.Config{
		AppName:               "ToolBox Dev API",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return respondError(c, code, err.Error())
		},
	})
	b.app.Use(b.countAndInject)
	for _, h := range o.middleware {
		b.app.Use(h)
	}
	b.routes()
	return b
}

// App exposes the fiber app, e.g. to mount a metrics endpoint.
func (b *Backend) App() *fiber.App {
	return b.app
}

// Serve accepts connections on ln until Shutdown.
func (b *Backend) Serve(ln net.Listener) error {
	return b.app.Listener(ln)
}

// Shutdown stops the server.
func (b *Backend) Shutdown(ctx context.Context) error {
	return b.app.ShutdownWithContext(ctx)
}

// NewServer starts a backend on a loopback port and returns it with its base
// URL. The server stops when the test ends.
func NewServer(t testing.TB, opts ...Option) (*Backend, string) {
	t.Helper()
	b := New(opts...)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("apitest: listen: %v", err)
	}
	go func() { _ = b.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})
	return b, "http://" + ln.Addr().String()
}

// Calls returns how many requests reached method and path, injected failures
// included.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// FailNext makes the next len(statuses) requests to method and path fail with
// the given statuses, in order.
func (b *Backend) FailNext(method, path string, statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.faults[key] = append(b.faults[key], statuses...)
}

func (b *Backend) countAndInject(c *fiber.Ctx) error {
	key := c.Method() + " " + c.Path()
	b.mu.Lock()
	b.calls[key]++
	var status int
	if q := b.faults[key]; len(q) > 0 {
		status, b.faults[key] = q[0], q[1:]
	}
	b.mu.Unlock()

	if status != 0 {
		if status == fiber.StatusTooManyRequests {
			c.Set(fiber.HeaderRetryAfter, "0")
		}
		return respondError(c, status, "Injected failure")
	}
	return c.Next()
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// TokenFor signs a session token for the user with id.
func (b *Backend) TokenFor(id models.ID) string {
	b.mu.Lock()
	acc := b.accounts[id]
	b.mu.Unlock()
	if acc == nil {
		return ""
	}
	tok, err := b.sign(acc.user)
	if err != nil {
		return ""
	}
	return tok
}

func (b *Backend) sign(u models.User) (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"sub": string(u.MongoID),
		"iss": "toolbox-devapi",
		"iat": now.Unix(),
		"exp": now.Add(7 * 24 * time.Hour).Unix(),
		"user": map[string]any{
			"_id":      string(u.MongoID),
			"username": u.Username,
			"email":    u.Email,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// userFromToken returns the account id behind a bearer header, if valid.
func (b *Backend) userFromToken(header string) (models.ID, bool) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", false
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	id := models.ID(sub)
	b.mu.Lock()
	_, exists := b.accounts[id]
	b.mu.Unlock()
	return id, exists
}

// authRequired rejects requests without a valid token and stores the user id
// in locals.
func (b *Backend) authRequired(c *fiber.Ctx) error {
	id, ok := b.userFromToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, "Authorization required")
	}
	c.Locals("userID", id)
	return c.Next()
}

// optionalUser stores the user id when a valid token is present.
func (b *Backend) optionalUser(c *fiber.Ctx) error {
	if id, ok := b.userFromToken(c.Get(fiber.HeaderAuthorization)); ok {
		c.Locals("userID", id)
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) models.ID {
	id, _ := c.Locals("userID").(models.ID)
	return id
}
