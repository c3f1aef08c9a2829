package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dom/foodorder-backend/internal/api"
	"github.com/dom/foodorder-backend/internal/config"
	"github.com/dom/foodorder-backend/internal/repository"
	repoPostgres "github.com/dom/foodorder-backend/internal/repository/postgres"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/dom/foodorder-backend/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_foodorder"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB.DB = db
	testDB.DSN = dsn
	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"transactions", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// NewSQLiteDB opens a migrated SQLite store in a temp dir. It backs unit tests
// that need real persistence but not PostgreSQL.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "foodorder.db")
	db, err := repoPostgres.NewConnection("sqlite://"+path, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// TestConfig returns a configuration suitable for testing. Upstream URLs are
// left empty; NewTestServer points them at fakes.
func TestConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Environment:     "test",
		BaseURL:         "http://localhost:8000",
		FrontendURL:     "http://frontend.test",
		AllowedOrigins:  []string{"http://frontend.test"},
		JWTSecret:       "test-jwt-secret-key-for-testing-only",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		WebPay: config.WebPay{
			CommerceCode: "597055555532",
			APIKey:       "test-api-key",
			Environment:  "INTEGRATION",
		},
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Config   *config.Config

	WebPay        *FakeWebPay
	Google        *FakeGoogle
	OpenFoodFacts *FakeOpenFoodFacts
}

// NewTestServer creates a complete test server wired to fake upstreams.
// Options run after the fakes are wired and may override any setting.
func NewTestServer(t *testing.T, opts ...func(*config.Config)) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)

	webPay := NewFakeWebPay(t)
	google := NewFakeGoogle(t)
	off := NewFakeOpenFoodFacts(t)

	cfg := TestConfig()
	cfg.WebPay.BaseURL = webPay.URL()
	cfg.Google = google.Config()
	cfg.OpenFoodFacts = off.Config()
	for _, opt := range opts {
		opt(cfg)
	}

	repos := repoPostgres.NewRepositories(testDB.DB)
	hub := websocket.NewHub()
	go hub.Run()

	services := service.NewServices(repos, cfg, hub)
	router := api.NewRouter(services, hub, cfg)

	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return &TestServer{
		Server:        server,
		DB:            testDB,
		Repos:         repos,
		Services:      services,
		Hub:           hub,
		Config:        cfg,
		WebPay:        webPay,
		Google:        google,
		OpenFoodFacts: off,
	}
}

// URL returns the full URL for a given path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// WebSocketURL returns the status stream URL for a transaction token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http")
	return fmt.Sprintf("%s/api/transactions/%s/ws", wsURL, token)
}

// Client returns an HTTP client that does not follow redirects, so tests can
// inspect 307 responses and Set-Cookie headers directly.
func (ts *TestServer) Client() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
