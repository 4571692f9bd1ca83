package e2e

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/journalforge/api/internal/analyzer"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/handler"
	"github.com/journalforge/api/internal/middleware"
	"github.com/journalforge/api/internal/parser"
	"github.com/journalforge/api/internal/service"
	"github.com/journalforge/api/internal/steps"
	ws "github.com/journalforge/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
	svc *service.JobService
}

// setupApp creates a Fiber app wired like main.go but with no model API key,
// so every pipeline runs on mock responses, and with a throwaway data dir.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Redis (localhost); the rate limiter fails open when it is absent.
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	validate := validator.New()

	pipelineCfg := config.PipelineConfig{
		DataDir:          t.TempDir(),
		JournalDays:      3,
		ParserRetries:    2,
		ParserBackoffMS:  1,
		FindingsLight:    2,
		FindingsStandard: 3,
		FindingsDeep:     4,
	}
	analyzerCfg := config.AnalyzerConfig{
		WeightResearch: 30, WeightContent: 40, WeightVisual: 15, WeightDocument: 15,
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	// No LLM client → executors fall back to mock responses.
	structParser := parser.New(logger,
		parser.WithRetries(pipelineCfg.ParserRetries),
		parser.WithBackoff(time.Duration(pipelineCfg.ParserBackoffMS)*time.Millisecond),
	)
	executors := steps.All(steps.Deps{
		Parser: structParser,
		Config: pipelineCfg,
		Logger: logger,
	})
	projectAnalyzer := analyzer.New(pipelineCfg, analyzerCfg, logger)
	jobService := service.NewJobService(pipelineCfg, executors, hub, projectAnalyzer, logger)

	jobHandler := handler.NewJobHandler(jobService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"llmConfigured": false,
			"gatewayAuth":   false,
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Very high rate limits so tests don't get blocked
	journals := api.Group("/journals")
	journals.Post("/generate", rateLimiter.GenerateLimit(10000), jobHandler.Create)

	jobs := api.Group("/jobs")
	jobs.Get("/", jobHandler.List)
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Post("/cancel/:jobId", jobHandler.Cancel)

	projects := api.Group("/projects")
	projects.Post("/analyze", rateLimiter.AnalyzeLimit(10000), jobHandler.Analyze)

	return &testApp{app: app, svc: jobService}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	m := middleware.NewAuthMiddleware(testJWTSecret)
	token, err := m.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForJob polls the status endpoint until the job reaches a terminal state.
func waitForJob(t *testing.T, ta *testApp, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doAuthRequest(t, ta.app, "GET", "/api/jobs/"+jobID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		result := parseJSON(t, resp)
		switch result["status"] {
		case "completed", "failed", "cancelled",
			"research_completed", "content_completed", "media_completed", "pdf_completed":
			return result
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}
