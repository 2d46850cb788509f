package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trueai/go-detect-backend/internal/config"
	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/llm"
	"github.com/trueai/go-detect-backend/internal/staging"
)

func init() { gin.SetMode(gin.TestMode) }

type noopStore struct{}

func (noopStore) Upload(ctx context.Context, path string, kind domain.MediaKind) (string, error) {
	return "https://cdn.example/x", nil
}
func (noopStore) Destroy(ctx context.Context, publicID, resourceType string) error { return nil }

type noopClassifier struct{}

func (noopClassifier) Classify(ctx context.Context, path, mimeType string, kind domain.MediaKind) llm.Outcome {
	return llm.Outcome{Verdict: domain.Verdict{Label: domain.LabelReal, Confidence: 1}}
}

// testEngine builds a fully registered router. The Mongo client is never
// dialed by the routes these tests exercise; the driver connects lazily.
func testEngine(t *testing.T) *gin.Engine {
	t.Helper()

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("mongo client: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Clerk.WebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

	r := gin.New()
	err = RegisterRoutes(r, Deps{
		DB:         client.Database("trueai_test"),
		Store:      noopStore{},
		Classifier: noopClassifier{},
		Staging:    staging.NewStore(t.TempDir()),
	}, cfg)
	if err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := testEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := testEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("expected prometheus exposition output")
	}
}

func TestUnknownRoute(t *testing.T) {
	r := testEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Errorf("body = %s", w.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := testEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/chats", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

// The email-required check happens before any database access, so this
// exercises the mounted chat route end to end without a live Mongo.
func TestListChatsRequiresEmailThroughRouter(t *testing.T) {
	r := testEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
