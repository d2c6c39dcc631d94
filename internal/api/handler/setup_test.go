package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/api/middleware"
	"github.com/talktojesus/api_server/internal/pkg/google"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/repository"
	"github.com/talktojesus/api_server/internal/service"
	"github.com/talktojesus/api_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testJWTSecret     = "test-secret-key"
	testWebhookSecret = "whsec_handler"
)

type fakeIdentityVerifier struct {
	identities map[string]*google.Identity
}

func (f *fakeIdentityVerifier) Verify(ctx context.Context, rawIDToken string) (*google.Identity, error) {
	if id, ok := f.identities[rawIDToken]; ok {
		return id, nil
	}
	return nil, errors.New("bad token")
}

// testApp wires every service the handlers need on an in-memory database.
type testApp struct {
	db            *gorm.DB
	cfg           *config.Config
	provider      *razorpay.MockClient
	entitlement   *service.EntitlementService
	usage         *service.UsageService
	auth          *service.AuthService
	users         *service.UserService
	plans         *service.PlanService
	subscriptions *service.SubscriptionService
	webhooks      *service.WebhookService
	songs         *service.SongService
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		JWT:    config.JWTConfig{Secret: testJWTSecret, ExpireHours: 24},
		Upload: config.UploadConfig{MaxSize: 1024},
	}
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	provider := razorpay.NewMockClient()

	entCfg := service.NewEntitlementConfig(cfg.Entitlement)
	reconciler := service.NewReconcileService(subRepo, provider, nil, logger)
	verifier := &fakeIdentityVerifier{identities: map[string]*google.Identity{
		"good-token": {Subject: "42", Email: "maria@example.com", EmailVerified: true, Name: "Maria"},
	}}

	return &testApp{
		db:            db,
		cfg:           cfg,
		provider:      provider,
		entitlement:   service.NewEntitlementService(userRepo, subRepo, entCfg, logger),
		usage:         service.NewUsageService(userRepo, logger),
		auth:          service.NewAuthService(userRepo, verifier, cfg, logger),
		users:         service.NewUserService(userRepo, entCfg.FreeLimit),
		plans:         service.NewPlanService(planRepo, false),
		subscriptions: service.NewSubscriptionService(planRepo, subRepo, provider, reconciler, nil, logger),
		webhooks: service.NewWebhookService(
			razorpay.NewVerifier(testWebhookSecret, logger),
			reconciler,
			repository.NewWebhookEventRepository(db),
			logger,
		),
		songs: service.NewSongService(repository.NewSongRepository(db), logger),
	}
}

// asUser injects an authenticated user id, standing in for middleware.Auth.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
