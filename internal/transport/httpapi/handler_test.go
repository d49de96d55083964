package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentri/retail-security/internal/adapters/mailfile"
	"github.com/sentri/retail-security/internal/application"
	"github.com/sentri/retail-security/internal/conversation"
	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/domain/detection"
	"github.com/sentri/retail-security/internal/history"
	"github.com/sentri/retail-security/internal/transport/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phishingURL = "https://amaz0n-deals.malicious-site.com/login?redirect=checkout"

type testAPI struct {
	router *gin.Engine
	scans  *application.ScanService
	chat   *application.ChatService
}

func setupRouter(t *testing.T, cfg httpapi.RouterConfig) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scans := application.NewScanService(detection.NewAnalyzer(), history.NewStore(), zap.NewNop())
	chat := application.NewChatService(scans, conversation.NewStore(), zap.NewNop())
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}
	return testAPI{
		router: httpapi.NewRouter(t.Context(), cfg, scans, chat, zap.NewNop()),
		scans:  scans,
		chat:   chat,
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Scans []domain.ScanRecord `json:"scans"`
	Count int                 `json:"count"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) listResponse {
	t.Helper()
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateScan_201(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	w := doJSON(t, api.router, http.MethodPost, "/api/v1/scans", map[string]any{
		"kind":    "link",
		"rawText": phishingURL,
		"userId":  3,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec domain.ScanRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, int64(3), rec.UserID)
	assert.Equal(t, 10, rec.RiskScore)
	assert.Equal(t, domain.LevelCritical, rec.RiskLevel)
	assert.Equal(t, "BLOCK IMMEDIATELY", rec.Verdict)
}

func TestCreateScan_400(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"unsupported kind", map[string]any{"kind": "sms", "rawText": "hi"}, "unsupported scan kind"},
		{"missing kind", map[string]any{"rawText": "hi"}, "Kind"},
		{"malformed body", "not an object", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupRouter(t, httpapi.RouterConfig{})

			w := doJSON(t, api.router, http.MethodPost, "/api/v1/scans", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Empty(t, api.scans.History().GetAll())
		})
	}
}

func TestCreateScanFromEML(t *testing.T) {
	raw := "From: Billing <billing@paypa1.com>\r\n" +
		"To: store@example.com\r\n" +
		"Subject: Overdue invoice\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Your payment failed. Click here to update your payment details.\r\n"

	api := setupRouter(t, httpapi.RouterConfig{MailReader: mailfile.NewEMLReader()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/eml?userId=12", strings.NewReader(raw))
	req.Header.Set("Content-Type", "message/rfc822")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec domain.ScanRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.KindEmail, rec.Kind)
	assert.Equal(t, int64(12), rec.UserID)
	assert.Contains(t, rec.Input, "Subject: Overdue invoice")
	assert.Contains(t, rec.Indicators, detection.IndicatorSenderDomain)
}

func TestCreateScanFromEML_Disabled(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/eml", strings.NewReader("Subject: hi\r\n\r\nhello"))
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestListScans_Filters(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})
	ctx := context.Background()

	_, err := api.scans.Scan(ctx, 1, domain.KindLink, phishingURL)
	require.NoError(t, err)
	_, err = api.scans.Scan(ctx, 2, domain.KindLink, "https://www.amazon.com/dp/B09V3KXJPB")
	require.NoError(t, err)
	_, err = api.scans.Scan(ctx, 1, domain.KindLink, "https://example.com")
	require.NoError(t, err)

	tests := []struct {
		query   string
		wantIDs []int64
	}{
		{"", []int64{3, 2, 1}},
		{"?limit=2", []int64{3, 2}},
		{"?userId=1", []int64{3, 1}},
		{"?userId=1&limit=1", []int64{3}},
		{"?level=critical", []int64{1}},
		{"?level=low&userId=2", []int64{2}},
		{"?limit=0", []int64{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doJSON(t, api.router, http.MethodGet, "/api/v1/scans"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			resp := decodeList(t, w)
			ids := make([]int64, 0, len(resp.Scans))
			for _, r := range resp.Scans {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Count)
		})
	}
}

func TestListScans_BadQuery(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	for _, q := range []string{"?limit=-1", "?limit=ten", "?userId=abc", "?level=severe"} {
		w := doJSON(t, api.router, http.MethodGet, "/api/v1/scans"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestFilteredViewsAndStats(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})
	ctx := context.Background()

	_, err := api.scans.Scan(ctx, 1, domain.KindLink, phishingURL)
	require.NoError(t, err)
	_, err = api.scans.Scan(ctx, 1, domain.KindLink, "https://www.amazon.com/dp/B09V3KXJPB")
	require.NoError(t, err)

	for path, want := range map[string]int{
		"/api/v1/scans/high-risk": 1,
		"/api/v1/scans/critical":  1,
		"/api/v1/scans/today":     2,
	} {
		w := doJSON(t, api.router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, want, decodeList(t, w).Count, path)
	}

	w := doJSON(t, api.router, http.MethodGet, "/api/v1/scans/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats domain.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByLevel[domain.LevelCritical])
	assert.Equal(t, 1, stats.ByLevel[domain.LevelLow])
	assert.Equal(t, 2, stats.ByKind[domain.KindLink])
	assert.Equal(t, 5.5, stats.AvgRiskScore)
}

func TestClear_RequiresConfirm(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})
	ctx := context.Background()

	_, err := api.scans.Scan(ctx, 1, domain.KindLink, phishingURL)
	require.NoError(t, err)
	_, err = api.chat.Reply(ctx, 1, "help")
	require.NoError(t, err)

	w := doJSON(t, api.router, http.MethodDelete, "/api/v1/scans", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, api.scans.History().GetAll(), 1)

	w = doJSON(t, api.router, http.MethodDelete, "/api/v1/scans?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, api.scans.History().GetAll())
	_, ok := api.chat.Transcript(1)
	assert.False(t, ok)

	rec, err := api.scans.Scan(ctx, 1, domain.KindLink, phishingURL)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID, "ids restart after a clear")
}

func TestChat_Send(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	w := doJSON(t, api.router, http.MethodPost, "/api/v1/chat", map[string]any{
		"userId":  9,
		"message": "is this safe? " + phishingURL,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reply application.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, domain.ToolLinkScan, reply.ToolUsed)
	require.NotNil(t, reply.ScanResult)
	assert.Equal(t, domain.LevelCritical, reply.ScanResult.RiskLevel)
	assert.Len(t, api.scans.History().GetByUserID(9), 1)
}

func TestChat_SendInvalid(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	for _, body := range []map[string]any{
		{"userId": 1},
		{"userId": 1, "message": "   "},
	} {
		w := doJSON(t, api.router, http.MethodPost, "/api/v1/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestChat_Transcript(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})

	w := doJSON(t, api.router, http.MethodGet, "/api/v1/chat/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, api.router, http.MethodGet, "/api/v1/chat/five", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := api.chat.Reply(context.Background(), 5, "how do I report an incident?")
	require.NoError(t, err)

	w = doJSON(t, api.router, http.MethodGet, "/api/v1/chat/5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var conv domain.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, int64(5), conv.UserID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[1].Role)
}

func TestStream_PublishesScans(t *testing.T) {
	api := setupRouter(t, httpapi.RouterConfig{})
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/scans/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := bufio.NewReader(resp.Body)
	readEvent(t, events, "ready")

	rec, err := api.scans.Scan(context.Background(), 4, domain.KindLink, phishingURL)
	require.NoError(t, err)

	var streamed domain.ScanRecord
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, events, "scan")), &streamed))
	assert.Equal(t, rec.ID, streamed.ID)
	assert.Equal(t, rec.RiskScore, streamed.RiskScore)
}

// readEvent skips ahead to the next event with the given name and returns its data.
func readEvent(t *testing.T, r *bufio.Reader, name string) string {
	t.Helper()
	found := false
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "event:"):
			found = strings.TrimSpace(strings.TrimPrefix(line, "event:")) == name
		case found && strings.HasPrefix(line, "data:"):
			return strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
