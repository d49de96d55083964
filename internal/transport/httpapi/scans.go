package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentri/retail-security/internal/application"
	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/ports"
	"go.uber.org/zap"
)

const (
	// streamBuffer is how many records a slow stream subscriber may lag
	// behind before further records are dropped for it
	streamBuffer = 32
	heartbeat    = 15 * time.Second
)

// ScanHandler exposes the scoring engine and the scan history over HTTP.
type ScanHandler struct {
	scans  *application.ScanService
	chat   *application.ChatService
	mail   ports.MailReader
	logger *zap.Logger
}

// NewScanHandler creates a new ScanHandler. chat may be nil, in which case
// clearing only wipes the scan history.
func NewScanHandler(scans *application.ScanService, chat *application.ChatService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, chat: chat, logger: logger}
}

// SetMailReader enables POST /scans/eml.
func (h *ScanHandler) SetMailReader(mail ports.MailReader) {
	h.mail = mail
}

// Register mounts the scan routes on the given router group.
func (h *ScanHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/scans")
	{
		s.POST("", h.Create)
		s.POST("/eml", h.CreateFromEML)
		s.GET("", h.List)
		s.DELETE("", h.Clear)
		s.GET("/high-risk", h.HighRisk)
		s.GET("/critical", h.Critical)
		s.GET("/today", h.Today)
		s.GET("/stats", h.Stats)
		s.GET("/stream", h.Stream)
	}
}

type scanRequest struct {
	Kind    string `json:"kind" binding:"required"`
	RawText string `json:"rawText"`
	UserID  int64  `json:"userId"`
}

// Create handles POST /scans: scores the input and stores the record.
func (h *ScanHandler) Create(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, err := domain.ParseScanKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.scans.Scan(c.Request.Context(), req.UserID, kind, req.RawText)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("scan", zap.String("kind", req.Kind), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// CreateFromEML handles POST /scans/eml: the body is a raw RFC 5322 message
// that is converted to text and scanned as an email.
func (h *ScanHandler) CreateFromEML(c *gin.Context) {
	if h.mail == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "eml ingestion is not enabled"})
		return
	}

	var userID int64
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be an integer"})
			return
		}
		userID = id
	}

	text, err := h.mail.ReadMessage(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message: " + err.Error()})
		return
	}

	rec, err := h.scans.Scan(c.Request.Context(), userID, domain.KindEmail, text)
	if err != nil {
		h.logger.Error("eml scan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// List handles GET /scans: most recent first, optionally filtered by
// userId and level and capped by limit.
func (h *ScanHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	keep := make([]func(domain.ScanRecord) bool, 0, 2)

	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be an integer"})
			return
		}
		keep = append(keep, func(r domain.ScanRecord) bool { return r.UserID == userID })
	}

	if raw := c.Query("level"); raw != "" {
		level, ok := parseLevel(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be one of low, medium, high, critical"})
			return
		}
		keep = append(keep, func(r domain.ScanRecord) bool { return r.RiskLevel == level })
	}

	records := make([]domain.ScanRecord, 0)
	for _, r := range h.scans.History().GetAll() {
		if matchesAll(r, keep) {
			records = append(records, r)
		}
		if limit > 0 && len(records) == limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// HighRisk handles GET /scans/high-risk.
func (h *ScanHandler) HighRisk(c *gin.Context) {
	records := h.scans.History().GetHighRiskScans()
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// Critical handles GET /scans/critical.
func (h *ScanHandler) Critical(c *gin.Context) {
	records := h.scans.History().GetCriticalScans()
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// Today handles GET /scans/today.
func (h *ScanHandler) Today(c *gin.Context) {
	records := h.scans.History().GetTodayScans()
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// Stats handles GET /scans/stats.
func (h *ScanHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.scans.History().GetStats())
}

// Clear handles DELETE /scans?confirm=true: wipes scans and conversations.
func (h *ScanHandler) Clear(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clearing history requires confirm=true"})
		return
	}

	h.scans.Clear()
	if h.chat != nil {
		h.chat.Clear()
	}
	h.logger.Warn("history cleared", zap.String("client_ip", c.ClientIP()))

	c.Status(http.StatusNoContent)
}

// Stream handles GET /scans/stream: a server-sent event per stored scan.
// A "ready" event is sent once the subscription is live.
func (h *ScanHandler) Stream(c *gin.Context) {
	events := make(chan domain.ScanRecord, streamBuffer)
	unsubscribe := h.scans.History().OnAdd(func(rec domain.ScanRecord) {
		// Runs under the store lock: never block here.
		select {
		case events <- rec:
		default:
			h.logger.Warn("scan stream subscriber lagging, dropping record", zap.Int64("scan_id", rec.ID))
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"status": "subscribed"})
	c.Writer.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case rec := <-events:
			c.SSEvent("scan", rec)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func parseLevel(raw string) (domain.RiskLevel, bool) {
	for _, l := range domain.RiskLevels {
		if string(l) == raw {
			return l, true
		}
	}
	return "", false
}

func matchesAll(r domain.ScanRecord, keep []func(domain.ScanRecord) bool) bool {
	for _, k := range keep {
		if !k(r) {
			return false
		}
	}
	return true
}
