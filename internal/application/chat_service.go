package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sentri/retail-security/internal/conversation"
	"github.com/sentri/retail-security/internal/domain"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned when a chat turn carries no text
var ErrEmptyMessage = errors.New("message is empty")

// ChatReply is the result of one chat turn
type ChatReply struct {
	ConversationID int64              `json:"conversationId"`
	Reply          string             `json:"reply"`
	ToolUsed       domain.ToolUsed    `json:"toolUsed"`
	ScanResult     *domain.ScanRecord `json:"scanResult,omitempty"`
}

// ChatService answers chat messages, running a scan when the message
// carries something scannable and a canned guidance reply otherwise
type ChatService struct {
	scans         *ScanService
	conversations *conversation.Store
	logger        *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(scans *ScanService, conversations *conversation.Store, logger *zap.Logger) *ChatService {
	return &ChatService{scans: scans, conversations: conversations, logger: logger}
}

// Reply handles one user message. The reply is built first; only then are
// the message and the reply appended to the user's conversation, so a failed
// scan leaves the transcript untouched. A scan reply references the stored record.
func (s *ChatService) Reply(ctx context.Context, userID int64, message string) (ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, ErrEmptyMessage
	}

	reply := ChatReply{ToolUsed: domain.ToolNone}

	if r, ok := routeMessage(message); ok {
		rec, err := s.scans.Scan(ctx, userID, r.kind, r.input)
		if err != nil {
			return ChatReply{}, fmt.Errorf("chat %s: %w", r.tool, err)
		}
		reply.Reply = scanReply(r, rec)
		reply.ToolUsed = r.tool
		reply.ScanResult = &rec
	} else {
		lower := strings.ToLower(message)
		if wantsScan(lower) {
			reply.Reply = scanPrompt(lower)
		} else {
			reply.Reply = topicReply(lower)
		}
	}

	conv := s.conversations.GetOrCreate(userID)
	reply.ConversationID = conv.ID

	if _, err := s.conversations.AddMessage(conv.ID, domain.RoleUser, message, "", nil); err != nil {
		return ChatReply{}, fmt.Errorf("store user message: %w", err)
	}
	if _, err := s.conversations.AddMessage(conv.ID, domain.RoleAssistant, reply.Reply, reply.ToolUsed, reply.ScanResult); err != nil {
		return ChatReply{}, fmt.Errorf("store assistant message: %w", err)
	}

	chatTurnsTotal.WithLabelValues(string(reply.ToolUsed)).Inc()
	s.logger.Debug("chat turn",
		zap.Int64("user_id", userID),
		zap.Int64("conversation_id", conv.ID),
		zap.String("tool", string(reply.ToolUsed)),
	)
	return reply, nil
}

// Transcript returns the user's conversation, if one exists
func (s *ChatService) Transcript(userID int64) (domain.Conversation, bool) {
	return s.conversations.FindByUser(userID)
}

// Clear wipes every conversation
func (s *ChatService) Clear() {
	s.conversations.Clear()
	s.logger.Info("conversations cleared")
}
