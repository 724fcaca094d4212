package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// ConversationStore is the storage surface the conversation endpoints need.
type ConversationStore interface {
	CreateAnalysis(ctx context.Context, conversationName, companyName string, attrs map[string]any) (*models.Conversation, *models.Company, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
}

type CompanyService struct {
	store ConversationStore
	log   *logrus.Entry
	now   func() time.Time
}

func NewCompanyService(store ConversationStore, log *logrus.Entry) *CompanyService {
	if log == nil {
		log = logrus.WithField("component", "company_service")
	}
	return &CompanyService{store: store, log: log, now: time.Now}
}

// ConversationName is the display name given to a new analysis conversation.
func ConversationName(company string, at time.Time) string {
	return fmt.Sprintf("%s analysis - %s", company, at.Format("02/01/2006"))
}

// ProcessCompany opens a new conversation about a company and records the
// company against it.
func (s *CompanyService) ProcessCompany(ctx context.Context, req models.ProcessCompanyRequest) (*models.ProcessCompanyResponse, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return nil, fmt.Errorf("%w: company_name is required", ErrInvalidInput)
	}
	now := s.now()

	conv, company, err := s.store.CreateAnalysis(ctx, ConversationName(name, now), name, nil)
	if err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"company":         name,
		"company_id":      company.ID,
		"conversation_id": conv.ID,
	}).Info("company processed")

	return &models.ProcessCompanyResponse{
		Success:        true,
		Message:        fmt.Sprintf("Successfully processed company: %s", name),
		CompanyName:    name,
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		ProcessedAt:    now.UTC().Format(time.RFC3339),
	}, nil
}

// ListConversations returns conversations newest first.
func (s *CompanyService) ListConversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *CompanyService) Messages(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.StoredMessage{}
	}
	return msgs, nil
}
