package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
)

type memUsers map[uuid.UUID]*models.User

func (m memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.ChatSession
	messages map[uuid.UUID][]models.ChatMessage
	nextID   int64
	failRole models.Role
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[uuid.UUID]*models.ChatSession{}, messages: map[uuid.UUID][]models.ChatMessage{}}
}

func (m *memSessions) Create(ctx context.Context, s *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) SetBookmark(ctx context.Context, id uuid.UUID, bookmarked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsBookmarked = bookmarked
	return nil
}

func (m *memSessions) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRole != "" && msg.Role == m.failRole {
		return io.ErrUnexpectedEOF
	}
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Now()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

func (m *memSessions) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatMessage(nil), m.messages[sessionID]...), nil
}

type memClaims struct {
	mu     sync.Mutex
	claims map[uuid.UUID]models.ClaimCheck
	err    error
}

func newMemClaims() *memClaims { return &memClaims{claims: map[uuid.UUID]models.ClaimCheck{}} }

func (m *memClaims) Create(ctx context.Context, cc *models.ClaimCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cc.ID = uuid.New()
	cc.CreatedAt = time.Now()
	m.claims[cc.ID] = *cc
	return nil
}

func (m *memClaims) GetByID(ctx context.Context, id uuid.UUID) (*models.ClaimCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cc, nil
}

type memBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memBlobs) Upload(ctx context.Context, fileID uuid.UUID, filename string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	path := "attachments/" + fileID.String() + "_" + filename
	m.files[path] = buf.Bytes()
	return path, nil
}

func (m *memBlobs) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[storagePath]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type memAttachments struct {
	mu   sync.Mutex
	rows []models.Attachment
}

func (m *memAttachments) Create(ctx context.Context, a *models.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAttachments) GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAttachments) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attachment
	for _, a := range m.rows {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// stubRunner returns a fixed result and records its inputs.
type stubRunner struct {
	mu     sync.Mutex
	result *TurnResult
	err    error
	inputs []TurnInput
}

func (s *stubRunner) Run(ctx context.Context, in TurnInput) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	return &r, nil
}
