package models

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// IndexJobStatus represents the status of an index job
type IndexJobStatus string

const (
	IndexJobPending    IndexJobStatus = "pending"
	IndexJobInProgress IndexJobStatus = "in_progress"
	IndexJobCompleted  IndexJobStatus = "completed"
	IndexJobFailed     IndexJobStatus = "failed"
)

// IndexPayload is the snapshot of a revision that the worker embeds.
type IndexPayload struct {
	LawName       string `json:"law_name"`
	ArticleNumber string `json:"article_number"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"`
}

// Value implements driver.Valuer for JSONB
func (p IndexPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *IndexPayload) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = IndexPayload{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported index payload type %T", value)
	}
	if len(raw) == 0 {
		*p = IndexPayload{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// IndexJob is one queued request to add a revision to the vector index.
// Jobs are delivered at least once; LockedUntil is the worker lease.
type IndexJob struct {
	ID           uuid.UUID      `json:"id"`
	RevisionID   int64          `json:"revision_id"`
	Fingerprint  string         `json:"fingerprint"`
	Payload      IndexPayload   `json:"payload"`
	Status       IndexJobStatus `json:"status"`
	Attempts     int            `json:"attempts"`
	MaxAttempts  int            `json:"max_attempts"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	RunAfter     time.Time      `json:"run_after"`
	LockedUntil  *time.Time     `json:"locked_until,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// IndexFingerprint identifies the (revision, content) pair a job indexes.
// Enqueueing the same pair twice yields the same fingerprint.
func IndexFingerprint(revisionID int64, content string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(strconv.FormatInt(revisionID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
