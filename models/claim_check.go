package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimCheck is the audit record of one turn. It is never mutated after
// creation.
type ClaimCheck struct {
	ID          uuid.UUID     `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	ClaimText   string        `json:"claim_text"`
	Verdict     Verdict       `json:"verdict"`
	Explanation VerdictResult `json:"explanation"`
	RevisionIDs []int64       `json:"revision_ids"`
	CreatedAt   time.Time     `json:"created_at"`
}
