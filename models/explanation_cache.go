package models

import "time"

// Explanation is the cacheable part of a verdict for one statute revision.
type Explanation struct {
	PlainSummary string `json:"plain_summary"`
	ExampleCase  string `json:"example_case"`
	CautionNote  string `json:"caution_note"`
}

// ExplanationCacheEntry holds at most one explanation per revision.
type ExplanationCacheEntry struct {
	RevisionID int64 `json:"revision_id"`
	Explanation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExplanationFromVerdict extracts the cacheable sections of a verdict.
func ExplanationFromVerdict(v VerdictResult) Explanation {
	return Explanation{
		PlainSummary: v.Section1Summary,
		ExampleCase:  v.Section3RealCaseExample,
		CautionNote:  v.Section4Caution,
	}
}
