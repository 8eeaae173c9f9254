package models

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// HistoryMessage is one prior (role, text) pair of a session, oldest first.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IntentResult is the structured intent extracted from a turn's query.
type IntentResult struct {
	Intent              string   `json:"intent"`
	LawDomain           string   `json:"law_domain"`
	Keywords            []string `json:"keywords"`
	IsLegalQuestion     bool     `json:"is_legal_question"`
	IsCounselingRequest bool     `json:"is_counseling_request"`
}

// RoutingDecision selects the auxiliary capabilities executed for a turn.
type RoutingDecision struct {
	RequiresLawDBSearch     bool   `json:"requires_law_db_search"`
	RequiresPrecedentSearch bool   `json:"requires_precedent_search"`
	RequiresCalculator      bool   `json:"requires_calculator"`
	RequiresClarification   bool   `json:"requires_clarification"`
	Reasoning               string `json:"reasoning"`
}

// RetrievedPassage is one statute passage returned by similarity search.
// RevisionID is a weak reference; the passage does not own the revision.
type RetrievedPassage struct {
	Content     string         `json:"content"`
	SourceLabel string         `json:"source_label"`
	RevisionID  *int64         `json:"revision_id,omitempty"`
	RawMetadata map[string]any `json:"raw_metadata,omitempty"`
	Distance    float64        `json:"-"`
}

// VerdictResult is the five-section answer persisted as the assistant message.
type VerdictResult struct {
	Verdict                          Verdict `json:"verdict"`
	Section1Summary                  string  `json:"section_1_summary"`
	Section2LawExplanation           string  `json:"section_2_law_explanation"`
	Section3RealCaseExample          string  `json:"section_3_real_case_example"`
	Section4Caution                  string  `json:"section_4_caution"`
	Section5CounselingRecommendation string  `json:"section_5_counseling_recommendation"`
}

// Sections returns the five sections in display order.
func (v VerdictResult) Sections() []string {
	return []string{
		v.Section1Summary,
		v.Section2LawExplanation,
		v.Section3RealCaseExample,
		v.Section4Caution,
		v.Section5CounselingRecommendation,
	}
}

// StatuteArticle is one article returned by the live registry lookup.
type StatuteArticle struct {
	LawName       string `json:"law_name"`
	ArticleNumber string `json:"article_number"`
	Title         string `json:"title"`
	Content       string `json:"content"`
}

// PrecedentFinding is one case summary returned by precedent search.
type PrecedentFinding struct {
	CaseNumber string `json:"case_number" yaml:"case_number"`
	Summary    string `json:"summary" yaml:"summary"`
}

// WageFacts are monetary facts extracted from a query for the calculators.
type WageFacts struct {
	MonthlySalary int64 `json:"monthly_salary"`
	WorkedDays    int   `json:"worked_days"`
}
