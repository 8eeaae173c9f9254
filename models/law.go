package models

import "time"

// Law represents a statute
type Law struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LawArticle represents one article of a statute
type LawArticle struct {
	ID            int64  `json:"id"`
	LawID         int64  `json:"law_id"`
	ArticleNumber string `json:"article_number"`
	Title         string `json:"title"`
}

// LawArticleRevision is a dated version of one article's text. It is the
// unit of retrieval and of explanation caching.
type LawArticleRevision struct {
	ID            int64      `json:"id"`
	ArticleID     int64      `json:"article_id"`
	LawName       string     `json:"law_name"`
	ArticleNumber string     `json:"article_number"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SourceLabel formats the citation shown next to retrieved passages.
func (r LawArticleRevision) SourceLabel() string {
	label := r.LawName + " " + r.ArticleNumber
	if r.Title != "" {
		label += "(" + r.Title + ")"
	}
	return label
}
