package content

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ItemType classifies a library item by the kind of file behind it.
type ItemType = string

const (
	ItemDocument ItemType = "document"
	ItemImage    ItemType = "image"
	ItemVideo    ItemType = "video"
	ItemOther    ItemType = "other"
)

// Item is a file in the user's content library.
type Item struct {
	bun.BaseModel `bun:"table:content_items,alias:ci"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Title         string     `bun:"title,notnull" json:"title"`
	Type          ItemType   `bun:"item_type,notnull" json:"type"`
	Size          string     `bun:"size" json:"size"`
	Author        string     `bun:"author" json:"author"`
	ModifiedAt    *time.Time `bun:"modified_at,nullzero,default:current_timestamp" json:"modified_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TrendingTopic is one row on the trending page.
type TrendingTopic struct {
	bun.BaseModel `bun:"table:trending_topics,alias:tt"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Topic         string    `bun:"topic,notnull" json:"topic"`
	Category      string    `bun:"category,notnull" json:"category"`
	Growth        int       `bun:"growth" json:"growth"`
	Volume        int       `bun:"volume" json:"volume"`
	Engagement    int       `bun:"engagement" json:"engagement"`
	Sentiment     int       `bun:"sentiment" json:"sentiment"`
}

// Metric is a headline stat card on one of the dashboard pages.
type Metric struct {
	bun.BaseModel `bun:"table:metrics,alias:mtr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Page          string    `bun:"page,notnull" json:"page"`
	Title         string    `bun:"title,notnull" json:"title"`
	Value         string    `bun:"value,notnull" json:"value"`
	Change        float64   `bun:"change" json:"change"`
	Position      int       `bun:"position" json:"-"`
}

// Script is a published generated script.
type Script struct {
	bun.BaseModel `bun:"table:scripts,alias:scr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID        string     `bun:"user_id,notnull" json:"user_id"`
	Topic         string     `bun:"topic,notnull" json:"topic"`
	Platform      string     `bun:"platform,notnull" json:"platform"`
	Duration      string     `bun:"duration" json:"duration"`
	Audience      string     `bun:"audience" json:"audience"`
	Content       string     `bun:"content,notnull" json:"content"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// AnalysisStatus is the lifecycle of an analyzer item.
type AnalysisStatus = string

const (
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusCompleted AnalysisStatus = "completed"
	StatusError     AnalysisStatus = "error"
)

// ReadabilityMetrics scores how easy the content reads.
type ReadabilityMetrics struct {
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Suggestions []string `json:"suggestions"`
}

// SEOMetrics scores discoverability.
type SEOMetrics struct {
	Score        int      `json:"score"`
	Issues       []string `json:"issues"`
	Improvements []string `json:"improvements"`
}

// EngagementCounts are the raw interaction numbers behind the engagement
// score.
type EngagementCounts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Views    int `json:"views"`
}

// EngagementMetrics scores audience response.
type EngagementMetrics struct {
	Score   int              `json:"score"`
	Metrics EngagementCounts `json:"metrics"`
}

// Metrics is the full analyzer report for one piece of content.
type Metrics struct {
	Readability ReadabilityMetrics `json:"readability"`
	SEO         SEOMetrics         `json:"seo"`
	Engagement  EngagementMetrics  `json:"engagement"`
}

// Analysis is one analyzed piece of content.
type Analysis struct {
	bun.BaseModel  `bun:"table:analyses,alias:ana"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID         string         `bun:"user_id,notnull" json:"user_id"`
	Title          string         `bun:"title,notnull" json:"title"`
	Type           string         `bun:"content_type,notnull" json:"type"`
	Platform       string         `bun:"platform" json:"platform"`
	Status         AnalysisStatus `bun:"status,notnull" json:"status"`
	Metrics        Metrics        `bun:"metrics,type:jsonb" json:"metrics"`
	LastAnalyzedAt *time.Time     `bun:"last_analyzed_at,nullzero" json:"last_analyzed"`
}
