package content

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repo is the dashboard data access layer.
type Repo struct {
	db *bun.DB
}

func NewRepo(db *bun.DB) *Repo {
	return &Repo{db: db}
}

var models = []any{
	(*Item)(nil),
	(*TrendingTopic)(nil),
	(*Metric)(nil),
	(*Script)(nil),
	(*Analysis)(nil),
}

// CreateSchema creates the dashboard tables that do not exist yet.
func (r *Repo) CreateSchema(ctx context.Context) error {
	for _, model := range models {
		_, err := r.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create content tables")
		}
	}
	return nil
}

// ListItems returns library items, optionally filtered by type and a title
// substring, newest first.
func (r *Repo) ListItems(ctx context.Context, itemType, search string) ([]Item, error) {
	var items []Item

	q := r.db.NewSelect().Model(&items).Order("modified_at DESC")
	if itemType != "" && itemType != "all" {
		q = q.Where("item_type = ?", itemType)
	}
	if search != "" {
		q = q.Where("lower(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list content items")
	}
	return items, nil
}

// CreateItem adds a file to the library.
func (r *Repo) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.ModifiedAt == nil {
		now := time.Now()
		item.ModifiedAt = &now
	}

	if _, err := r.db.NewInsert().Model(item).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create content item")
	}
	return item, nil
}

// ListTrendingTopics returns trending rows, optionally filtered by category
// and a topic substring, highest growth first.
func (r *Repo) ListTrendingTopics(ctx context.Context, category, search string) ([]TrendingTopic, error) {
	var topics []TrendingTopic

	q := r.db.NewSelect().Model(&topics).Order("growth DESC")
	if category != "" && category != "all" {
		q = q.Where("category = ?", category)
	}
	if search != "" {
		q = q.Where("lower(topic) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list trending topics")
	}
	return topics, nil
}

// ListMetrics returns the stat cards for one dashboard page in display order.
func (r *Repo) ListMetrics(ctx context.Context, page string) ([]Metric, error) {
	var metrics []Metric

	err := r.db.NewSelect().
		Model(&metrics).
		Where("page = ?", page).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list metrics")
	}
	return metrics, nil
}

// PublishScript persists a generated script.
func (r *Repo) PublishScript(ctx context.Context, script *Script) (*Script, error) {
	if script.ID == uuid.Nil {
		script.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(script).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to publish script")
	}
	return script, nil
}

// ListScripts returns a user's published scripts, newest first.
func (r *Repo) ListScripts(ctx context.Context, userID string) ([]Script, error) {
	var scripts []Script

	err := r.db.NewSelect().
		Model(&scripts).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list scripts")
	}
	return scripts, nil
}

// SaveAnalysis inserts or replaces an analyzer item.
func (r *Repo) SaveAnalysis(ctx context.Context, analysis *Analysis) (*Analysis, error) {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}

	_, err := r.db.NewInsert().
		Model(analysis).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("metrics = EXCLUDED.metrics").
		Set("last_analyzed_at = EXCLUDED.last_analyzed_at").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save analysis")
	}
	return analysis, nil
}

// ListAnalyses returns a user's analyzer items, newest first.
func (r *Repo) ListAnalyses(ctx context.Context, userID string) ([]Analysis, error) {
	var analyses []Analysis

	err := r.db.NewSelect().
		Model(&analyses).
		Where("user_id = ?", userID).
		Order("last_analyzed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list analyses")
	}
	return analyses, nil
}
