package content

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Seed loads the sample dashboard fixtures. It is a no-op when data is
// already present, so it is safe to run on every boot.
func (r *Repo) Seed(ctx context.Context) error {
	count, err := r.db.NewSelect().Model((*TrendingTopic)(nil)).Count(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check seed state")
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	topics := []TrendingTopic{
		{ID: uuid.New(), Topic: "AI-Powered Content Creation", Category: "technology", Growth: 156, Volume: 450, Engagement: 78, Sentiment: 85},
		{ID: uuid.New(), Topic: "Sustainable Business Practices", Category: "business", Growth: 89, Volume: 320, Engagement: 65, Sentiment: 92},
		{ID: uuid.New(), Topic: "Virtual Reality Entertainment", Category: "entertainment", Growth: 134, Volume: 280, Engagement: 82, Sentiment: 88},
		{ID: uuid.New(), Topic: "Digital Wellness", Category: "lifestyle", Growth: 67, Volume: 195, Engagement: 71, Sentiment: 90},
		{ID: uuid.New(), Topic: "Quantum Computing", Category: "technology", Growth: 112, Volume: 150, Engagement: 69, Sentiment: 82},
	}

	items := []Item{
		{ID: uuid.New(), Title: "Q1 Marketing Strategy.docx", Type: ItemDocument, Size: "2.4 MB", Author: "Michael Scott", ModifiedAt: ago(2 * time.Hour)},
		{ID: uuid.New(), Title: "Product Launch Banner.png", Type: ItemImage, Size: "4.8 MB", Author: "Michael Scott", ModifiedAt: ago(24 * time.Hour)},
		{ID: uuid.New(), Title: "Company Overview Video.mp4", Type: ItemVideo, Size: "128 MB", Author: "Michael Scott", ModifiedAt: ago(3 * 24 * time.Hour)},
		{ID: uuid.New(), Title: "Social Media Calendar.xlsx", Type: ItemDocument, Size: "1.2 MB", Author: "Michael Scott", ModifiedAt: ago(7 * 24 * time.Hour)},
		{ID: uuid.New(), Title: "Brand Guidelines.pdf", Type: ItemDocument, Size: "5.6 MB", Author: "Michael Scott", ModifiedAt: ago(14 * 24 * time.Hour)},
	}

	metrics := []Metric{
		{ID: uuid.New(), Page: "dashboard", Title: "Total Views", Value: "1.2M", Change: 12.3, Position: 1},
		{ID: uuid.New(), Page: "dashboard", Title: "Subscribers", Value: "48.6K", Change: 8.1, Position: 2},
		{ID: uuid.New(), Page: "dashboard", Title: "Engagement Rate", Value: "5.4%", Change: 2.2, Position: 3},
		{ID: uuid.New(), Page: "dashboard", Title: "Conversions", Value: "2.1K", Change: 4.8, Position: 4},

		{ID: uuid.New(), Page: "trending", Title: "Trending Topics", Value: "2,847", Change: 12.5, Position: 1},
		{ID: uuid.New(), Page: "trending", Title: "Total Mentions", Value: "1.2M", Change: 8.2, Position: 2},
		{ID: uuid.New(), Page: "trending", Title: "Engagement Rate", Value: "6.8%", Change: 15.3, Position: 3},
		{ID: uuid.New(), Page: "trending", Title: "Social Reach", Value: "8.4M", Change: 10.7, Position: 4},

		{ID: uuid.New(), Page: "analytics", Title: "Total Reach", Value: "2.4M", Change: 12.5, Position: 1},
		{ID: uuid.New(), Page: "analytics", Title: "New Followers", Value: "12.8K", Change: 8.2, Position: 2},
		{ID: uuid.New(), Page: "analytics", Title: "Engagement Rate", Value: "6.2%", Change: 3.1, Position: 3},
		{ID: uuid.New(), Page: "analytics", Title: "Conversion Rate", Value: "3.8%", Change: 5.7, Position: 4},
	}

	if _, err := r.db.NewInsert().Model(&topics).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed trending topics")
	}
	if _, err := r.db.NewInsert().Model(&items).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed content items")
	}
	if _, err := r.db.NewInsert().Model(&metrics).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed metrics")
	}

	return nil
}
