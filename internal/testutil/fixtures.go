package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/model"
)

// TestUser creates a user with zero usage
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Email:       fmt.Sprintf("test_%s@example.com", uuid.NewString()[:8]),
		DisplayName: "Test User",
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

func WithUsageCount(count int) func(*model.User) {
	return func(u *model.User) {
		u.UsageCount = count
	}
}

// TestPlan creates a non-production monthly plan mapped to a provider plan
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		Name:           "Monthly",
		Price:          19900,
		Currency:       "INR",
		RazorpayPlanID: "plan_" + uuid.NewString()[:8],
		Period:         "monthly",
		Interval:       1,
		Cycles:         12,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

func WithProviderPlanID(id string) func(*model.Plan) {
	return func(p *model.Plan) {
		p.RazorpayPlanID = id
	}
}

func WithProd(isProd bool) func(*model.Plan) {
	return func(p *model.Plan) {
		p.IsProd = isProd
	}
}

func WithPrice(price int64) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Price = price
	}
}

// TestSubscription creates a subscription in status created
func TestSubscription(t *testing.T, db *gorm.DB, userID, planID string, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID:                 userID,
		PlanID:                 planID,
		RazorpaySubscriptionID: "sub_" + uuid.NewString()[:12],
		Status:                 model.SubscriptionCreated,
		Quantity:               1,
		TotalCount:             12,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

func WithStatus(status model.SubscriptionStatus) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

func WithProviderSubscriptionID(id string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.RazorpaySubscriptionID = id
	}
}

// WithCreatedAt backdates the row
func WithCreatedAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CreatedAt = at
	}
}

func WithLastChargedAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.LastChargedAt = &at
	}
}

// TestSong creates a catalog song
func TestSong(t *testing.T, db *gorm.DB, title string, opts ...func(*model.Song)) *model.Song {
	t.Helper()

	song := &model.Song{
		Title:    title,
		Duration: "3:30",
		ImageURL: "https://cdn.example.com/songs/" + uuid.NewString()[:8] + ".jpg",
		AudioURL: "https://cdn.example.com/songs/" + uuid.NewString()[:8] + ".mp3",
	}

	for _, opt := range opts {
		opt(song)
	}

	if err := db.Create(song).Error; err != nil {
		t.Fatalf("Failed to create test song: %v", err)
	}

	return song
}

func WithSongCreatedAt(at time.Time) func(*model.Song) {
	return func(s *model.Song) {
		s.CreatedAt = at
	}
}
