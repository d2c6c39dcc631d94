package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) GetByProviderID(ctx context.Context, razorpayID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("razorpay_subscription_id = ?", razorpayID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetLatestByUser returns the user's most recently created subscription with its plan.
func (r *SubscriptionRepository) GetLatestByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUserAndStatuses returns matching subscriptions, newest first.
func (r *SubscriptionRepository) ListByUserAndStatuses(ctx context.Context, userID string, statuses []model.SubscriptionStatus) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// UpdateByProviderID applies fields to the row. A last_charged_at entry is
// written only when it moves the stored value forward.
func (r *SubscriptionRepository) UpdateByProviderID(ctx context.Context, razorpayID string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyUpdate(tx, fields, "razorpay_subscription_id = ?", razorpayID)
	})
}

// UpdateByProviderIDAndUser updates the row only when it belongs to userID and
// returns it reloaded with its plan. gorm.ErrRecordNotFound when no row matches.
// last_charged_at follows the same forward-only rule as UpdateByProviderID.
func (r *SubscriptionRepository) UpdateByProviderIDAndUser(ctx context.Context, razorpayID, userID string, fields map[string]interface{}) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Where("razorpay_subscription_id = ? AND user_id = ?", razorpayID, userID)
		if err := scope.First(&model.Subscription{}).Error; err != nil {
			return err
		}
		if err := applyUpdate(tx, fields, "razorpay_subscription_id = ? AND user_id = ?", razorpayID, userID); err != nil {
			return err
		}
		return tx.Preload("Plan").
			Where("razorpay_subscription_id = ? AND user_id = ?", razorpayID, userID).
			First(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListStale returns subscriptions in statuses not updated since before, oldest first.
func (r *SubscriptionRepository) ListStale(ctx context.Context, statuses []model.SubscriptionStatus, before time.Time, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ? AND razorpay_subscription_id <> ''", statuses, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// TouchUpdatedAt moves updated_at to at without changing anything else.
func (r *SubscriptionRepository) TouchUpdatedAt(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

const lastChargedColumn = "last_charged_at"

// applyUpdate writes fields to the rows matching where. last_charged_at is
// split out and guarded in the UPDATE itself so concurrent writers cannot
// move it backwards.
func applyUpdate(tx *gorm.DB, fields map[string]interface{}, where string, args ...interface{}) error {
	rest := make(map[string]interface{}, len(fields))
	var charged *time.Time
	for k, v := range fields {
		if k != lastChargedColumn {
			rest[k] = v
			continue
		}
		switch t := v.(type) {
		case *time.Time:
			charged = t
		case time.Time:
			charged = &t
		}
	}

	if len(rest) > 0 {
		if err := tx.Model(&model.Subscription{}).Where(where, args...).Updates(rest).Error; err != nil {
			return err
		}
	}
	if charged == nil {
		return nil
	}
	return tx.Model(&model.Subscription{}).
		Where(where, args...).
		Where("(last_charged_at IS NULL OR last_charged_at < ?)", *charged).
		UpdateColumn(lastChargedColumn, *charged).Error
}
