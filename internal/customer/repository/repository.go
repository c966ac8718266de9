// Package repository reads billing profiles through gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/cache"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// profileCacheTTL bounds how stale a cached billing profile can get. Invoice
// creation snapshots profile fields, so a short window is acceptable.
const profileCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Repository struct {
	db       *gorm.DB
	log      *zap.Logger
	profiles cache.Cache[snowflake.ID, customerdomain.BillingProfile]
}

func NewRepository(p Params) customerdomain.Repository {
	return &Repository{
		db:       p.DB,
		log:      p.Log.Named("customer.repository"),
		profiles: cache.NewTTLCache[snowflake.ID, customerdomain.BillingProfile](),
	}
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (customerdomain.BillingProfile, error) {
	if profile, ok := r.profiles.Get(id); ok {
		return profile, nil
	}

	var profile customerdomain.BillingProfile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customerdomain.BillingProfile{}, customerdomain.ErrProfileNotFound
	}
	if err != nil {
		return customerdomain.BillingProfile{}, err
	}
	r.profiles.Set(id, profile, profileCacheTTL)
	return profile, nil
}

// ListBillable returns every profile eligible for monthly generation.
func (r *Repository) ListBillable(ctx context.Context) ([]customerdomain.BillingProfile, error) {
	var profiles []customerdomain.BillingProfile
	err := r.db.WithContext(ctx).
		Where("billable = ?", true).
		Order("id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
