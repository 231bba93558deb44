package repository

import (
	"context"

	"salescrm/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	// FindByIdentifier matches username or email, ignoring case.
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(u).Error
	})
}

func (r *userRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("username_key = ? OR email_key = ?", model.NormalizeKey(identifier), model.NormalizeKey(identifier)).
		Order("id").
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username_key = ? OR email_key = ?", model.NormalizeKey(username), model.NormalizeKey(email)).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.User{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
