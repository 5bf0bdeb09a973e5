package sqlstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/catering-kart/internal/domain/auth"
)

var (
	_ auth.UserRepository    = (*AuthRepository)(nil)
	_ auth.SessionRepository = (*AuthRepository)(nil)
)

// AuthRepository implements auth.UserRepository and auth.SessionRepository.
type AuthRepository struct {
	db *gorm.DB
}

// NewAuthRepository returns an AuthRepository on the store.
func NewAuthRepository(s *Store) *AuthRepository {
	return &AuthRepository{db: s.db}
}

func (r *AuthRepository) CreateUser(ctx context.Context, u *auth.User) error {
	m := fromUser(u)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userModel{}).Where("email = ?", m.Email).Count(&n).Error; err != nil {
			return errors.Wrap(err, "count users by email")
		}
		if n > 0 {
			return auth.ErrEmailTaken
		}
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return auth.ErrEmailTaken
			}
			return errors.Wrap(err, "insert user")
		}
		return nil
	})
}

func (r *AuthRepository) GetUser(ctx context.Context, id string) (*auth.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, errors.Wrapf(notFound(err, auth.ErrUserNotFound), "get user %q", id)
	}
	return row.toDomain(), nil
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error; err != nil {
		return nil, errors.Wrap(notFound(err, auth.ErrUserNotFound), "get user by email")
	}
	return row.toDomain(), nil
}

// UpsertAdmin creates an admin account, or promotes and re-keys the
// existing account with the same email.
func (r *AuthRepository) UpsertAdmin(ctx context.Context, u *auth.User) (created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing userModel
		err := tx.Where("email = ?", u.Email).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m := fromUser(u)
			m.Role = string(auth.RoleAdmin)
			created = true
			return tx.Create(&m).Error
		case err != nil:
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"full_name":     u.FullName,
			"password_hash": u.PasswordHash,
			"role":          string(auth.RoleAdmin),
		}).Error
	})
	if err != nil {
		return false, errors.Wrapf(err, "upsert admin %q", u.Email)
	}
	return created, nil
}

func (r *AuthRepository) CreateSession(ctx context.Context, s *auth.Session) error {
	m := sessionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		TokenHash: s.TokenHash,
		ExpiresAt: s.ExpiresAt.UTC(),
		CreatedAt: s.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return errors.Wrap(err, "insert session")
	}
	return nil
}

func (r *AuthRepository) GetSessionByHash(ctx context.Context, hash string) (*auth.Session, error) {
	var row sessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).Take(&row).Error; err != nil {
		return nil, errors.Wrap(notFound(err, auth.ErrSessionNotFound), "get session")
	}
	return row.toDomain(), nil
}

func (r *AuthRepository) DeleteSessionByHash(ctx context.Context, hash string) error {
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&sessionModel{}).Error; err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (r *AuthRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&sessionModel{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete expired sessions")
	}
	return res.RowsAffected, nil
}
