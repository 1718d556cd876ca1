package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, COALESCE(google_id, ''), first_name, last_name,
	profile_image_url, whatsapp_number, marketing_consent, has_completed_onboarding,
	created_at, updated_at`

// scanUser は1行のユーザーレコードをスキャンする。sql.ErrNoRowsはnilとして扱う。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.GoogleID, &user.FirstName, &user.LastName,
		&user.ProfileImageURL, &user.WhatsappNumber, &user.MarketingConsent,
		&user.HasCompletedOnboarding, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create は新規ユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, google_id, first_name, last_name,
		 profile_image_url, whatsapp_number, marketing_consent,
		 has_completed_onboarding, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.Email, user.GoogleID, user.FirstName, user.LastName,
		user.ProfileImageURL, user.WhatsappNumber, user.MarketingConsent,
		user.HasCompletedOnboarding, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// LinkGoogleID は既存ユーザーにGoogle subject IDを紐付ける。
func (r *PostgresUserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $1, updated_at = now() WHERE id = $2`,
		googleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to link google ID: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// UpdateOnboarding はオンボーディング情報を更新する。
// has_completed_onboardingは任意フィールドの有無に関わらず常に"true"になる。
func (r *PostgresUserRepo) UpdateOnboarding(ctx context.Context, userID, whatsappNumber, marketingConsent string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET whatsapp_number = $1, marketing_consent = $2,
		     has_completed_onboarding = 'true', updated_at = now()
		 WHERE id = $3`,
		whatsappNumber, marketingConsent, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
