package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// PostgresAnalysisRepo はPostgreSQLを使用した分析結果リポジトリ。
// tagsとalternativesはJSONB列として保存する。
type PostgresAnalysisRepo struct {
	db *sql.DB
}

// NewPostgresAnalysisRepo はPostgresAnalysisRepoを生成する。
func NewPostgresAnalysisRepo(db *sql.DB) *PostgresAnalysisRepo {
	return &PostgresAnalysisRepo{db: db}
}

// Save は分析結果をユーザーのライブラリに保存する。
func (r *PostgresAnalysisRepo) Save(ctx context.Context, saved *model.SavedAnalysis) error {
	tagsJSON, err := json.Marshal(saved.Analysis.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	altsJSON, err := json.Marshal(saved.Analysis.Alternatives)
	if err != nil {
		return fmt.Errorf("failed to marshal alternatives: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, title, media_type, release_year, poster_url,
		 discernment_score, faith_analysis, tags, verse_text, verse_reference,
		 alternatives, status, is_public, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		saved.ID, saved.UserID, saved.Title, saved.MediaType, saved.ReleaseYear,
		saved.PosterURL, saved.Analysis.DiscernmentScore, saved.Analysis.FaithAnalysis,
		tagsJSON, saved.Analysis.VerseText, saved.Analysis.VerseReference,
		altsJSON, string(saved.Analysis.Status), saved.IsPublic, saved.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, user_id, title, media_type, release_year, poster_url,
	discernment_score, faith_analysis, tags, verse_text, verse_reference,
	alternatives, status, is_public, created_at`

// FindByID は指定IDの保存済み分析を取得する。見つからない場合はnilを返す。
func (r *PostgresAnalysisRepo) FindByID(ctx context.Context, id string) (*model.SavedAnalysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find analysis: %w", err)
	}
	defer rows.Close()

	results, err := scanAnalyses(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// ListByUserID はユーザーのライブラリをcreated_at降順で返す。
func (r *PostgresAnalysisRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.SavedAnalysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analysisColumns+`
		 FROM analyses
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses by user: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// ListPublic は公開設定の分析結果をcreated_at降順で返す。
func (r *PostgresAnalysisRepo) ListPublic(ctx context.Context, limit int) ([]*model.SavedAnalysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analysisColumns+`
		 FROM analyses
		 WHERE is_public
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public analyses: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// scanAnalyses は複数行の分析レコードをスキャンし、JSONB列をデコードする。
func scanAnalyses(rows *sql.Rows) ([]*model.SavedAnalysis, error) {
	var results []*model.SavedAnalysis

	for rows.Next() {
		saved := &model.SavedAnalysis{}
		var tagsJSON, altsJSON []byte
		var status string

		err := rows.Scan(
			&saved.ID, &saved.UserID, &saved.Title, &saved.MediaType,
			&saved.ReleaseYear, &saved.PosterURL,
			&saved.Analysis.DiscernmentScore, &saved.Analysis.FaithAnalysis,
			&tagsJSON, &saved.Analysis.VerseText, &saved.Analysis.VerseReference,
			&altsJSON, &status, &saved.IsPublic, &saved.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}

		if err := json.Unmarshal(tagsJSON, &saved.Analysis.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
		if err := json.Unmarshal(altsJSON, &saved.Analysis.Alternatives); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alternatives: %w", err)
		}
		if saved.Analysis.Tags == nil {
			saved.Analysis.Tags = []string{}
		}
		if saved.Analysis.Alternatives == nil {
			saved.Analysis.Alternatives = []model.Alternative{}
		}
		saved.Analysis.Status = model.AnalysisStatus(status)

		results = append(results, saved)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis rows: %w", err)
	}

	return results, nil
}

// compile-time interface check
var _ AnalysisRepository = (*PostgresAnalysisRepo)(nil)
