package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, email string) (*CandidateProfile, error) {
	p := &CandidateProfile{}
	var skills, projects, work, education, certs, achievements []byte
	query := `SELECT email, name, phone, total_experience, skills, projects, work_experience, education, certifications, achievements
		FROM profiles WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&p.Email, &p.Name, &p.Phone, &p.TotalExperience,
		&skills, &projects, &work, &education, &certs, &achievements,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw []byte
		dst interface{}
	}{
		{skills, &p.Skills},
		{projects, &p.Projects},
		{work, &p.WorkExperience},
		{education, &p.Education},
		{certs, &p.Certifications},
		{achievements, &p.Achievements},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode profile column: %w", err)
		}
	}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, prof *CandidateProfile) error {
	skills, _ := json.Marshal(prof.Skills)
	projects, _ := json.Marshal(prof.Projects)
	work, _ := json.Marshal(prof.WorkExperience)
	education, _ := json.Marshal(prof.Education)
	certs, _ := json.Marshal(prof.Certifications)
	achievements, _ := json.Marshal(prof.Achievements)

	query := `INSERT INTO profiles (email, name, phone, total_experience, skills, projects, work_experience, education, certifications, achievements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			total_experience = EXCLUDED.total_experience,
			skills = EXCLUDED.skills,
			projects = EXCLUDED.projects,
			work_experience = EXCLUDED.work_experience,
			education = EXCLUDED.education,
			certifications = EXCLUDED.certifications,
			achievements = EXCLUDED.achievements,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		prof.Email, prof.Name, prof.Phone, prof.TotalExperience,
		skills, projects, work, education, certs, achievements,
	)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}
