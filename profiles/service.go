package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/libris-go/apperror"
)

var pgDialect = goqu.Dialect("postgres")

// ProfileService provides profile operations over the profiles table.
type ProfileService struct {
	db *pgxpool.Pool
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

// Get retrieves a single profile by id.
func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	query := `SELECT id, name, email, registration, role, avatar_url, created_at
	          FROM profiles WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.Registration, &p.Role, &p.AvatarURL, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("profile not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get profile", err)
	}
	return &p, nil
}

// Update edits the self-editable profile fields and returns the updated
// profile. Role and registration stay as assigned at signup.
func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*Profile, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, apperror.NewValidationError("name is required", nil)
	case len(name) > 200:
		return nil, apperror.NewValidationError("name must be at most 200 characters", nil)
	}

	tag, err := s.db.Exec(ctx, `UPDATE profiles SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewNotFoundError("profile not found", nil)
	}
	return s.Get(ctx, id)
}

// buildListSQL composes the roster query from the optional free-text
// filter.
func buildListSQL(q ListQuery) (string, []interface{}, error) {
	ds := pgDialect.From("profiles").
		Select("id", "name", "email", "registration", "role", "avatar_url", "created_at").
		Order(goqu.I("name").Asc())

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("name").ILike(pattern),
			goqu.I("email").ILike(pattern),
			goqu.I("registration").ILike(pattern),
		))
	}

	return ds.Prepared(true).ToSQL()
}

// List returns the roster filtered by the given query, ordered by name.
func (s *ProfileService) List(ctx context.Context, q ListQuery) ([]Profile, error) {
	sql, args, err := buildListSQL(q)
	if err != nil {
		return nil, apperror.NewInternalError("failed to build roster query", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list profiles", err)
	}
	defer rows.Close()

	result := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Email, &p.Registration, &p.Role, &p.AvatarURL, &p.CreatedAt,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan profile", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read profiles", err)
	}
	return result, nil
}

// SetAvatarURL records the public URL of an uploaded avatar image.
func (s *ProfileService) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := s.db.Exec(ctx, `UPDATE profiles SET avatar_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return apperror.NewDatabaseError("failed to set avatar url", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("profile not found", nil)
	}
	return nil
}
