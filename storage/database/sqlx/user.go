package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	LastName     string         `db:"last_name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	NationalID   string         `db:"national_id"`
	Phone        string         `db:"phone"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		LastName:     usr.LastName,
		Username:     usr.Username,
		Email:        usr.Email,
		NationalID:   usr.NationalID,
		Phone:        usr.Phone,
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		LastName:     r.LastName,
		Username:     r.Username,
		Email:        r.Email,
		NationalID:   r.NationalID,
		Phone:        r.Phone,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

// uniquenessError maps a unique violation on users to the matching user error.
func uniquenessError(err error) error {
	if pqErr, ok := pqError(err, uniqueViolation); ok {
		switch pqErr.Constraint {
		case "users_username_key":
			return user.ErrUsernameExists
		case "users_email_key":
			return user.ErrEmailExists
		}
	}
	return err
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...int) error {
	q := `SELECT username = ? AS username_taken FROM users WHERE (username = ? OR email = ?)`
	args := []interface{}{username, username, email}
	if len(excludedIDs) > 0 {
		var err error
		if q, args, err = sqlx.In(q+` AND id NOT IN (?)`, username, username, email, excludedIDs); err != nil {
			return errors.Wrap(err, "building query")
		}
	}
	q = repo.db.Rebind(q)

	var taken []bool
	if err := repo.db.exec(ctx).SelectContext(ctx, &taken, q+` LIMIT 1`, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	switch {
	case len(taken) == 0:
		return nil
	case taken[0]:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	q := `INSERT INTO users (name, last_name, username, email, national_id, phone, is_active, roles,
			password_hash, created_at, updated_at, last_login)
		VALUES (:name, :last_name, :username, :email, :national_id, :phone, :is_active, :roles,
			:password_hash, :created_at, :updated_at, :last_login)
		RETURNING id`
	q, args, err := repo.db.BindNamed(q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}
	if err = repo.db.exec(ctx).GetContext(ctx, &row.ID, q, args...); err != nil {
		return user.User{}, uniquenessError(err)
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	if filter.ID != 0 {
		err = repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM users WHERE id = $1`, filter.ID)
	} else {
		err = repo.db.exec(ctx).GetContext(ctx, &row,
			`SELECT * FROM users WHERE username = $1 OR email = $1 ORDER BY id LIMIT 1`, filter.UsernameOrEmail)
	}
	if err != nil {
		return user.User{}, notFound(err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	q, args, err := repo.db.BindNamed(`UPDATE users SET name = :name, last_name = :last_name, username = :username,
			email = :email, national_id = :national_id, phone = :phone, is_active = :is_active, roles = :roles,
			password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, uniquenessError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), nil
}

func (repo userRepository) LinkInstitution(ctx context.Context, studentID, institutionID int) error {
	res, err := repo.db.exec(ctx).ExecContext(ctx,
		`INSERT INTO student_institutions (student_id, institution_id)
		SELECT $1, id FROM institutions WHERE id = $2
		ON CONFLICT DO NOTHING`, studentID, institutionID)
	if err != nil {
		return errors.Wrap(err, "linking institution")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var found bool
		err = repo.db.exec(ctx).GetContext(ctx, &found, `SELECT true FROM institutions WHERE id = $1`, institutionID)
		if errors.Is(err, sql.ErrNoRows) {
			return user.ErrInstitutionNotFound
		}
		return err
	}
	return nil
}
