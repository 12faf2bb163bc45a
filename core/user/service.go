package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("user")
	ErrInstitutionNotFound = core.NewNotFoundError("institution")
	ErrEmailExists         = errors.New("a user with this email already exists")
	ErrUsernameExists      = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// LinkInstitution records that the student studies at the institution.
		LinkInstitution(ctx context.Context, studentID, institutionID int) error
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// CheckUniqueness reports a taken username or email as a field error.
func (svc *Service) CheckUniqueness(uname, email string, excludedIDs ...int) error {
	if err := svc.repo.CheckUniqueness(context.Background(), uname, email, excludedIDs...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) create(ctx context.Context, nu NewUser, roles []string) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:       nu.Name,
		LastName:   nu.LastName,
		Username:   nu.Username,
		Email:      nu.Email,
		NationalID: nu.NationalID,
		Phone:      nu.Phone,
		IsActive:   true,
		Roles:      roles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) RegisterInstructor(ctx context.Context, ni NewInstructor) (User, error) {
	return svc.create(ctx, ni.NewUser, []string{RoleInstructor})
}

func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (User, error) {
	var usr User
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.create(ctx, ns.NewUser, []string{RoleStudent}); err != nil {
			return errors.Wrap(err, "creating student")
		}
		if ns.InstitutionID == 0 {
			return nil
		}
		if err = svc.repo.LinkInstitution(ctx, usr.ID, ns.InstitutionID); err != nil {
			if errors.Cause(err) == ErrInstitutionNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "institution_id", Error: err.Error()})
			}
			return errors.Wrap(err, "linking institution")
		}
		return nil
	})
	return usr, err
}

// EnsureAdmin updates or creates an active admin with the given credentials.
func (svc *Service) EnsureAdmin(ctx context.Context, uname, email, pwd string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: email})
	if err != nil && errors.Cause(err) != ErrNotFound {
		return User{}, err
	}
	exists := err == nil
	if !exists {
		now := time.Now().UTC()
		usr = User{Name: uname, Username: uname, Email: email, CreatedAt: now}
	}
	usr.Roles = AdminRoles
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if exists {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
