package inmemdb

import (
	"context"

	"github.com/jhoelito123/PyStart/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func isExcluded(id int, excludedIDs []int) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}

func checkUniqueness(t *tables, username, email string, excludedIDs ...int) error {
	for _, usr := range t.users {
		if isExcluded(usr.ID, excludedIDs) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...int) (err error) {
	repo.db.read(func(t *tables) {
		err = checkUniqueness(t, username, email, excludedIDs...)
	})
	return err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if err := checkUniqueness(t, usr.Username, usr.Email); err != nil {
			return err
		}
		usr.ID = t.nextID("users")
		t.users[usr.ID] = usr
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (usr user.User, err error) {
	repo.db.read(func(t *tables) {
		if filter.ID != 0 {
			var ok bool
			if usr, ok = t.users[filter.ID]; !ok {
				err = user.ErrNotFound
			}
			return
		}
		for _, u := range t.users {
			if filter.UsernameOrEmail != "" && (u.Username == filter.UsernameOrEmail || u.Email == filter.UsernameOrEmail) {
				usr = u
				return
			}
		}
		err = user.ErrNotFound
	})
	return usr, err
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.users[usr.ID]; !ok {
			return user.ErrNotFound
		}
		if err := checkUniqueness(t, usr.Username, usr.Email, usr.ID); err != nil {
			return err
		}
		t.users[usr.ID] = usr
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) LinkInstitution(ctx context.Context, studentID, institutionID int) error {
	return repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.users[studentID]; !ok {
			return user.ErrNotFound
		}
		if _, ok := t.institutions[institutionID]; !ok {
			return user.ErrInstitutionNotFound
		}
		t.studentInstitutions[[2]int{studentID, institutionID}] = true
		return nil
	})
}
