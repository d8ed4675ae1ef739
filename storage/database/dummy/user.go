package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) emailTaken(email string, excludedUsers []user.User) bool {
	for _, usr := range repo.db.users {
		if strings.EqualFold(usr.Email, email) && !isExcluded(usr, excludedUsers) {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.emailTaken(email, excludedUsers) {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(usr.Email, nil) {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = repo.db.nextID()
	track(txOf(exec), repo.db.users, usr.ID)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID == 0 && filter.Email == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if filter.ID != 0 && usr.ID != filter.ID {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(usr.Email, filter.Email) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []int64, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			users = append(users, usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, []user.User{orig}) {
		return user.User{}, user.ErrEmailExists
	}
	// role and creation time are immutable
	usr.Role = orig.Role
	usr.CreatedAt = orig.CreatedAt
	track(txOf(exec), repo.db.users, usr.ID)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []int64, exec ...core.DBExecutor) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, id := range ids {
		if repo.db.deleteUser(txOf(exec), id) {
			n++
		}
	}
	return n, nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
