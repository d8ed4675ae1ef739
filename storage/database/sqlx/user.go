package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
)

var userColumns = []string{
	"id", "email", "username", "first_name", "last_name", "role", "school_name", "phone_number",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{base{exec: exec}}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	qb := psql.Select("1").From("users").Where("LOWER(email) = LOWER(?)", email)
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}

	var exists bool
	if err := repo.get(ctx, exec, &exists, qb.Prefix("SELECT EXISTS (").Suffix(")")); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Insert("users").
		Columns(userColumns[1:]...).
		Values(
			usr.Email, usr.Username, usr.FirstName, usr.LastName, usr.Role, usr.SchoolName, usr.PhoneNumber,
			usr.IsActive, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin,
		).
		Suffix("RETURNING *")

	var created user.User
	if err := repo.get(ctx, exec, &created, qb); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	if filter.ID == 0 && filter.Email == "" {
		return user.User{}, user.ErrNotFound
	}
	qb := psql.Select(userColumns...).From("users").Limit(1)
	if filter.ID != 0 {
		qb = qb.Where(sq.Eq{"id": filter.ID})
	}
	if filter.Email != "" {
		qb = qb.Where("LOWER(email) = LOWER(?)", filter.Email)
	}
	if filter.Role != "" {
		qb = qb.Where(sq.Eq{"role": filter.Role})
	}

	var usr user.User
	if err := repo.get(ctx, exec, &usr, qb); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	qb := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids}).OrderBy("id")
	if err := repo.selekt(ctx, exec, &users, qb); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Update("users").
		SetMap(map[string]interface{}{
			"email":         usr.Email,
			"username":      usr.Username,
			"first_name":    usr.FirstName,
			"last_name":     usr.LastName,
			"school_name":   usr.SchoolName,
			"phone_number":  usr.PhoneNumber,
			"is_active":     usr.IsActive,
			"password_hash": usr.PasswordHash,
			"updated_at":    usr.UpdatedAt.UTC(),
			"last_login":    usr.LastLogin,
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING *")

	var updated user.User
	if err := repo.get(ctx, exec, &updated, qb); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return updated, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.exek(ctx, exec, psql.Delete("users").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return res.RowsAffected()
}
