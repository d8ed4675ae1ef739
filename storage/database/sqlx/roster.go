package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/roster"
)

type studentRepository struct {
	base
}

var _ roster.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{base{exec: exec}}
}

func (repo studentRepository) selectStudents() sq.SelectBuilder {
	return psql.
		Select(
			"s.id", "s.name", "s.class_name", "s.teacher_id", "s.parent_id", "s.created_at",
			"s.parent_name", "s.parent_email", fullName("t")+" AS teacher_name",
		).
		From("student s").
		Join("users t ON t.id = s.teacher_id")
}

func (repo studentRepository) where(qb sq.SelectBuilder, filter roster.QueryFilter) sq.SelectBuilder {
	if len(filter.IDs) > 0 {
		qb = qb.Where(sq.Eq{"s.id": filter.IDs})
	}
	if filter.TeacherID != 0 {
		qb = qb.Where(sq.Eq{"s.teacher_id": filter.TeacherID})
	}
	if filter.ParentID != 0 {
		qb = qb.Where(sq.Eq{"s.parent_id": filter.ParentID})
	}
	return qb
}

func (repo studentRepository) CreateStudent(ctx context.Context, s roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	qb := psql.Insert("student").
		Columns("name", "class_name", "teacher_id", "parent_id", "parent_name", "parent_email", "created_at").
		Values(s.Name, s.ClassName, s.TeacherID, s.ParentID, s.ParentName, s.ParentEmail, s.CreatedAt.UTC()).
		Suffix("RETURNING id")

	var id int64
	if err := repo.get(ctx, exec, &id, qb); err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudent(ctx, id, exec...)
}

func (repo studentRepository) GetStudent(ctx context.Context, id int64, exec ...core.DBExecutor) (roster.Student, error) {
	var s roster.Student
	if err := repo.get(ctx, exec, &s, repo.selectStudents().Where(sq.Eq{"s.id": id})); err != nil {
		return roster.Student{}, trapNoRowsErr(err, roster.ErrNotFound, "getting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter roster.QueryFilter, exec ...core.DBExecutor) ([]roster.Student, error) {
	students := make([]roster.Student, 0)
	qb := repo.where(repo.selectStudents(), filter).OrderBy("LOWER(s.name)", "s.id")
	if err := repo.selekt(ctx, exec, &students, qb); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	qb := psql.Update("student").
		SetMap(map[string]interface{}{
			"name":         s.Name,
			"class_name":   s.ClassName,
			"parent_name":  s.ParentName,
			"parent_email": s.ParentEmail,
		}).
		Where(sq.Eq{"id": s.ID})

	res, err := repo.exek(ctx, exec, qb)
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Student{}, roster.ErrNotFound
	}
	return repo.GetStudent(ctx, s.ID, exec...)
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.exek(ctx, exec, psql.Delete("student").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrNotFound
	}
	return nil
}

func (repo studentRepository) CountStudents(ctx context.Context, filter roster.QueryFilter, exec ...core.DBExecutor) (int64, error) {
	var n int64
	qb := repo.where(psql.Select("COUNT(*)").From("student s"), filter)
	if err := repo.get(ctx, exec, &n, qb); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo studentRepository) OrphanParentIDs(ctx context.Context, exec ...core.DBExecutor) ([]int64, error) {
	ids := make([]int64, 0)
	qb := psql.Select("u.id").
		From("users u").
		Where(sq.Eq{"u.role": "parent"}).
		Where("NOT EXISTS (SELECT 1 FROM student s WHERE s.parent_id = u.id)").
		OrderBy("u.id")
	if err := repo.selekt(ctx, exec, &ids, qb); err != nil {
		return nil, errors.Wrap(err, "querying orphan parents")
	}
	return ids, nil
}
