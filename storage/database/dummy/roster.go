package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/roster"
)

type studentRepository struct {
	db *DB
}

var _ roster.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

// join must be called with the read lock held.
func (repo *studentRepository) join(s roster.Student) roster.Student {
	if t, ok := repo.db.users[s.TeacherID]; ok {
		s.TeacherName = t.FullName()
	}
	return s
}

func (repo *studentRepository) filter(filter roster.QueryFilter) []roster.Student {
	ids := toSet(filter.IDs)
	students := make([]roster.Student, 0)
	for _, s := range repo.db.students {
		if ids != nil && !ids[s.ID] {
			continue
		}
		if filter.TeacherID != 0 && s.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ParentID != 0 && s.ParentID != filter.ParentID {
			continue
		}
		students = append(students, repo.join(s))
	}
	return students
}

func (repo *studentRepository) CreateStudent(_ context.Context, s roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = repo.db.nextID()
	track(txOf(exec), repo.db.students, s.ID)
	repo.db.students[s.ID] = s
	return repo.join(s), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int64, _ ...core.DBExecutor) (roster.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	s, ok := repo.db.students[id]
	if !ok {
		return roster.Student{}, roster.ErrNotFound
	}
	return repo.join(s), nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter roster.QueryFilter, _ ...core.DBExecutor) ([]roster.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.filter(filter)
	sort.Slice(students, func(i, j int) bool {
		ni, nj := strings.ToLower(students[i].Name), strings.ToLower(students[j].Name)
		if ni == nj {
			return students[i].ID < students[j].ID
		}
		return ni < nj
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s roster.Student, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return roster.Student{}, roster.ErrNotFound
	}
	orig.Name = s.Name
	orig.ClassName = s.ClassName
	orig.ParentName = s.ParentName
	orig.ParentEmail = s.ParentEmail
	track(txOf(exec), repo.db.students, s.ID)
	repo.db.students[s.ID] = orig
	return repo.join(orig), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int64, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return roster.ErrNotFound
	}
	repo.db.deleteStudent(txOf(exec), id)
	return nil
}

func (repo *studentRepository) CountStudents(_ context.Context, filter roster.QueryFilter, _ ...core.DBExecutor) (int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return int64(len(repo.filter(filter))), nil
}

func (repo *studentRepository) OrphanParentIDs(_ context.Context, _ ...core.DBExecutor) ([]int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	withChildren := make(map[int64]bool, len(repo.db.students))
	for _, s := range repo.db.students {
		withChildren[s.ParentID] = true
	}
	ids := make([]int64, 0)
	for _, usr := range repo.db.users {
		if usr.IsParent() && !withChildren[usr.ID] {
			ids = append(ids, usr.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
