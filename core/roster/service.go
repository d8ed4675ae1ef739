package roster

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("Student not found.")
	// ErrNotYourChild is returned to parents for students that are absent or not theirs.
	ErrNotYourChild = core.NewNotFoundError("Student not found or not your child.")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id int64, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on non-zero QueryFilter fields; ordered by name.
		QueryStudents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id int64, exec ...core.DBExecutor) error
		CountStudents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int64, error)
		// OrphanParentIDs returns the ids of parent accounts without any student.
		OrphanParentIDs(ctx context.Context, exec ...core.DBExecutor) ([]int64, error)
	}

	Service struct {
		tx     core.Transactor
		repo   Repository
		usrSvc *user.Service
	}
)

func NewService(tx core.Transactor, repo Repository, usrSvc *user.Service) *Service {
	return &Service{tx: tx, repo: repo, usrSvc: usrSvc}
}

// Create enrolls a student for teacher, creating the parent account on first use of its email.
func (svc *Service) Create(ctx context.Context, teacher user.User, ns NewStudent) (Student, error) {
	var (
		student Student
		parent  user.ParentAccount
	)
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		parent, err = svc.usrSvc.GetOrCreateParent(ctx, ns.ParentEmail, ns.ParentName, exec)
		if err != nil {
			if errors.Cause(err) == user.ErrNotAParent {
				return core.NewValidationError(err, core.FieldError{Field: "parent_email", Error: err.Error()})
			}
			return errors.Wrap(err, "getting or creating parent")
		}
		parentName := ns.ParentName
		if parentName == "" {
			parentName = parent.User.FullName()
		}
		student, err = svc.repo.CreateStudent(ctx, Student{
			Name:        ns.Name,
			ClassName:   ns.ClassName,
			TeacherID:   teacher.ID,
			ParentID:    parent.User.ID,
			ParentName:  parentName,
			ParentEmail: ns.ParentEmail,
			CreatedAt:   time.Now().UTC(),
		}, exec)
		return errors.Wrap(err, "creating student")
	})
	if err != nil {
		return Student{}, err
	}

	// only mail once the account is committed
	svc.usrSvc.SendParentWelcome(parent, student.Name)
	return student, nil
}

// List returns the students of teacher.
func (svc *Service) List(ctx context.Context, teacher user.User) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, QueryFilter{TeacherID: teacher.ID})
}

// ListByTeacherID returns the students of the teacher with the given id; only that teacher may list them.
func (svc *Service) ListByTeacherID(ctx context.Context, actor user.User, teacherID int64) ([]Student, error) {
	if err := access.Authorize(actor, access.Teacher(teacherID)); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{TeacherID: teacherID})
}

// Children returns the students of parent.
func (svc *Service) Children(ctx context.Context, parent user.User, exec ...core.DBExecutor) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, QueryFilter{ParentID: parent.ID}, exec...)
}

// Get returns the student if actor owns it. Absent and foreign students are both reported as not found.
func (svc *Service) Get(ctx context.Context, actor user.User, id int64, exec ...core.DBExecutor) (Student, error) {
	notFound := ErrNotFound
	if actor.IsParent() {
		notFound = ErrNotYourChild
	}

	s, err := svc.repo.GetStudent(ctx, id, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, notFound
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	if !access.Owns(actor, s) {
		return Student{}, notFound
	}
	return s, nil
}

func (svc *Service) Update(ctx context.Context, teacher user.User, id int64, us UpdateStudent) (Student, error) {
	s, err := svc.Get(ctx, teacher, id)
	if err != nil {
		return Student{}, err
	}
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.ClassName != nil {
		s.ClassName = *us.ClassName
	}
	if us.ParentName != nil {
		s.ParentName = *us.ParentName
	}
	if us.ParentEmail != nil {
		s.ParentEmail = *us.ParentEmail
	}
	return svc.repo.UpdateStudent(ctx, s)
}

// Delete removes the student and, in the same transaction, its parent account if no other student references it.
func (svc *Service) Delete(ctx context.Context, teacher user.User, id int64) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		s, err := svc.Get(ctx, teacher, id, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteStudent(ctx, s.ID, exec); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		return errors.Wrap(svc.SweepOrphanParent(ctx, s.ParentID, exec), "sweeping parent")
	})
}

// SweepOrphanParent deletes the parent account if it has no students left.
func (svc *Service) SweepOrphanParent(ctx context.Context, parentID int64, exec ...core.DBExecutor) error {
	n, err := svc.repo.CountStudents(ctx, QueryFilter{ParentID: parentID}, exec...)
	if err != nil {
		return errors.Wrap(err, "counting children")
	}
	if n > 0 {
		return nil
	}
	return svc.usrSvc.Delete(ctx, []int64{parentID}, exec...)
}

// SweepOrphanParents deletes every parent account without students and returns how many were removed.
func (svc *Service) SweepOrphanParents(ctx context.Context) (int, error) {
	var n int
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		ids, err := svc.repo.OrphanParentIDs(ctx, exec)
		if err != nil {
			return errors.Wrap(err, "finding orphan parents")
		}
		n = len(ids)
		return svc.usrSvc.Delete(ctx, ids, exec)
	})
	return n, err
}
