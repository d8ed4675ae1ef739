// Package access decides what an authenticated user may do.
//
// Two checks apply to every protected operation: the role must hold the operation's
// Capability, and the user must own the Resource the operation targets.
package access

import (
	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
)

type Capability string

const (
	CapProfileView     Capability = "profile:view"
	CapTeacherView     Capability = "teacher:view"
	CapStudentManage   Capability = "student:manage"
	CapQuizManage      Capability = "quiz:manage"
	CapQuestionView    Capability = "question:view"
	CapScoresView      Capability = "scores:view"
	CapResultsView     Capability = "results:view"
	CapChildrenView    Capability = "children:view"
	CapQuizBrowse      Capability = "quiz:browse"
	CapAttemptCreate   Capability = "attempt:create"
	CapAttemptSubmit   Capability = "attempt:submit"
	CapPerformanceView Capability = "performance:view"
)

var ErrPermissionDenied = core.NewPermissionError("Permission denied.")

// RoleCapabilities is the capability table.
var RoleCapabilities = map[user.Role][]Capability{
	user.RoleTeacher: {
		CapProfileView,
		CapTeacherView,
		CapStudentManage,
		CapQuizManage,
		CapQuestionView,
		CapScoresView,
		CapResultsView,
	},
	user.RoleParent: {
		CapProfileView,
		CapTeacherView,
		CapQuestionView,
		CapResultsView,
		CapChildrenView,
		CapQuizBrowse,
		CapAttemptCreate,
		CapAttemptSubmit,
		CapPerformanceView,
	},
}

// Can reports whether role holds capability c.
func Can(role user.Role, c Capability) bool {
	for _, have := range RoleCapabilities[role] {
		if have == c {
			return true
		}
	}
	return false
}

// Check returns ErrPermissionDenied unless actor is active and its role holds c.
func Check(actor user.User, c Capability) error {
	if !actor.IsActive || !Can(actor.Role, c) {
		return ErrPermissionDenied
	}
	return nil
}

// Owners names the users owning a resource; zero means "nobody of that role".
type Owners struct {
	TeacherID int64
	ParentID  int64
}

// Resource is anything owned by a teacher and/or a parent.
type Resource interface {
	Owners() Owners
}

// Teacher is the scope of resources belonging to the teacher with this id.
type Teacher int64

func (t Teacher) Owners() Owners { return Owners{TeacherID: int64(t)} }

// Authorize returns ErrPermissionDenied unless actor owns res in its role.
func Authorize(actor user.User, res Resource) error {
	o := res.Owners()
	switch actor.Role {
	case user.RoleTeacher:
		if o.TeacherID != 0 && o.TeacherID == actor.ID {
			return nil
		}
	case user.RoleParent:
		if o.ParentID != 0 && o.ParentID == actor.ID {
			return nil
		}
	}
	return ErrPermissionDenied
}

// Owns reports whether actor owns res.
func Owns(actor user.User, res Resource) bool {
	return Authorize(actor, res) == nil
}
