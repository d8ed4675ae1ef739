package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mathinsight/core/user"
)

type owned Owners

func (o owned) Owners() Owners { return Owners(o) }

func TestCan(t *testing.T) {
	teacherOnly := []Capability{CapStudentManage, CapQuizManage, CapScoresView}
	parentOnly := []Capability{CapChildrenView, CapQuizBrowse, CapAttemptCreate, CapAttemptSubmit, CapPerformanceView}
	shared := []Capability{CapProfileView, CapTeacherView, CapQuestionView, CapResultsView}

	for _, c := range teacherOnly {
		assert.True(t, Can(user.RoleTeacher, c), c)
		assert.False(t, Can(user.RoleParent, c), c)
	}
	for _, c := range parentOnly {
		assert.True(t, Can(user.RoleParent, c), c)
		assert.False(t, Can(user.RoleTeacher, c), c)
	}
	for _, c := range shared {
		assert.True(t, Can(user.RoleTeacher, c), c)
		assert.True(t, Can(user.RoleParent, c), c)
	}
	assert.False(t, Can(user.Role("admin"), CapProfileView))
}

func TestCheck(t *testing.T) {
	teacher := user.User{ID: 1, Role: user.RoleTeacher, IsActive: true}
	inactive := user.User{ID: 2, Role: user.RoleTeacher}

	assert.NoError(t, Check(teacher, CapQuizManage))
	assert.Equal(t, ErrPermissionDenied, Check(teacher, CapAttemptSubmit))
	assert.Equal(t, ErrPermissionDenied, Check(inactive, CapQuizManage))
}

func TestAuthorize(t *testing.T) {
	teacher := user.User{ID: 1, Role: user.RoleTeacher, IsActive: true}
	parent := user.User{ID: 2, Role: user.RoleParent, IsActive: true}

	tests := []struct {
		name    string
		actor   user.User
		res     Resource
		wantErr error
	}{
		{name: "teacher owns", actor: teacher, res: owned{TeacherID: 1}},
		{name: "teacher does not own", actor: teacher, res: owned{TeacherID: 9}, wantErr: ErrPermissionDenied},
		{name: "teacher vs parent-owned", actor: teacher, res: owned{ParentID: 1}, wantErr: ErrPermissionDenied},
		{name: "parent owns", actor: parent, res: owned{TeacherID: 1, ParentID: 2}},
		{name: "parent does not own", actor: parent, res: owned{ParentID: 3}, wantErr: ErrPermissionDenied},
		{name: "parent vs teacher scope", actor: parent, res: Teacher(2), wantErr: ErrPermissionDenied},
		{name: "teacher scope", actor: teacher, res: Teacher(1)},
		{name: "unowned", actor: teacher, res: owned{}, wantErr: ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, Authorize(tt.actor, tt.res))
			assert.Equal(t, tt.wantErr == nil, Owns(tt.actor, tt.res))
		})
	}
}
