package authz

// Role is the closed set of account roles. Every authorization decision is a
// function of the actor's role and, for owned resources, the owner id.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Action is the closed set of gated operations.
type Action string

const (
	ActionAssignmentCreate Action = "assignment:create"
	ActionAssignmentManage Action = "assignment:manage" // update/delete
	ActionAssignmentView   Action = "assignment:view"
	ActionAssignmentSubmit Action = "assignment:submit"
	ActionSubmissionView   Action = "submission:view"
	ActionSubmissionGrade  Action = "submission:grade"
	ActionMessageSend      Action = "message:send"
	ActionTeacherList      Action = "teacher:list"
	ActionTeacherMessage   Action = "teacher:message"
	ActionRegistrationView Action = "registration:view"
	ActionUserList         Action = "user:list"
)

var Actions = []Action{
	ActionAssignmentCreate,
	ActionAssignmentManage,
	ActionAssignmentView,
	ActionAssignmentSubmit,
	ActionSubmissionView,
	ActionSubmissionGrade,
	ActionMessageSend,
	ActionTeacherList,
	ActionTeacherMessage,
	ActionRegistrationView,
	ActionUserList,
}

// permissions is total over Actions x Roles; a missing entry denies.
var permissions = map[Action]map[Role]bool{
	ActionAssignmentCreate: {RoleAdmin: true, RoleTeacher: true},
	ActionAssignmentManage: {RoleAdmin: true, RoleTeacher: true},
	ActionAssignmentView:   {RoleAdmin: true, RoleTeacher: true, RoleStudent: true},
	ActionAssignmentSubmit: {RoleStudent: true},
	ActionSubmissionView:   {RoleAdmin: true, RoleTeacher: true},
	ActionSubmissionGrade:  {RoleAdmin: true, RoleTeacher: true},
	ActionMessageSend:      {RoleAdmin: true, RoleTeacher: true, RoleStudent: true, RoleParent: true},
	ActionTeacherList:      {RoleAdmin: true, RoleStudent: true, RoleParent: true},
	ActionTeacherMessage:   {RoleStudent: true, RoleParent: true},
	ActionRegistrationView: {RoleAdmin: true},
	ActionUserList:         {RoleAdmin: true},
}

// Allowed reports whether the role may perform the action at all. Ownership
// restrictions on manage/grade/view-submission actions are checked separately
// with CanModify.
func Allowed(role Role, action Action) bool {
	return permissions[action][role]
}

// CanModify reports whether the actor may mutate a resource owned by ownerID.
// Admins bypass ownership.
func CanModify(role Role, actorID, ownerID uint) bool {
	if role == RoleAdmin {
		return true
	}
	return actorID == ownerID
}
