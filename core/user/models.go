package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kinga/core"
)

type (
	// Role determines which permissions an account holds.
	Role string

	// Permission is a named capability gating one safety operation.
	Permission string
)

// Roles
const (
	RoleStudent   Role = "student"
	RoleStaff     Role = "staff"
	RoleDirection Role = "direction"
)

// Permissions
const (
	PermReportIncident   Permission = "report_incident"
	PermViewNotices      Permission = "view_notices"
	PermTriggerEmergency Permission = "trigger_emergency"
	PermViewCampaigns    Permission = "view_campaigns"
	PermRegisterVisitor  Permission = "register_visitor"
	PermLogIncident      Permission = "log_incident"
	PermCreateNotice     Permission = "create_notice"
	PermViewReports      Permission = "view_reports"
	PermCreateCampaign   Permission = "create_campaign"
	PermBanUser          Permission = "ban_user"
	PermGenerateReport   Permission = "generate_report"
)

var (
	AllRoles = []Role{RoleStudent, RoleStaff, RoleDirection}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Direction", Value: RoleDirection},
	}

	rolePriorities = map[Role]int{
		RoleDirection: 21,
		RoleStaff:     11,
		RoleStudent:   1,
	}

	// rolePermissions is cumulative: each role extends the one below it.
	rolePermissions = map[Role][]Permission{
		RoleStudent: studentPermissions,
		RoleStaff:   staffPermissions,
		RoleDirection: append(staffPermissions[:len(staffPermissions):len(staffPermissions)],
			PermCreateNotice,
			PermViewReports,
			PermCreateCampaign,
			PermBanUser,
			PermGenerateReport,
		),
	}

	studentPermissions = []Permission{
		PermReportIncident,
		PermViewNotices,
		PermTriggerEmergency,
		PermViewCampaigns,
	}
	staffPermissions = append(studentPermissions[:len(studentPermissions):len(studentPermissions)],
		PermRegisterVisitor,
		PermLogIncident,
	)
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func RolePriority(role Role) int {
	return rolePriorities[role]
}

// Permissions returns the permission set of the role.
// An unknown role yields an empty set; callers treat that as a configuration
// error to surface via logging, not a failure.
func (r Role) Permissions() []Permission {
	perms, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

func (r Role) HasPermission(perm Permission) bool {
	for _, p := range rolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}

func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u *User) IsStudent() bool   { return u.Role == RoleStudent }
func (u *User) IsStaff() bool     { return u.Role == RoleStaff }
func (u *User) IsDirection() bool { return u.Role == RoleDirection }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            Role   `json:"role" validate:"omitempty,role"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []Role    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
