package user

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kinga/core"
)

func getFieldTag(t *testing.T, err error) string {
	t.Helper()
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("expected validator.ValidationErrors, got %T: %v", err, err)
	}
	return vErrs[0].Tag()
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		usrName string
		email   string
		wantTag string
	}{
		{name: "too short", pwd: "Sh0rt!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "No Spaces0!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no uppercase", pwd: "weak-pass1", wantTag: pwdComplexityTag},
		{name: "no digit", pwd: "Weak-Pass!", wantTag: pwdComplexityTag},
		{name: "no special", pwd: "WeakPass123", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "awe-test-cd9X!", usrName: "awe-test-cd", wantTag: pwdAttrSimTag},
		{name: "similar to email", pwd: "Awe@test.cd1", email: "awe@test.cd", wantTag: pwdAttrSimTag},
		{name: "common password", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "good password", pwd: "T3leph0ne-b00th"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            stringOrDefault(tt.usrName, "Abc Def"),
				Email:           stringOrDefault(tt.email, "abcdef@example.org"),
				Role:            RoleStudent,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := core.Validate.Struct(nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Validate.Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate.Struct() passed, want policy error")
			}
			if tag := getFieldTag(t, err); tag != tt.wantTag {
				t.Errorf("Validate.Struct() tag = %q, want %q", tag, tt.wantTag)
			}
		})
	}
}

func TestNewUserRoleValidation(t *testing.T) {
	nu := NewUser{
		Name:            "Abc Def",
		Email:           "abcdef@example.org",
		Role:            Role("janitor"),
		Password:        "T3leph0ne-b00th",
		PasswordConfirm: "T3leph0ne-b00th",
	}
	err := core.Validate.Struct(nu)
	if err == nil {
		t.Fatal("Validate.Struct() passed on an unknown role")
	}
	if tag := getFieldTag(t, err); tag != roleTag {
		t.Errorf("Validate.Struct() tag = %q, want %q", tag, roleTag)
	}
}

func stringOrDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
