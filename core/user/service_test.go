package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/user"
	inmemdb "github.com/trezcool/kinga/storage/database/inmem"
	testutil "github.com/trezcool/kinga/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	repo := inmemdb.NewUserRepository(db)
	return user.NewService(repo, testutil.NewLogger()), repo
}

func TestServiceCreate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Alice Alice",
		Email:           "alice@school.test",
		Role:            user.RoleStudent,
		Password:        "T3leph0ne-b00th",
		PasswordConfirm: "T3leph0ne-b00th",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())
	assert.Empty(t, usr.LastLogin)
	if err := usr.CheckPassword("T3leph0ne-b00th"); err != nil {
		t.Errorf("CheckPassword() failed on the set password: %v", err)
	}
}

func TestServiceCheckUniqueness(t *testing.T) {
	svc, repo := setup(t)

	usr := testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "", user.RoleStudent, true)

	if err := svc.CheckUniqueness("bob@school.test"); err != nil {
		t.Errorf("CheckUniqueness() failed on a free email: %v", err)
	}

	err := svc.CheckUniqueness("alice@school.test")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("CheckUniqueness() error = %v, want *core.ValidationError", err)
	}

	// the account itself is excluded when updating
	if err := svc.CheckUniqueness("alice@school.test", usr); err != nil {
		t.Errorf("CheckUniqueness() failed on the excluded account: %v", err)
	}
}

func TestServiceGetByEmail(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "", user.RoleStudent, true)

	// lookup is cleaned and lowercased
	usr, err := svc.GetByEmail(ctx, "  ALICE@school.test ")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	assert.Equal(t, "alice@school.test", usr.Email)

	if _, err = svc.GetByEmail(ctx, "nobody@school.test"); err != user.ErrNotFound {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestServiceFilter(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "", user.RoleStudent, true, now)
	testutil.CreateUser(t, repo, "Bob Bob", "bob@school.test", "", user.RoleStaff, true, now)
	testutil.CreateUser(t, repo, "Dan Dan", "dan@school.test", "", user.RoleDirection, false, now)

	tests := []struct {
		name       string
		filter     user.QueryFilter
		wantEmails []string
	}{
		{name: "search by name", filter: user.QueryFilter{Search: "alice"}, wantEmails: []string{"alice@school.test"}},
		{name: "search by email", filter: user.QueryFilter{Search: "BOB@"}, wantEmails: []string{"bob@school.test"}},
		{name: "by role", filter: user.QueryFilter{Roles: []user.Role{user.RoleStaff, user.RoleDirection}}, wantEmails: []string{"bob@school.test", "dan@school.test"}},
		{name: "inactive only", filter: user.QueryFilter{IsActive: boolPtr(false)}, wantEmails: []string{"dan@school.test"}},
		{name: "no match", filter: user.QueryFilter{Search: "zed"}, wantEmails: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Filter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Filter() failed: %v", err)
			}
			emails := make([]string, 0, len(users))
			for _, u := range users {
				emails = append(emails, u.Email)
			}
			assert.ElementsMatch(t, tt.wantEmails, emails)
		})
	}
}

func TestServiceSetActive(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "", user.RoleStudent, true)

	usr, err := svc.SetActive(ctx, "alice@school.test", false)
	if err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	assert.False(t, usr.Active())

	// account data survives the ban
	usr, err = svc.GetByEmail(ctx, "alice@school.test")
	if err != nil {
		t.Fatalf("GetByEmail() failed after ban: %v", err)
	}
	assert.Equal(t, "Alice Alice", usr.Name)

	usr, err = svc.SetActive(ctx, "alice@school.test", true)
	if err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	assert.True(t, usr.Active())

	if _, err = svc.SetActive(ctx, "nobody@school.test", false); err != user.ErrNotFound {
		t.Errorf("SetActive() error = %v, want ErrNotFound", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "0ld-Passw0rd!", user.RoleStudent, true)

	updated, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Alice B", Password: "T3leph0ne-b00th", PasswordConfirm: "T3leph0ne-b00th"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, usr.Email, updated.Email) // untouched fields survive
	if err := updated.CheckPassword("T3leph0ne-b00th"); err != nil {
		t.Errorf("CheckPassword() failed on the new password: %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr1 := testutil.CreateUser(t, repo, "Alice Alice", "alice@school.test", "", user.RoleStudent, true)
	usr2 := testutil.CreateUser(t, repo, "Bob Bob", "bob@school.test", "", user.RoleStaff, true)

	if err := svc.Delete(ctx, usr1.ID, usr2.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := svc.GetByID(ctx, usr1.ID); err != user.ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound after delete", err)
	}
}

func boolPtr(b bool) *bool { return &b }
