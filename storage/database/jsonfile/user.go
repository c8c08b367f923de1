package jsonfiledb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kinga/core/user"
)

// jsonUser is the stored form of an account: it carries the credential hash
// that user.User hides from JSON serialization.
type jsonUser struct {
	user.User
	StoredPasswordHash []byte `json:"password_hash"`
}

func (ju *jsonUser) toUser() user.User {
	usr := ju.User
	usr.PasswordHash = ju.StoredPasswordHash
	return usr
}

func fromUser(usr user.User) *jsonUser {
	return &jsonUser{User: usr, StoredPasswordHash: usr.PasswordHash}
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, u.toUser())
	}
	return users
}

// persist writes the users collection; callers must hold db.mu and roll the
// in-memory state back on error so memory and disk never diverge.
func (repo *userRepository) persist() error {
	return repo.db.save(usersFile, repo.db.users)
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n == 0 {
		return false
	}
	if idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID }); idx < n {
		return excludedUsers[idx].ID == usr.ID
	}
	return false
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = fromUser(usr)
	if err := repo.persist(); err != nil {
		delete(repo.db.users, usr.ID)
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr.toUser(), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.query()

	if filter.Search != "" {
		var filtered []user.User
		search := strings.ToLower(filter.Search)
		for _, usr := range users {
			if strings.Contains(strings.ToLower(usr.Name), search) ||
				strings.Contains(strings.ToLower(usr.Email), search) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}

	if len(filter.Roles) > 0 {
		var filtered []user.User
		for _, usr := range users {
			for _, role := range filter.Roles {
				if usr.Role == role {
					filtered = append(filtered, usr)
					break
				}
			}
		}
		users = filtered
	}

	if filter.IsActive != nil {
		var filtered []user.User
		for _, usr := range users {
			if usr.Active() == *filter.IsActive {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}

	if !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		for _, usr := range users {
			if !usr.CreatedAt.Before(filter.CreatedFrom) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}

	if !filter.CreatedTo.IsZero() {
		var filtered []user.User
		for _, usr := range users {
			if !usr.CreatedAt.After(filter.CreatedTo) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}

	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	updated := orig.toUser()
	if usr.Name != "" {
		updated.Name = usr.Name
	}
	if usr.Email != "" {
		updated.Email = usr.Email
	}
	if usr.Role != "" {
		updated.Role = usr.Role
	}
	if usr.PasswordHash != nil {
		updated.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		updated.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		updated.UpdatedAt = usr.UpdatedAt
	}
	if isActive != nil {
		active := *isActive
		updated.IsActive = &active
	}

	repo.db.users[usr.ID] = fromUser(updated)
	if err := repo.persist(); err != nil {
		repo.db.users[usr.ID] = orig
		return user.User{}, err
	}
	return updated, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	deleted := make(map[string]*jsonUser, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			deleted[id] = usr
			delete(repo.db.users, id)
		}
	}
	if err := repo.persist(); err != nil {
		for id, usr := range deleted {
			repo.db.users[id] = usr
		}
		return err
	}
	return nil
}
