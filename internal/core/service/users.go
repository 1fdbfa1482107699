package service

import (
	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
)

// UserService registers users on first contact.
type UserService struct {
	stores *memory.Stores
	clock  runloop.Clock
}

// NewUserService creates a new UserService.
func NewUserService(stores *memory.Stores, clock runloop.Clock) *UserService {
	return &UserService{stores: stores, clock: clock}
}

// GetOrCreate returns the user record of caller, creating it on first
// contact. The flag reports whether the record was created by this call.
func (s *UserService) GetOrCreate(caller domain.Principal) (domain.User, bool, error) {
	if caller.IsAnonymous() {
		return domain.User{}, false, domain.ErrAnonymousCaller
	}

	if u, ok := s.stores.Users.Get(caller); ok {
		return u, false, nil
	}

	u := domain.NewUser(caller, s.clock.Now())
	s.stores.Users.Upsert(caller, u)
	return u, true, nil
}

// Get returns the user record of p, if registered.
func (s *UserService) Get(p domain.Principal) (domain.User, bool) {
	return s.stores.Users.Get(p)
}

// Count returns the number of registered users.
func (s *UserService) Count() int {
	return s.stores.Users.Len()
}
