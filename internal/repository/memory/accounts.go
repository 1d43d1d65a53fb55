// Package memory holds mutex-guarded stores with the same contracts as the
// gorm repositories. They back tests and the "memory" database driver.
package memory

import (
	"context"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"sort"
	"sync"
	"time"
)

type TeamStore struct {
	mu     sync.RWMutex
	nextID uint
	teams  map[uint]model.Team
}

func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[uint]model.Team)}
}

func (s *TeamStore) Create(_ context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.Email == team.Email || t.StudentID == team.StudentID {
			return util.ErrDuplicate
		}
	}
	s.nextID++
	now := time.Now()
	team.ID = s.nextID
	team.CreatedAt = now
	team.UpdatedAt = now
	s.teams[team.ID] = *team
	return nil
}

func (s *TeamStore) FindByID(_ context.Context, id uint) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, util.ErrTeamNotFound
	}
	return &t, nil
}

func (s *TeamStore) FindByEmail(_ context.Context, email string) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.Email == email {
			return &t, nil
		}
	}
	return nil, util.ErrTeamNotFound
}

func (s *TeamStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *TeamStore) ExistsByStudentID(_ context.Context, studentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TeamStore) List(_ context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID > teams[j].ID })
	return teams, nil
}

func (s *TeamStore) FindByIDs(_ context.Context, ids []uint) (map[uint]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[uint]model.Team, len(ids))
	for _, id := range ids {
		if t, ok := s.teams[id]; ok {
			result[id] = t
		}
	}
	return result, nil
}

type AdminStore struct {
	mu     sync.RWMutex
	nextID uint
	admins map[uint]model.Admin
}

func NewAdminStore() *AdminStore {
	return &AdminStore{admins: make(map[uint]model.Admin)}
}

func (s *AdminStore) Create(_ context.Context, admin *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == admin.Email {
			return util.ErrEmailRegistered
		}
	}
	s.nextID++
	now := time.Now()
	admin.ID = s.nextID
	admin.CreatedAt = now
	admin.UpdatedAt = now
	s.admins[admin.ID] = *admin
	return nil
}

func (s *AdminStore) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, util.ErrAdminNotFound
}

func (s *AdminStore) FindByID(_ context.Context, id uint) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return nil, util.ErrAdminNotFound
	}
	return &a, nil
}
