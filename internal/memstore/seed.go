package memstore

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/bissquit/timesheet/internal/domain"
)

// Seed loads demo data: an employee, a manager and an admin, three projects
// managed by the manager and three entries on the three days up to now.
func (s *Store) Seed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	john := s.seedUser("john.doe", "John Doe", domain.RoleEmployee)
	jane := s.seedUser("jane.smith", "Jane Smith", domain.RoleManager)
	s.seedUser("admin", "Admin User", domain.RoleAdmin)

	website := s.seedProject(domain.Project{
		Name:        "Website Redesign",
		Description: strPtr("Complete redesign of company website"),
		StartDate:   civil.Date{Year: 2024, Month: time.November, Day: 1},
		EndDate:     civil.Date{Year: 2025, Month: time.January, Day: 15},
		Status:      domain.ProjectStatusActive,
		IsPriority:  true,
		ManagerID:   &jane,
	})
	mobile := s.seedProject(domain.Project{
		Name:        "Mobile App Development",
		Description: strPtr("Native mobile application development"),
		StartDate:   civil.Date{Year: 2024, Month: time.December, Day: 1},
		EndDate:     civil.Date{Year: 2025, Month: time.March, Day: 1},
		Status:      domain.ProjectStatusPending,
		ManagerID:   &jane,
	})
	migration := s.seedProject(domain.Project{
		Name:        "Database Migration",
		Description: strPtr("Legacy database migration to cloud"),
		StartDate:   civil.Date{Year: 2024, Month: time.October, Day: 1},
		EndDate:     civil.Date{Year: 2024, Month: time.December, Day: 15},
		Status:      domain.ProjectStatusClosed,
		ManagerID:   &jane,
	})

	for _, projectID := range []string{website, mobile, migration} {
		id := uuid.NewString()
		s.assignments[id] = domain.ProjectAssignment{ID: id, UserID: john, ProjectID: projectID}
	}

	today := civil.DateOf(now)
	s.seedEntry(john, website, today, 4*domain.Hour, "Frontend development work", now)
	s.seedEntry(john, mobile, today.AddDays(-1), domain.HoursFromFloat(6.5), "Mobile UI implementation", now.AddDate(0, 0, -1))
	s.seedEntry(john, migration, today.AddDays(-2), 8*domain.Hour, "Database schema migration", now.AddDate(0, 0, -2))
}

func (s *Store) seedUser(username, name string, role domain.Role) string {
	id := uuid.NewString()
	s.users[id] = domain.User{ID: id, Username: username, Name: name, Role: role}
	return id
}

func (s *Store) seedProject(p domain.Project) string {
	p.ID = uuid.NewString()
	s.projects[p.ID] = p
	return p.ID
}

func (s *Store) seedEntry(userID, projectID string, date civil.Date, hours domain.Hours, desc string, at time.Time) {
	id := uuid.NewString()
	s.entries[id] = domain.TimeEntry{
		ID:          id,
		UserID:      userID,
		ProjectID:   projectID,
		Date:        date,
		Hours:       hours,
		Description: strPtr(desc),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func strPtr(s string) *string {
	return &s
}
