// Package memory keeps the whole ledger in process. It backs STORE=memory
// and the service tests, and follows the same contracts as the Postgres
// repositories: one lock per store makes every operation atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/users"
)

type Store struct {
	mu             sync.Mutex
	seq            int64
	now            func() time.Time
	defaultCredits int

	users      map[string]*domain.User
	byFirebase map[string]string
	projects   map[string]*domain.Project
	versions   map[string][]domain.Version
	entries    map[string][]domain.ConversationEntry
	runs       map[string]*domain.RevisionRun
}

func NewStore(defaultCredits int) *Store {
	return &Store{
		now:            func() time.Time { return time.Now().UTC() },
		defaultCredits: defaultCredits,
		users:          make(map[string]*domain.User),
		byFirebase:     make(map[string]string),
		projects:       make(map[string]*domain.Project),
		versions:       make(map[string][]domain.Version),
		entries:        make(map[string][]domain.ConversationEntry),
		runs:           make(map[string]*domain.RevisionRun),
	}
}

// SetClock replaces the timestamp source. Tests use it to force equal
// timestamps and exercise the seq tie-breaker.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Projects() *Projects           { return &Projects{s} }
func (s *Store) Versions() *Versions           { return &Versions{s} }
func (s *Store) Conversations() *Conversations { return &Conversations{s} }
func (s *Store) Credits() *Credits             { return &Credits{s} }
func (s *Store) Users() *Users                 { return &Users{s} }

// ---- users ----

type Users struct{ s *Store }

// EnsureUser mirrors the upsert in users.Repo: first sight creates the user
// with the default credit grant, later calls refresh profile fields.
func (u *Users) EnsureUser(_ context.Context, in users.UpsertUser) (string, error) {
	if in.FirebaseUID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byFirebase[in.FirebaseUID]; ok {
		usr := s.users[id]
		if in.Email != "" {
			usr.Email = in.Email
		}
		if in.DisplayName != "" {
			usr.DisplayName = in.DisplayName
		}
		if in.PhotoURL != "" {
			usr.PhotoURL = in.PhotoURL
		}
		usr.UpdatedAt = s.now()
		return id, nil
	}

	now := s.now()
	usr := &domain.User{
		ID:          uuid.NewString(),
		FirebaseUID: in.FirebaseUID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		PhotoURL:    in.PhotoURL,
		Credits:     s.defaultCredits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.users[usr.ID] = usr
	s.byFirebase[usr.FirebaseUID] = usr.ID
	return usr.ID, nil
}

func (u *Users) GetUser(_ context.Context, userID string) (*domain.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *usr
	return &cp, nil
}

// UpdateProfile sets the non-nil fields; an empty string clears the field.
func (u *Users) UpdateProfile(_ context.Context, userID string, in users.ProfileUpdate) (*domain.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if in.DisplayName != nil {
		usr.DisplayName = *in.DisplayName
	}
	if in.PhotoURL != nil {
		usr.PhotoURL = *in.PhotoURL
	}
	usr.UpdatedAt = s.now()
	cp := *usr
	return &cp, nil
}

// Seed creates a user with an explicit balance and returns its id.
func (u *Users) Seed(firebaseUID, displayName string, credits int) string {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	usr := &domain.User{
		ID:          uuid.NewString(),
		FirebaseUID: firebaseUID,
		DisplayName: displayName,
		Credits:     credits,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	s.users[usr.ID] = usr
	s.byFirebase[firebaseUID] = usr.ID
	return usr.ID
}

// ---- projects ----

type Projects struct{ s *Store }

func (p *Projects) Create(_ context.Context, in domain.CreateProjectInput) (*domain.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name required: %w", domain.ErrInvalidRequest)
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[in.UserID]; !ok {
		return nil, domain.ErrNotFound
	}
	now := s.now()
	proj := &domain.Project{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		Name:          in.Name,
		InitialPrompt: in.InitialPrompt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.projects[proj.ID] = proj
	return cloneProject(proj), nil
}

func (p *Projects) GetOwned(_ context.Context, projectID, userID string) (*domain.Project, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok || proj.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return cloneProject(proj), nil
}

func (p *Projects) GetPublished(_ context.Context, projectID string) (*domain.Project, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok || !proj.IsPublished {
		return nil, domain.ErrNotFound
	}
	return cloneProject(proj), nil
}

func (p *Projects) ListOwned(_ context.Context, userID string) ([]domain.Project, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Project, 0, 8)
	for _, proj := range s.projects {
		if proj.UserID == userID {
			out = append(out, *cloneProject(proj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (p *Projects) ListPublished(_ context.Context) ([]domain.PublishedProject, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PublishedProject, 0, 8)
	for _, proj := range s.projects {
		if !proj.IsPublished {
			continue
		}
		pp := domain.PublishedProject{Project: *cloneProject(proj)}
		if usr, ok := s.users[proj.UserID]; ok {
			pp.OwnerName = usr.DisplayName
		}
		out = append(out, pp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (p *Projects) SetPublished(_ context.Context, projectID, userID string, published bool) (*domain.Project, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok || proj.UserID != userID {
		return nil, domain.ErrNotFound
	}
	proj.IsPublished = published
	proj.UpdatedAt = s.now()
	return cloneProject(proj), nil
}

func (p *Projects) Delete(_ context.Context, projectID, userID string) (bool, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok || proj.UserID != userID {
		return false, nil
	}
	delete(s.projects, projectID)
	delete(s.versions, projectID)
	delete(s.entries, projectID)
	for _, run := range s.runs {
		if run.ProjectID == projectID {
			run.ProjectID = ""
		}
	}
	return true, nil
}

func cloneProject(p *domain.Project) *domain.Project {
	c := *p
	if p.CurrentCode != nil {
		code := *p.CurrentCode
		c.CurrentCode = &code
	}
	if p.CurrentVersionID != nil {
		id := *p.CurrentVersionID
		c.CurrentVersionID = &id
	}
	return &c
}

// ---- versions ----

type Versions struct{ s *Store }

func (v *Versions) Commit(_ context.Context, in domain.CommitVersionInput) (*domain.Version, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("code required: %w", domain.ErrInvalidRequest)
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[in.ProjectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var run *domain.RevisionRun
	if in.RunID != "" {
		run, ok = s.runs[in.RunID]
		if !ok || run.Status != domain.RunDebited {
			return nil, domain.ErrRunSettled
		}
	}

	ver := domain.Version{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Code:        in.Code,
		Description: in.Description,
		Seq:         s.nextSeq(),
		CreatedAt:   s.now(),
	}
	s.versions[in.ProjectID] = append(s.versions[in.ProjectID], ver)
	setCurrent(proj, ver, s.now())

	if run != nil {
		settled := s.now()
		run.Status = domain.RunCompleted
		run.VersionID = &ver.ID
		run.SettledAt = &settled
	}
	return &ver, nil
}

func (v *Versions) Activate(_ context.Context, projectID, versionID string) (*domain.Version, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, ver := range s.versions[projectID] {
		if ver.ID == versionID {
			setCurrent(proj, ver, s.now())
			out := ver
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *Versions) Get(_ context.Context, projectID, versionID string) (*domain.Version, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ver := range s.versions[projectID] {
		if ver.ID == versionID {
			out := ver
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *Versions) List(_ context.Context, projectID string) ([]domain.Version, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Version{}, s.versions[projectID]...), nil
}

func setCurrent(p *domain.Project, v domain.Version, at time.Time) {
	code, id := v.Code, v.ID
	p.CurrentCode = &code
	p.CurrentVersionID = &id
	p.UpdatedAt = at
}

// ---- conversation ----

type Conversations struct{ s *Store }

func (c *Conversations) Append(_ context.Context, projectID string, role domain.Role, content string) (*domain.ConversationEntry, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, domain.ErrInvalidRequest)
	}
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, domain.ErrNotFound
	}
	e := domain.ConversationEntry{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		Seq:       s.nextSeq(),
		CreatedAt: s.now(),
	}
	s.entries[projectID] = append(s.entries[projectID], e)
	return &e, nil
}

func (c *Conversations) List(_ context.Context, projectID string) ([]domain.ConversationEntry, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.ConversationEntry{}, s.entries[projectID]...), nil
}

// ---- credits ----

type Credits struct{ s *Store }

func (c *Credits) Balance(_ context.Context, userID string) (int, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return usr.Credits, nil
}

// Debit is the raw guarded debit behind Charge.
func (c *Credits) Debit(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debit(userID, amount)
}

// Credit is the raw increment behind Refund.
func (c *Credits) Credit(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	usr.Credits += amount
	return usr.Credits, nil
}

func (s *Store) debit(userID string, amount int) (int, error) {
	usr, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if usr.Credits < amount {
		return 0, domain.ErrInsufficientCredits
	}
	usr.Credits -= amount
	return usr.Credits, nil
}

func (c *Credits) Charge(_ context.Context, userID, projectID string, amount int) (*domain.RevisionRun, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("charge amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.debit(userID, amount); err != nil {
		return nil, err
	}
	run := &domain.RevisionRun{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Amount:    amount,
		Status:    domain.RunDebited,
		CreatedAt: s.now(),
	}
	s.runs[run.ID] = run
	out := *run
	return &out, nil
}

func (c *Credits) Refund(_ context.Context, runID, reason string) (bool, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok || run.Status != domain.RunDebited {
		return false, nil
	}
	usr, ok := s.users[run.UserID]
	if !ok {
		return false, domain.ErrNotFound
	}
	settled := s.now()
	run.Status = domain.RunRefunded
	run.Failure = reason
	run.SettledAt = &settled
	usr.Credits += run.Amount
	return true, nil
}

func (c *Credits) StaleRuns(_ context.Context, olderThan time.Duration) ([]domain.RevisionRun, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	out := make([]domain.RevisionRun, 0, 4)
	for _, run := range s.runs {
		if run.Status == domain.RunDebited && run.CreatedAt.Before(cutoff) {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Run returns a copy of a journal row, for inspection in tests and audits.
func (c *Credits) Run(runID string) (domain.RevisionRun, bool) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return domain.RevisionRun{}, false
	}
	return *run, true
}
