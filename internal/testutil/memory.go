// Package testutil provides in-memory repositories for service and handler
// tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/google/uuid"
)

// Store holds every in-memory table. Repositories created from the same
// Store see each other's rows.
type Store struct {
	mu            sync.Mutex
	users         map[string]types.User
	clients       map[string]types.Client
	institutions  map[string]types.Institution
	psychologists map[string]types.Psychologist
	articles      map[string]types.Article
	order         map[string]int
	seq           int

	// ClientProfileErr, when set, makes client profile creation fail.
	ClientProfileErr error
}

func NewStore() *Store {
	return &Store{
		users:         map[string]types.User{},
		clients:       map[string]types.Client{},
		institutions:  map[string]types.Institution{},
		psychologists: map[string]types.Psychologist{},
		articles:      map[string]types.Article{},
		order:         map[string]int{},
	}
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Clients() *Clients             { return &Clients{s} }
func (s *Store) Institutions() *Institutions   { return &Institutions{s} }
func (s *Store) Psychologists() *Psychologists { return &Psychologists{s} }
func (s *Store) Articles() *Articles           { return &Articles{s} }

func (s *Store) stamp(id string) time.Time {
	s.seq++
	s.order[id] = s.seq
	return time.Now()
}

func window[T any](items []T, offset, limit int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T{}, items[offset:end]...)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// Users implements the user repository.
type Users struct{ s *Store }

func (r *Users) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *Users) List(_ context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]types.User, 0)
	for _, user := range r.s.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return r.s.order[users[i].ID] < r.s.order[users[j].ID] })
	return window(users, offset, limit), len(users), nil
}

func (r *Users) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if r.emailTaken(user.Email, "") {
		return types.User{}, store.ErrConflict
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.stamp(user.ID)
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = user
	return user, nil
}

func (r *Users) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if r.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrConflict
	}
	user.Role = current.Role
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = user
	return user, nil
}

// CreateWithClient inserts a user and its client profile, or neither.
func (r *Users) CreateWithClient(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if r.emailTaken(user.Email, "") {
		return types.User{}, store.ErrConflict
	}
	if r.s.ClientProfileErr != nil {
		return types.User{}, r.s.ClientProfileErr
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.stamp(user.ID)
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = user

	client := types.Client{ID: uuid.NewString(), UserID: user.ID}
	client.CreatedAt = r.s.stamp(client.ID)
	client.UpdatedAt = client.CreatedAt
	r.s.clients[client.ID] = client
	return user, nil
}

func (r *Users) emailTaken(email, exceptID string) bool {
	for id, existing := range r.s.users {
		if id != exceptID && existing.Email == email {
			return true
		}
	}
	return false
}

// Clients implements the client repository.
type Clients struct{ s *Store }

func (r *Clients) GetByUserID(_ context.Context, userID string) (types.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, client := range r.s.clients {
		if client.UserID == userID {
			return client, nil
		}
	}
	return types.Client{}, store.ErrNotFound
}

func (r *Clients) Update(_ context.Context, client types.Client) (types.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[client.ID]; !ok {
		return types.Client{}, store.ErrNotFound
	}
	client.UpdatedAt = time.Now()
	r.s.clients[client.ID] = client
	return client, nil
}

// Institutions implements the institution repository.
type Institutions struct{ s *Store }

func (r *Institutions) Get(_ context.Context, id string) (types.Institution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inst, ok := r.s.institutions[id]
	if !ok {
		return types.Institution{}, store.ErrNotFound
	}
	return inst, nil
}

func (r *Institutions) List(_ context.Context, filter types.InstitutionFilter, offset, limit int) ([]types.Institution, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	city := strings.ToLower(strings.TrimSpace(filter.City))
	items := make([]types.Institution, 0)
	for _, inst := range r.s.institutions {
		if city != "" && !strings.Contains(strings.ToLower(inst.Address), city) {
			continue
		}
		if filter.Verified != nil && inst.IsVerified != *filter.Verified {
			continue
		}
		items = append(items, inst)
	}
	sort.Slice(items, func(i, j int) bool { return r.s.order[items[i].ID] < r.s.order[items[j].ID] })
	return window(items, offset, limit), len(items), nil
}

func (r *Institutions) Create(_ context.Context, inst types.Institution) (types.Institution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.institutions {
		if existing.UserID == inst.UserID {
			return types.Institution{}, store.ErrConflict
		}
	}
	inst.ID = uuid.NewString()
	inst.CreatedAt = r.s.stamp(inst.ID)
	inst.UpdatedAt = inst.CreatedAt
	r.s.institutions[inst.ID] = inst
	return inst, nil
}

func (r *Institutions) Update(_ context.Context, inst types.Institution) (types.Institution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.institutions[inst.ID]
	if !ok {
		return types.Institution{}, store.ErrNotFound
	}
	inst.PsychologistsCount = current.PsychologistsCount
	inst.UpdatedAt = time.Now()
	r.s.institutions[inst.ID] = inst
	return inst, nil
}

func (r *Institutions) RefreshPsychologistCount(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inst, ok := r.s.institutions[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	count := 0
	for _, p := range r.s.psychologists {
		if p.InstitutionID != nil && *p.InstitutionID == id {
			count++
		}
	}
	inst.PsychologistsCount = count
	r.s.institutions[id] = inst
	return count, nil
}

// Psychologists implements the psychologist repository.
type Psychologists struct{ s *Store }

func (r *Psychologists) Get(_ context.Context, id string) (types.Psychologist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.psychologists[id]
	if !ok {
		return types.Psychologist{}, store.ErrNotFound
	}
	return p, nil
}

func (r *Psychologists) List(_ context.Context, filter types.PsychologistFilter, offset, limit int) ([]types.Psychologist, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]types.Psychologist, 0)
	for _, p := range r.s.psychologists {
		if filter.Specialization != "" && !contains(p.Specializations, strings.TrimSpace(filter.Specialization)) {
			continue
		}
		if filter.City != "" && !strings.EqualFold(p.Location.City, strings.TrimSpace(filter.City)) {
			continue
		}
		if filter.MinRating != nil && p.Rating < *filter.MinRating {
			continue
		}
		if filter.InstitutionID != "" && (p.InstitutionID == nil || *p.InstitutionID != filter.InstitutionID) {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		return r.s.order[items[i].ID] < r.s.order[items[j].ID]
	})
	return window(items, offset, limit), len(items), nil
}

func (r *Psychologists) Create(_ context.Context, p types.Psychologist) (types.Psychologist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.psychologists {
		if existing.UserID == p.UserID {
			return types.Psychologist{}, store.ErrConflict
		}
	}
	if p.InstitutionID != nil {
		if _, ok := r.s.institutions[*p.InstitutionID]; !ok {
			return types.Psychologist{}, store.ErrInvalidReference
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.s.stamp(p.ID)
	p.UpdatedAt = p.CreatedAt
	r.s.psychologists[p.ID] = p
	return p, nil
}

func (r *Psychologists) Update(_ context.Context, p types.Psychologist) (types.Psychologist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.psychologists[p.ID]; !ok {
		return types.Psychologist{}, store.ErrNotFound
	}
	if p.InstitutionID != nil {
		if _, ok := r.s.institutions[*p.InstitutionID]; !ok {
			return types.Psychologist{}, store.ErrInvalidReference
		}
	}
	p.UpdatedAt = time.Now()
	r.s.psychologists[p.ID] = p
	return p, nil
}

// Articles implements the article repository.
type Articles struct{ s *Store }

func (r *Articles) Get(_ context.Context, id string) (types.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	article, ok := r.s.articles[id]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	return article, nil
}

func (r *Articles) List(_ context.Context, filter types.ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]types.Article, 0)
	for _, a := range r.s.articles {
		if filter.Tag != "" && !contains(a.Tags, strings.TrimSpace(filter.Tag)) {
			continue
		}
		if filter.AuthorID != "" && a.AuthorID != filter.AuthorID {
			continue
		}
		if filter.InstitutionID != "" && (a.InstitutionID == nil || *a.InstitutionID != filter.InstitutionID) {
			continue
		}
		if filter.PsychologistID != "" && (a.PsychologistID == nil || *a.PsychologistID != filter.PsychologistID) {
			continue
		}
		if filter.Status != "" && filter.Status != types.ArticleStatusAny && a.Status != filter.Status {
			continue
		}
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool {
		pi, pj := items[i].PublishedAt, items[j].PublishedAt
		switch {
		case pi != nil && pj != nil && !pi.Equal(*pj):
			return pi.After(*pj)
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return r.s.order[items[i].ID] > r.s.order[items[j].ID]
	})
	return window(items, offset, limit), len(items), nil
}

func (r *Articles) Create(_ context.Context, article types.Article) (types.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[article.AuthorID]; !ok {
		return types.Article{}, store.ErrInvalidReference
	}
	article.ID = uuid.NewString()
	article.Views = 0
	stamped := r.s.stamp(article.ID)
	if article.CreatedAt.IsZero() {
		article.CreatedAt = stamped
	}
	article.UpdatedAt = article.CreatedAt
	r.s.articles[article.ID] = article
	return article, nil
}

func (r *Articles) Update(_ context.Context, article types.Article) (types.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.articles[article.ID]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	article.AuthorID = current.AuthorID
	article.Views = current.Views
	article.CreatedAt = current.CreatedAt
	article.UpdatedAt = time.Now()
	r.s.articles[article.ID] = article
	return article, nil
}

func (r *Articles) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.articles[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.articles, id)
	return nil
}

func (r *Articles) IncrementViews(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	article, ok := r.s.articles[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	article.Views++
	r.s.articles[id] = article
	return article.Views, nil
}
