package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/testutil"
	"github.com/cbt-marketplace/apiserver/types"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordedEvents) ofType(eventType events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	store         *testutil.Store
	objects       *testutil.Objects
	events        *recordedEvents
	users         *UserService
	clients       *ClientService
	institutions  *InstitutionService
	psychologists *PsychologistService
	articles      *ArticleService
	media         *MediaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := testutil.NewStore()
	objects := testutil.NewObjects()
	recorder := &recordedEvents{}
	pol := policy.New(nil)

	return &fixture{
		store:         st,
		objects:       objects,
		events:        recorder,
		users:         NewUserService(st.Users(), pol, recorder, logger),
		clients:       NewClientService(st.Clients(), pol),
		institutions:  NewInstitutionService(st.Institutions(), pol, recorder, logger),
		psychologists: NewPsychologistService(st.Psychologists(), st.Users(), pol, recorder, logger),
		articles:      NewArticleService(st.Articles(), pol, recorder, logger),
		media:         NewMediaService(objects, st.Articles(), st.Users(), pol, "http://cdn.test/media/", logger),
	}
}

// register signs up a user with the given role. Admins are created through
// CreateAdmin since they cannot register.
func (f *fixture) register(t *testing.T, email string, role types.Role) types.User {
	t.Helper()
	ctx := context.Background()
	if role == types.RoleAdmin {
		user, err := f.users.CreateAdmin(ctx, email, "Admin", "password")
		if err != nil {
			t.Fatalf("CreateAdmin(%s): %v", email, err)
		}
		return user
	}
	user, err := f.users.Register(ctx, Registration{
		Email:    email,
		Name:     "Test " + string(role),
		Password: "password",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return user
}
