package backend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/homesense/core"
	"github.com/relabs-tech/homesense/core/client"
	"github.com/relabs-tech/homesense/core/csql"
	"github.com/relabs-tech/homesense/core/store"
)

// TestService is a backend with a client talking to it through the router
type TestService struct {
	Postgres         string `env:"POSTGRES,optional" description:"the connection string for the Postgres DB without password, in-memory store if empty"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`

	Db      *csql.DB
	Router  *mux.Router
	backend *Backend
	client  client.Client
	events  *recordedEvents
}

type recordedEvent struct {
	resource  string
	operation core.Operation
	payload   string
}

type recordedEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordedEvents) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{resource, operation, string(payload)})
}

func (r *recordedEvents) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent{}, r.events...)
}

// CreateTestService creates a new, empty service. If POSTGRES is set, the service
// uses a postgres store in a schema named after the test, otherwise an in-memory store.
func CreateTestService(t *testing.T) *TestService {
	s := TestService{}
	if err := envdecode.Decode(&s); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		t.Fatal(err)
	}

	s.Router = mux.NewRouter()
	s.events = &recordedEvents{}
	builder := &Builder{
		Router:   s.Router,
		Notifier: s.events,
	}
	if s.Postgres != "" {
		s.Db = csql.OpenWithSchema(s.Postgres, s.PostgresPassword, strings.ToLower(t.Name()))
		s.Db.ClearSchema()
		builder.DB = s.Db
		builder.UpdateSchema = true
		t.Cleanup(func() { s.Db.Close() })
	} else {
		builder.Store = store.NewMemory()
	}
	s.backend = New(builder)
	s.client = client.NewWithRouter(s.Router)
	return &s
}

func TestIfNoneMatchFound(t *testing.T) {
	etag := `"a2c4"`
	assert.False(t, ifNoneMatchFound("", etag))
	assert.True(t, ifNoneMatchFound("*", etag))
	assert.True(t, ifNoneMatchFound(`"a2c4"`, etag))
	assert.True(t, ifNoneMatchFound(`W/"a2c4"`, etag))
	assert.True(t, ifNoneMatchFound(`"0000", "a2c4"`, etag))
	assert.False(t, ifNoneMatchFound(`"0000", "1111"`, etag))
}

func TestBytesToEtag(t *testing.T) {
	a := bytesToEtag([]byte(`[]`))
	assert.True(t, strings.HasPrefix(a, `"`) && strings.HasSuffix(a, `"`))
	assert.Equal(t, a, bytesToEtag([]byte(`[]`)))
	assert.NotEqual(t, a, bytesToEtag([]byte(`[{}]`)))
}
