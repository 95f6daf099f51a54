package backend

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/core"
	"github.com/relabs-tech/homesense/core/csql"
	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/core/schema"
	"github.com/relabs-tech/homesense/core/store"
	"github.com/relabs-tech/homesense/telemetry"
)

// Backend is the homesense REST backend
type Backend struct {
	store     store.Store
	notifier  core.Notifier
	router    *mux.Router
	validator *schema.Validator
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Store is the entity store. If Store is nil, a postgres store is created on DB.
	Store store.Store
	// DB is a postgres database. This is mandatory if Store is nil.
	DB *csql.DB
	// UpdateSchema creates the database tables if they do not exist yet. Only
	// used together with DB.
	UpdateSchema bool
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Notifier receives a notification for every create, update and delete. This is optional.
	Notifier core.Notifier
}

// New realizes the actual backend. It creates the sql tables (if requested and they
// do not exist yet) and adds the routes to router
func New(bb *Builder) *Backend {
	if bb.Router == nil {
		panic("Router is missing")
	}

	st := bb.Store
	if st == nil {
		if bb.DB == nil {
			panic("DB is missing")
		}
		var err error
		st, err = store.NewPostgres(context.Background(), bb.DB, bb.UpdateSchema)
		if err != nil {
			panic(fmt.Errorf("cannot create postgres store: %w", err))
		}
	}

	validator, err := schema.NewValidatorFromFS(telemetry.Schemas())
	if err != nil {
		panic(fmt.Errorf("invalid telemetry schemas: %w", err))
	}
	for _, id := range telemetry.SchemaIDs {
		if !validator.HasSchema(id) {
			panic(fmt.Errorf("missing telemetry schema %s", id))
		}
	}

	b := &Backend{
		store:     st,
		notifier:  bb.Notifier,
		router:    bb.Router,
		validator: validator,
	}

	logger.AddRequestID(b.router)
	b.handleCORS()
	b.handleRoutes(b.router)
	return b
}

// Store returns the entity store the backend operates on
func (b *Backend) Store() store.Store {
	return b.store
}

// handleRoutes adds all routes. Fixed routes are added before the item routes
// of the same prefix, e.g. /api/measures/export before /api/measures/{id}.
func (b *Backend) handleRoutes(router *mux.Router) {
	logger.Default().Debugln("backend: handleRoutes")

	b.handleVersion(router)
	b.handleStatistics(router)
	b.handleExport(router)
	b.handleUsers(router)
	b.handleSensors(router)
	b.handleMeasures(router)
}
