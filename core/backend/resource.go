package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/core"
	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/core/store"
)

// resourceConfiguration describes one entity of the API. R is the stored record,
// P its partial update and X the populated read model.
type resourceConfiguration[R any, P any, X any] struct {
	// resource is the singular name, e.g. "sensor"
	resource string
	// title is used in messages, e.g. "Sensor deleted"
	title string

	createSchemaID string
	patchSchemaID  string

	create func(ctx context.Context, record R) (R, error)
	update func(ctx context.Context, id uuid.UUID, patch P) (R, error)
	delete func(ctx context.Context, id uuid.UUID) error
	read   func(ctx context.Context, id uuid.UUID) (X, error)
	list   func(ctx context.Context) ([]X, error)

	// checkCreate and checkUpdate verify references. They return a client
	// message if the payload refers to a record that does not exist.
	checkCreate func(ctx context.Context, record R) (string, error)
	checkUpdate func(ctx context.Context, patch P) (string, error)
}

// readValidated reads the request body, validates it against schemaID and unmarshals
// it into v. On failure it answers 400 and returns false.
func (b *Backend) readValidated(w http.ResponseWriter, r *http.Request, schemaID string, v interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "cannot read body")
		return false
	}
	if err = b.validator.ValidateBytes(body, schemaID); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err = json.Unmarshal(body, v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

// createResource adds the CRUD routes of rc below /api/<resources>
func createResource[R any, P any, X any](b *Backend, router *mux.Router, rc resourceConfiguration[R, P, X]) {
	listRoute := "/api/" + rc.resource + "s"
	itemRoute := listRoute + "/{id}"

	rlog := logger.Default()
	rlog.Debugln("resource:", rc.resource)
	rlog.Debugln("  handle routes:", listRoute, "GET,POST")
	rlog.Debugln("  handle routes:", itemRoute, "GET,PUT,DELETE")

	list := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		records, err := rc.list(r.Context())
		if err != nil {
			rlog.WithError(err).Errorf("Error 4710: list %s", rc.resource)
			writeMessage(w, http.StatusInternalServerError, "Error 4710")
			return
		}
		if records == nil {
			records = []X{} // do not return null in json, but empty array
		}
		writeJSONWithEtag(w, r, records)
	}

	read := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		record, err := rc.read(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, rc.title+" not found")
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4711: read %s %s", rc.resource, id)
			writeMessage(w, http.StatusInternalServerError, "Error 4711")
			return
		}
		writeJSONWithEtag(w, r, record)
	}

	create := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		var record R
		if !b.readValidated(w, r, rc.createSchemaID, &record) {
			return
		}
		if rc.checkCreate != nil {
			msg, err := rc.checkCreate(r.Context(), record)
			if err != nil {
				rlog.WithError(err).Errorf("Error 4712: check references of new %s", rc.resource)
				writeMessage(w, http.StatusInternalServerError, "Error 4712")
				return
			}
			if msg != "" {
				writeMessage(w, http.StatusBadRequest, msg)
				return
			}
		}
		created, err := rc.create(r.Context(), record)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4713: create %s", rc.resource)
			writeMessage(w, http.StatusInternalServerError, "Error 4713")
			return
		}
		jsonData, _ := json.MarshalWithOption(created, json.DisableHTMLEscape())
		b.notify(r.Context(), rc.resource, core.OperationCreate, jsonData)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		w.Write(jsonData)
	}

	update := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var patch P
		if !b.readValidated(w, r, rc.patchSchemaID, &patch) {
			return
		}
		if rc.checkUpdate != nil {
			msg, err := rc.checkUpdate(r.Context(), patch)
			if err != nil {
				rlog.WithError(err).Errorf("Error 4714: check references of %s %s", rc.resource, id)
				writeMessage(w, http.StatusInternalServerError, "Error 4714")
				return
			}
			if msg != "" {
				writeMessage(w, http.StatusBadRequest, msg)
				return
			}
		}
		updated, err := rc.update(r.Context(), id, patch)
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, rc.title+" not found")
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4715: update %s %s", rc.resource, id)
			writeMessage(w, http.StatusInternalServerError, "Error 4715")
			return
		}
		jsonData, _ := json.MarshalWithOption(updated, json.DisableHTMLEscape())
		b.notify(r.Context(), rc.resource, core.OperationUpdate, jsonData)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(jsonData)
	}

	delete := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := rc.delete(r.Context(), id); err != nil {
			rlog.WithError(err).Errorf("Error 4716: delete %s %s", rc.resource, id)
			writeMessage(w, http.StatusInternalServerError, "Error 4716")
			return
		}
		b.notify(r.Context(), rc.resource, core.OperationDelete, []byte(fmt.Sprintf(`{"_id":"%s"}`, id)))
		writeMessage(w, http.StatusOK, rc.title+" deleted")
	}

	// CREATE
	router.Handle(listRoute, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		create(w, r)
	}))).Methods(http.MethodOptions, http.MethodPost)

	// LIST
	router.Handle(listRoute, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		list(w, r)
	}))).Methods(http.MethodOptions, http.MethodGet)

	// READ
	router.Handle(itemRoute, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		read(w, r)
	}))).Methods(http.MethodOptions, http.MethodGet)

	// UPDATE
	router.Handle(itemRoute, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		update(w, r)
	}))).Methods(http.MethodOptions, http.MethodPut)

	// DELETE
	router.Handle(itemRoute, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		delete(w, r)
	}))).Methods(http.MethodOptions, http.MethodDelete)
}

// handleFilteredList adds a GET route returning the non-populated records matching
// the path variable of route
func handleFilteredList[R any](router *mux.Router, route string, variable string, field string, isID bool,
	list func(ctx context.Context, filters ...store.Filter) ([]R, error)) {
	logger.Default().Debugln("  handle route:", route, "GET")

	router.Handle(route, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)
		value := mux.Vars(r)[variable]
		if isID {
			id, ok := pathID(w, r, variable)
			if !ok {
				return
			}
			value = id.String()
		}
		records, err := list(r.Context(), store.Filter{Field: field, Value: value})
		if err != nil {
			rlog.WithError(err).Errorf("Error 4717: list by %s", field)
			writeMessage(w, http.StatusInternalServerError, "Error 4717")
			return
		}
		if records == nil {
			records = []R{}
		}
		writeJSONWithEtag(w, r, records)
	}))).Methods(http.MethodOptions, http.MethodGet)
}
