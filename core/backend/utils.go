package backend

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/core/logger"
)

// messageResponse is the body of error responses and delete confirmations
type messageResponse struct {
	Message string `json:"message"`
}

// writeMessage writes a {"message": ...} body with status
func writeMessage(w http.ResponseWriter, status int, message string) {
	jsonData, _ := json.MarshalWithOption(messageResponse{Message: message}, json.DisableHTMLEscape())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// writeJSON marshals v and writes it with status
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	jsonData, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4001: marshal response")
		writeMessage(w, http.StatusInternalServerError, "Error 4001")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// writeJSONWithEtag marshals v, sets an Etag and answers 304 if the client already has it
func writeJSONWithEtag(w http.ResponseWriter, r *http.Request, v interface{}) {
	jsonData, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4002: marshal response")
		writeMessage(w, http.StatusInternalServerError, "Error 4002")
		return
	}
	etag := bytesToEtag(jsonData)
	w.Header().Set("Etag", etag)
	if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(jsonData)
}

// bytesToEtag returns a quoted strong etag for data
func bytesToEtag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// ifNoneMatchFound returns true if etag is found in ifNoneMatch. The format of ifNoneMatch is one
// of the following:
// If-None-Match: "<etag_value>"
// If-None-Match: "<etag_value>", "<etag_value>", …
// If-None-Match: *
func ifNoneMatchFound(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.Trim(ifNoneMatch, " ")
	if len(ifNoneMatch) == 0 {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	t := strings.Trim(etag, " \"")
	for _, s := range strings.Split(ifNoneMatch, ",") {
		s = strings.TrimPrefix(strings.Trim(s, " "), "W/")
		if strings.Trim(s, "\"") == t {
			return true
		}
	}
	return false
}

// pathID parses the path variable key as identifier. On failure it answers 400
// and returns false.
func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid identifier")
		return uuid.Nil, false
	}
	return id, true
}
