package backend

import (
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/core/logger"
	"github.com/relabs-tech/homesense/core/store"
	"github.com/relabs-tech/homesense/telemetry"
)

// MaxRecentLimit is the largest limit accepted by /api/measures/stats/recent
const MaxRecentLimit = 1000

func (b *Backend) handleStatistics(router *mux.Router) {
	logger.Default().Debugln("statistics")
	logger.Default().Debugln("  handle statistics route: /api/measures/stats/by-type GET")
	logger.Default().Debugln("  handle statistics route: /api/measures/stats/recent GET")
	logger.Default().Debugln("  handle statistics route: /api/sensors/stats/by-location GET")
	logger.Default().Debugln("  handle statistics route: /api/stats/counts GET")

	router.Handle("/api/measures/stats/by-type", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)
		stats, err := b.store.StatsByType(r.Context())
		if err != nil {
			rlog.WithError(err).Errorln("Error 4720: stats by type")
			writeMessage(w, http.StatusInternalServerError, "Error 4720")
			return
		}
		if stats == nil {
			stats = []telemetry.TypeStats{} // do not return null in json, but empty array
		}
		writeJSONWithEtag(w, r, stats)
	}))).Methods(http.MethodOptions, http.MethodGet)

	router.Handle("/api/measures/stats/recent", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)
		limit := store.DefaultRecentLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > MaxRecentLimit {
				writeMessage(w, http.StatusBadRequest, "limit must be a number between 1 and "+strconv.Itoa(MaxRecentLimit))
				return
			}
			limit = n
		}
		measures, err := b.store.RecentMeasures(r.Context(), limit)
		if err != nil {
			rlog.WithError(err).Errorln("Error 4721: recent measures")
			writeMessage(w, http.StatusInternalServerError, "Error 4721")
			return
		}
		if measures == nil {
			measures = []telemetry.PopulatedMeasure{}
		}
		writeJSONWithEtag(w, r, measures)
	}))).Methods(http.MethodOptions, http.MethodGet)

	router.Handle("/api/sensors/stats/by-location", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)
		locations, err := b.store.SensorsByLocation(r.Context())
		if err != nil {
			rlog.WithError(err).Errorln("Error 4722: sensors by location")
			writeMessage(w, http.StatusInternalServerError, "Error 4722")
			return
		}
		if locations == nil {
			locations = []telemetry.LocationCount{}
		}
		writeJSONWithEtag(w, r, locations)
	}))).Methods(http.MethodOptions, http.MethodGet)

	router.Handle("/api/stats/counts", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Infoln("called route for", r.URL, r.Method)
		counts, err := b.store.Counts(r.Context())
		if err != nil {
			rlog.WithError(err).Errorln("Error 4723: counts")
			writeMessage(w, http.StatusInternalServerError, "Error 4723")
			return
		}
		writeJSONWithEtag(w, r, counts)
	}))).Methods(http.MethodOptions, http.MethodGet)
}
