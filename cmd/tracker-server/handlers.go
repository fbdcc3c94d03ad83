package main

import (
	"net/http"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/upstream"

	"github.com/rs/zerolog/log"
)

const dateLen = len("2006-01-02")

func allGameIDsHandler(query *archive.Query) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := query.AllGameIDs(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("all game ids query failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// gameIDsHandler serves a single date ("2006-01-02") or an inclusive range
// ("2006-01-02-2006-01-09").
func gameIDsHandler(query *archive.Query) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		span := routeParam(r, "span")
		start, end, ok := parseSpan(span)
		if !ok {
			writeHTTPError(w, http.StatusBadRequest, "invalid_date_span")
			return
		}

		var entries []archive.Entry
		var err error
		if end == "" {
			entries, err = query.GameIDs(r.Context(), start)
		} else {
			entries, err = query.RangeGameIDs(r.Context(), start, end)
		}
		if err != nil {
			log.Error().Err(err).Str("span", span).Msg("game ids query failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func parseSpan(span string) (start, end string, ok bool) {
	switch len(span) {
	case dateLen:
		if _, err := archive.ParseDate(span); err != nil {
			return "", "", false
		}
		return span, "", true
	case 2*dateLen + 1:
		start, end = span[:dateLen], span[dateLen+1:]
		if span[dateLen] != '-' {
			return "", "", false
		}
		if _, err := archive.ParseDate(start); err != nil {
			return "", "", false
		}
		if _, err := archive.ParseDate(end); err != nil {
			return "", "", false
		}
		return start, end, true
	default:
		return "", "", false
	}
}

// playerHandler proxies the upstream player API verbatim, including its
// status code.
func playerHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("id")
		if playerID == "" {
			writeHTTPError(w, http.StatusBadRequest, "missing_player_id")
			return
		}
		status, contentType, body, err := client.PlayerRecord(r.Context(), playerID)
		if err != nil {
			log.Error().Err(err).Str("player_id", playerID).Msg("player lookup failed")
			writeHTTPError(w, http.StatusBadGateway, "upstream_unavailable")
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}
