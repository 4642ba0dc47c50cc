// Package restapi implements the REST query API referenced by spec §1
// ("Consumers include a REST query API") and §7's error-mapping rules.
// Grounded on original_source's crates/core/src/server/responses.rs
// envelope shape, routed with go-chi/chi/v5 the way SPEC_FULL.md's
// domain-stack section assigns it, and authorized through the same
// internal/auth guard chain the WebSocket gateway uses.
package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"fuelstreams/internal/auth"
	"fuelstreams/internal/errs"
	"fuelstreams/internal/metrics"
	"fuelstreams/internal/record"
	"fuelstreams/internal/store"
	"fuelstreams/internal/subject"
)

// Store is the read surface this API wraps.
type Store interface {
	FindMany(ctx context.Context, entityID string, q store.QueryParams) ([]record.Row, error)
}

// Server wires the chi router to a Store and an auth.Engine.
type Server struct {
	Store   Store
	Auth    *auth.Engine
	Log     *logrus.Logger
	Metrics *metrics.Registry
}

// envelope is the `{data, metadata}` response shape (supplemented
// feature 5: original_source's responses.rs).
type envelope struct {
	Data     []row    `json:"data"`
	Metadata metadata `json:"metadata"`
}

// row is one record.Row rendered for the wire: the record value decoded
// out of its durable binary envelope (spec §4.2) into the canonical JSON
// subscribers are meant to see, never the raw envelope bytes.
type row struct {
	Subject   string          `json:"subject"`
	Value     json.RawMessage `json:"value"`
	BlockTime int64           `json:"block_time"`
}

func toRows(rows []record.Row) ([]row, error) {
	out := make([]row, len(rows))
	for i, r := range rows {
		decoded, err := record.Decode(r.Value)
		if err != nil {
			return nil, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "decode row envelope")
		}
		out[i] = row{Subject: r.Subject, Value: json.RawMessage(decoded), BlockTime: r.BlockTime.Unix()}
	}
	return out, nil
}

type metadata struct {
	Total    int       `json:"total"`
	PageInfo pageInfo  `json:"page_info"`
}

type pageInfo struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Router builds the chi mux: one GET route per registered entity id,
// "/v1/{entity}", plus chi's standard request-id/recoverer middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		for _, id := range subject.AllIDs() {
			id := id
			r.Get("/"+chiPath(id), s.handleQuery(id))
		}
	})
	return r
}

// chiPath renders a dotted entity id ("inputs.coin") as a chi route
// segment ("inputs/coin"), since chi paths are slash-delimited.
func chiPath(entityID string) string {
	out := make([]byte, 0, len(entityID))
	for i := 0; i < len(entityID); i++ {
		if entityID[i] == '.' {
			out = append(out, '/')
		} else {
			out = append(out, entityID[i])
		}
	}
	return string(out)
}

func (s *Server) handleQuery(entityID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := s.Auth.Authorize(r.Context(), r, auth.ScopeRestApi)
		if err != nil {
			if s.Metrics != nil {
				if e, ok := errs.As(err); ok {
					s.Metrics.AuthRejected(string(e.Reason))
				}
			}
			writeError(w, err)
			return
		}

		q, err := parseQueryParams(r, entityID)
		if err != nil {
			writeError(w, err)
			return
		}

		if q.FromBlock != nil {
			if rerr := auth.CheckHistoricalReach(key, headHint(q), *q.FromBlock); rerr != nil {
				writeError(w, rerr)
				return
			}
		}

		rows, err := s.Store.FindMany(r.Context(), entityID, q)
		if err != nil {
			writeError(w, err)
			return
		}

		decoded, err := toRows(rows)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := envelope{Data: decoded, Metadata: metadata{Total: len(rows), PageInfo: pageInfo{HasMore: hasMore(rows, q)}}}
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			resp.Metadata.PageInfo.NextCursor = record.Cursor{BlockHeight: last.BlockHeight, TxIndex: last.TxIndex, ElementIndex: last.ElementIndex}.Encode()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// headHint approximates the chain head for the historical-reach check
// from the query's own upper bound when the caller didn't supply one;
// callers wanting an exact head should check it before calling FindMany.
func headHint(q store.QueryParams) uint64 {
	if q.Before != nil {
		return q.Before.BlockHeight
	}
	return ^uint64(0)
}

func hasMore(rows []record.Row, q store.QueryParams) bool {
	if q.First != nil {
		return len(rows) >= *q.First
	}
	if q.Limit > 0 {
		return len(rows) >= q.Limit
	}
	return false
}

// parseQueryParams maps request query-string parameters onto
// store.QueryParams: filters default to every field the entity's
// subject.Definition names, plus paging/sort/cursor controls.
func parseQueryParams(r *http.Request, entityID string) (store.QueryParams, error) {
	q := store.QueryParams{Namespace: r.URL.Query().Get("namespace")}

	def, ok := subject.Lookup(entityID)
	if !ok {
		return q, errs.New(errs.KindCodec, errs.ReasonSubjectParse, "unknown entity "+entityID)
	}

	filters := map[string]string{}
	for _, f := range def.Fields {
		if v := r.URL.Query().Get(f.Name); v != "" {
			filters[f.Column] = v
		}
	}
	if len(filters) > 0 {
		q.Filters = filters
	}

	if v := r.URL.Query().Get("sort"); v == "desc" {
		q.Sort = store.SortDesc
	}
	if v := r.URL.Query().Get("from_block"); v != "" {
		h, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return q, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse from_block")
		}
		q.FromBlock = &h
	}
	if v := r.URL.Query().Get("first"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse first")
		}
		q.First = &n
		q.Limit = n
	}
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse last")
		}
		q.Last = &n
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errs.Wrap(errs.KindCodec, errs.ReasonDecode, err, "parse offset")
		}
		q.Offset = n
	}
	if v := r.URL.Query().Get("after"); v != "" {
		c, err := record.DecodeCursor(v)
		if err != nil {
			return q, err
		}
		q.After = &c
	}
	if v := r.URL.Query().Get("before"); v != "" {
		c, err := record.DecodeCursor(v)
		if err != nil {
			return q, err
		}
		q.Before = &c
	}
	return q, nil
}

// writeError maps codec/authorization errors to 400/401/403/429 and
// persistence errors to 500 (spec §7 "User-visible behavior").
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if e, ok := errs.As(err); ok {
		switch e.Kind {
		case errs.KindCodec, errs.KindProtocol:
			status = http.StatusBadRequest
		case errs.KindAuthorization:
			switch e.Reason {
			case errs.ReasonMissing, errs.ReasonInvalid, errs.ReasonInactive, errs.ReasonDeleted:
				status = http.StatusUnauthorized
			case errs.ReasonScope, errs.ReasonHistLimit, errs.ReasonSubLimit:
				status = http.StatusForbidden
			case errs.ReasonRate:
				status = http.StatusTooManyRequests
				w.Header().Set("Retry-After", "60")
			default:
				status = http.StatusUnauthorized
			}
		case errs.KindPersistence:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
