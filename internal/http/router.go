package http

import (
	"log/slog"
	"net/http"
	"strings"
)

type RouterConfig struct {
	Voting      *VotingHandler
	Nominations *NominationHandler
	Results     *ResultsHandler
	Sessions    *SessionHandler
	Catalog     *CatalogHandler
	// Admin guards every /admin route. Without it admin routes are not mounted.
	Admin      func(http.Handler) http.Handler
	Metrics    http.Handler
	Health     func() error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	responder := newResponder(cfg.Logger)

	// pathID reads a path wildcard, answering 400 when it is blank.
	pathID := func(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
		id := strings.TrimSpace(r.PathValue(name))
		if id == "" {
			responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
			return "", false
		}
		return id, true
	}
	admin := func(pattern string, h http.HandlerFunc) {
		if cfg.Admin != nil {
			mux.Handle(pattern, cfg.Admin(h))
		}
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Voting != nil {
		mux.HandleFunc("/voting", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Voting.Ballot(w, r)
			case http.MethodPost:
				cfg.Voting.Submit(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/vote_counts/{position_id}", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			if id, ok := pathID(w, r, "position_id"); ok {
				cfg.Voting.VoteCounts(w, r, id)
			}
		})
	}

	if cfg.Nominations != nil {
		mux.HandleFunc("/nominations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Nominations.Submit(w, r)
		})
		admin("/admin/nominations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Nominations.List(w, r)
		})
		admin("/admin/nominations/approval", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Nominations.Approval(w, r)
		})
	}

	if cfg.Results != nil {
		mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Results.Published(w, r)
		})
		admin("/admin/results", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Results.Admin(w, r)
		})
		admin("/admin/sessions/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			if id, ok := pathID(w, r, "id"); ok {
				cfg.Results.Publish(w, r, id)
			}
		})
	}

	if cfg.Sessions != nil {
		admin("/admin/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		admin("/admin/sessions/{id}/transition", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			if id, ok := pathID(w, r, "id"); ok {
				cfg.Sessions.Transition(w, r, id)
			}
		})
	}

	if cfg.Catalog != nil {
		mux.HandleFunc("/labels/{form_type}", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Catalog.Labels(w, r, r.PathValue("form_type"))
		})
		admin("/admin/positions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Catalog.ListPositions(w, r)
			case http.MethodPost:
				cfg.Catalog.CreatePosition(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		admin("/admin/positions/{id}", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			if id, ok := pathID(w, r, "id"); ok {
				cfg.Catalog.DeletePosition(w, r, id)
			}
		})
		admin("/admin/labels/{form_type}/{field}", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Catalog.SetLabel(w, r, r.PathValue("form_type"), r.PathValue("field"))
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
