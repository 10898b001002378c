package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 10 << 20

// settings are the per request overrides of the configured engine.
type settings struct {
	Method         string `json:"method,omitempty"`
	Oversell       string `json:"oversell,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// engine returns the configured engine with the overrides applied.
func (s *Server) engine(o settings) (*costbasis.Engine, error) {
	e := s.cfg.NewEngine(s.log)
	if o.Method != "" {
		m, err := costbasis.ParseCostBasisMethod(o.Method)
		if err != nil {
			return nil, err
		}
		e.Method = m
	}
	if o.Oversell != "" {
		p, err := costbasis.ParseOversellPolicy(o.Oversell)
		if err != nil {
			return nil, badRequest{err}
		}
		e.Oversell = p
	}
	if o.Classification != "" {
		c, err := costbasis.ParseClassification(o.Classification)
		if err != nil {
			return nil, badRequest{err}
		}
		e.Classification = c
	}
	return e, nil
}

// parseDate parses an optional date parameter.
func parseDate(name, value string) (costbasis.Date, error) {
	if value == "" {
		return costbasis.Date{}, nil
	}
	d, err := costbasis.ParseDate(value)
	if err != nil {
		return costbasis.Date{}, badRequest{fmt.Errorf("%s: %w", name, err)}
	}
	return d, nil
}

// parseWindow parses the optional start and end of a reporting window.
func parseWindow(start, end string) (costbasis.Range, error) {
	from, err := parseDate("start", start)
	if err != nil {
		return costbasis.Range{}, err
	}
	to, err := parseDate("end", end)
	if err != nil {
		return costbasis.Range{}, err
	}
	window := costbasis.Range{From: from, To: to}
	if err := window.Validate(); err != nil {
		return costbasis.Range{}, badRequest{err}
	}
	return window, nil
}

func parsePolicy(s string) (costbasis.BatchPolicy, error) {
	if s == "" {
		return costbasis.SkipMalformed, nil
	}
	p, err := costbasis.ParseBatchPolicy(s)
	if err != nil {
		return p, badRequest{err}
	}
	return p, nil
}

// cached is a rendered response kept in the cache.
type cached struct {
	contentType string
	body        []byte
}

// serveCached serves the response stored under key, computing and storing it
// on a miss. Errors are not cached.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, compute func() (cached, error)) {
	if v, ok := s.cache.Get(key); ok {
		c := v.(cached)
		w.Header().Set("Content-Type", c.contentType)
		w.Header().Set("X-Cache", "hit")
		w.Write(c.body)
		return
	}
	c, err := compute()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cache.SetDefault(key, c)
	w.Header().Set("Content-Type", c.contentType)
	w.Header().Set("X-Cache", "miss")
	w.Write(c.body)
}

// readBody reads the whole request body and returns it with its digest.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, "", badRequest{fmt.Errorf("reading body: %w", err)}
	}
	sum := sha256.Sum256(body)
	return body, hex.EncodeToString(sum[:]), nil
}

// inlineRequest is the body of the stateless endpoints.
type inlineRequest struct {
	settings
	Transactions []costbasis.RawTransaction `json:"transactions"`
	Malformed    string                     `json:"malformed,omitempty"` // "skip" (default) or "reject"
	Start        string                     `json:"start,omitempty"`
	End          string                     `json:"end,omitempty"`
	Date         string                     `json:"date,omitempty"`
}

// decodeInline decodes an inline request and normalizes its transactions.
func decodeInline(body []byte) (*inlineRequest, []costbasis.TransactionEvent, []*costbasis.MalformedTransactionError, error) {
	var req inlineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, nil, badRequest{fmt.Errorf("invalid request body: %w", err)}
	}
	policy, err := parsePolicy(req.Malformed)
	if err != nil {
		return nil, nil, nil, err
	}
	events, rejected, err := costbasis.NormalizeAll(req.Transactions, policy)
	if err != nil {
		return nil, nil, nil, err
	}
	return &req, events, rejected, nil
}

func marshal(v any) (cached, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return cached{}, err
	}
	return cached{contentType: "application/json", body: append(b, '\n')}, nil
}

// gains handles POST /api/gains: a gains report of the transactions in the body.
func (s *Server) gains(w http.ResponseWriter, r *http.Request) {
	body, digest, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.serveCached(w, r, "gains:"+digest, func() (cached, error) {
		req, events, rejected, err := decodeInline(body)
		if err != nil {
			return cached{}, err
		}
		e, err := s.engine(req.settings)
		if err != nil {
			return cached{}, err
		}
		window, err := parseWindow(req.Start, req.End)
		if err != nil {
			return cached{}, err
		}
		res, err := e.ComputeGainsLosses(events, window)
		if err != nil {
			return cached{}, err
		}
		return marshal(struct {
			Result   *costbasis.GainsLossesResult `json:"result"`
			Rejected []rejection                  `json:"rejected,omitempty"`
		}{res, rejections(rejected)})
	})
}

// snapshot handles POST /api/snapshot: the holdings of the transactions in
// the body on a date.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	body, digest, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.serveCached(w, r, "snapshot:"+digest, func() (cached, error) {
		req, events, rejected, err := decodeInline(body)
		if err != nil {
			return cached{}, err
		}
		e, err := s.engine(req.settings)
		if err != nil {
			return cached{}, err
		}
		on, err := parseDate("date", req.Date)
		if err != nil {
			return cached{}, err
		}
		snap, err := e.SnapshotAt(events, on)
		if err != nil {
			return cached{}, err
		}
		return marshal(struct {
			Snapshot *costbasis.PortfolioSnapshot `json:"snapshot"`
			Rejected []rejection                  `json:"rejected,omitempty"`
		}{snap, rejections(rejected)})
	})
}

// health handles GET /api/system/health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.SchemaVersion(r.Context())
	if err == nil {
		err = s.store.Ping(r.Context())
	}
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"database":      "connected",
		"schemaVersion": version,
	})
}

// clients handles GET /api/clients.
func (s *Server) clients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.Clients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if clients == nil {
		clients = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// importTransactions handles POST /api/clients/{client}/transactions. The
// body is JSON lines, or CSV when sent as text/csv.
func (s *Server) importTransactions(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")
	policy, err := parsePolicy(r.URL.Query().Get("malformed"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, _, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var raws []costbasis.RawTransaction
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		raws, err = costbasis.DecodeCSV(bytes.NewReader(body))
	} else {
		raws, err = costbasis.DecodeJSONL(bytes.NewReader(body))
	}
	if err != nil {
		s.fail(w, r, badRequest{err})
		return
	}

	res, err := s.store.ImportRaw(r.Context(), client, raws, policy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// reports of this client are stale.
	s.cache.Flush()
	s.log.Info("transactions imported", "client", client, "imported", res.Imported, "duplicates", res.Duplicates, "rejected", len(res.Rejected))

	respondJSON(w, http.StatusOK, map[string]any{
		"imported":   res.Imported,
		"duplicates": res.Duplicates,
		"rejected":   rejections(res.Rejected),
	})
}

// history loads the transactions of the client in the URL.
func (s *Server) history(r *http.Request) (string, []costbasis.TransactionEvent, error) {
	client := chi.URLParam(r, "client")
	events, err := s.store.Transactions(r.Context(), client)
	if err != nil {
		return client, nil, err
	}
	if len(events) == 0 {
		return client, nil, fmt.Errorf("client %q: %w", client, errUnknownClient)
	}
	return client, events, nil
}

// clientKey is the cache key of a client endpoint.
func clientKey(r *http.Request, name string) string {
	return name + ":" + url.PathEscape(chi.URLParam(r, "client")) + "?" + r.URL.Query().Encode()
}

// clientGains handles GET /api/clients/{client}/gains.
func (s *Server) clientGains(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.serveCached(w, r, clientKey(r, "gains"), func() (cached, error) {
		res, err := s.clientReport(r)
		if err != nil {
			return cached{}, err
		}
		switch format := q.Get("format"); format {
		case "", "json":
			return marshal(res)
		case "md":
			md := renderer.GainsMarkdown(res, renderer.Options{Currency: s.cfg.Currency})
			return cached{contentType: "text/markdown; charset=utf-8", body: []byte(md)}, nil
		case "html":
			html, err := renderer.HTML(renderer.GainsMarkdown(res, renderer.Options{Currency: s.cfg.Currency}))
			if err != nil {
				return cached{}, err
			}
			return cached{contentType: "text/html; charset=utf-8", body: []byte(html)}, nil
		default:
			return cached{}, badRequest{fmt.Errorf("unknown format %q (want json, md or html)", format)}
		}
	})
}

// clientReport computes the gains report requested by the query parameters.
func (s *Server) clientReport(r *http.Request) (*costbasis.GainsLossesResult, error) {
	q := r.URL.Query()
	e, err := s.engine(settings{Method: q.Get("method"), Oversell: q.Get("oversell"), Classification: q.Get("classification")})
	if err != nil {
		return nil, err
	}
	window, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		return nil, err
	}
	_, events, err := s.history(r)
	if err != nil {
		return nil, err
	}
	return e.ComputeGainsLosses(events, window)
}

// clientSnapshot handles GET /api/clients/{client}/snapshot.
func (s *Server) clientSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.serveCached(w, r, clientKey(r, "snapshot"), func() (cached, error) {
		e, err := s.engine(settings{Method: q.Get("method"), Oversell: q.Get("oversell"), Classification: q.Get("classification")})
		if err != nil {
			return cached{}, err
		}
		on, err := parseDate("date", q.Get("date"))
		if err != nil {
			return cached{}, err
		}
		_, events, err := s.history(r)
		if err != nil {
			return cached{}, err
		}
		snap, err := e.SnapshotAt(events, on)
		if err != nil {
			return cached{}, err
		}
		return marshal(snap)
	})
}

// latestSnapshot handles GET /api/clients/{client}/snapshots/latest, the last
// materialized snapshot.
func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	method := s.cfg.Engine.Method
	if m := r.URL.Query().Get("method"); m != "" {
		var err error
		if method, err = costbasis.ParseCostBasisMethod(m); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	snap, err := s.store.LatestSnapshot(r.Context(), chi.URLParam(r, "client"), method)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap.Payload)
}

// clientExport handles GET /api/clients/{client}/export.csv.
func (s *Server) clientExport(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, clientKey(r, "export"), func() (cached, error) {
		res, err := s.clientReport(r)
		if err != nil {
			return cached{}, err
		}
		var b bytes.Buffer
		if err := costbasis.ExportCSV(&b, res); err != nil {
			return cached{}, err
		}
		return cached{contentType: "text/csv; charset=utf-8", body: b.Bytes()}, nil
	})
}
