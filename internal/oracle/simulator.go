package oracle

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DeclareRequest define o resultado de um contest no simulador
type DeclareRequest struct {
	Result uint8 `json:"result"`
}

// Simulator substitui o oráculo real. Resultados são declarados via HTTP;
// com AutoOutcomes, um contest não declarado é resolvido aleatoriamente em
// 0..AutoOutcomes na primeira consulta e fica fixo
type Simulator struct {
	AutoOutcomes uint8
	Rand         *rand.Rand

	log     *zap.Logger
	mu      sync.Mutex
	results map[uint32]uint8

	queries *prometheus.CounterVec
}

func NewSimulator(log *zap.Logger, reg prometheus.Registerer) *Simulator {
	s := &Simulator{
		log:     log,
		results: make(map[uint32]uint8),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_simulator_queries_total",
			Help: "Result queries served, by status",
		}, []string{"status"}),
	}
	reg.MustRegister(s.queries)
	return s
}

func (s *Simulator) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/contests/{id}/result", s.getResult)
	r.Post("/contests/{id}/result", s.declare)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contestID(r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	return uint32(id), err == nil
}

func (s *Simulator) getResult(w http.ResponseWriter, r *http.Request) {
	id, ok := contestID(r)
	if !ok {
		s.queries.WithLabelValues("bad_request").Inc()
		http.Error(w, "bad contest id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	result, found := s.results[id]
	if !found && s.AutoOutcomes > 0 && s.Rand != nil {
		result = uint8(s.Rand.Intn(int(s.AutoOutcomes) + 1))
		s.results[id] = result
		found = true
		s.log.Info("result auto-declared", zap.Uint32("contest_id", id), zap.Uint8("result", result))
	}
	s.mu.Unlock()

	if !found {
		s.queries.WithLabelValues("pending").Inc()
		http.Error(w, "result not declared", http.StatusNotFound)
		return
	}
	s.queries.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, ResultResponse{ContestID: id, Result: uint64(result)})
}

func (s *Simulator) declare(w http.ResponseWriter, r *http.Request) {
	id, ok := contestID(r)
	if !ok {
		http.Error(w, "bad contest id", http.StatusBadRequest)
		return
	}
	var req DeclareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	prev, exists := s.results[id]
	if !exists {
		s.results[id] = req.Result
	}
	s.mu.Unlock()

	if exists && prev != req.Result {
		http.Error(w, "result already declared", http.StatusConflict)
		return
	}
	s.log.Info("result declared", zap.Uint32("contest_id", id), zap.Uint8("result", req.Result))
	writeJSON(w, http.StatusOK, ResultResponse{ContestID: id, Result: uint64(req.Result)})
}
