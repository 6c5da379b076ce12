package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/auth"
	"github.com/radieske/pari-contest-platform/internal/contest"
	"github.com/radieske/pari-contest-platform/internal/contest-service/dto"
)

const headerViewingKey = "X-Viewing-Key"

// ViewingKeys emite as credenciais exigidas nas consultas por usuário
type ViewingKeys interface {
	SetViewingKey(ctx context.Context, user, credential string) error
	GenerateViewingKey(ctx context.Context, user string) (string, error)
}

// API expõe o engine via REST
type API struct {
	Engine *contest.Engine
	Keys   ViewingKeys  // opcional; sem ele as rotas de viewing key respondem 501
	Funds  Funds        // reserva das apostas; sem ele apostas respondem 503
	Auth   *auth.Authenticator
	WS     http.Handler // opcional, atualizações ao vivo em /ws
	Log    *zap.Logger
	Now    func() time.Time

	// AllowedOrigins alimenta o CORS; vazio libera qualquer origem
	AllowedOrigins []string

	validate *validator.Validate
}

func (a *API) Router() http.Handler {
	a.validate = validator.New()
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	if a.Auth == nil {
		a.Auth = &auth.Authenticator{Log: a.Log}
	}
	origins := a.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", headerViewingKey, auth.HeaderCaller, auth.HeaderTimestamp, auth.HeaderSignature},
		MaxAge:         300,
	}))
	r.Use(a.Auth.Middleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/config", a.getConfig)

		r.Route("/contests", func(r chi.Router) {
			r.Post("/", a.createContest)
			r.Get("/", a.listContests)      // ?ids=1,2&strict=true
			r.Get("/list", a.queryContests) // ?filter=&sort=&page=&page_size=
			r.Get("/last", a.lastContests)  // ?n=
			r.Get("/{id}", a.getContest)
			r.Post("/{id}/bets", a.placeBet)
			r.Post("/{id}/finalize", a.finalize)
			r.Post("/{id}/claim", a.claim)
		})
		r.Post("/claims", a.claimMultiple)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/bets", a.usersBets) // ?filter=a,b&since_cursor=true
			r.Get("/bets/last", a.usersLastBets)
			r.Get("/bets/count", a.usersNumberOfBets)
			r.Get("/bets/{id}", a.userBet)
			r.Get("/claimable", a.claimable)
			r.Post("/viewing-key", a.setViewingKey)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/minimum-bet", a.setMinimumBet)
			r.Post("/fee", a.setFee)
			r.Post("/claim-fees", a.claimFees)
		})
	})

	if a.WS != nil {
		r.Handle("/ws", a.WS)
	}
	return r
}

// caller retorna o endereço autenticado ou responde 401
func (a *API) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, ok := auth.Caller(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "unauthenticated",
			Class:   contest.ClassAuthorization.String(),
			Message: "signed request required",
		})
	}
	return c, ok
}

func userParam(r *http.Request) string { return auth.Normalize(chi.URLParam(r, "user")) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad request", Message: msg})
}

// statusOf mapeia o kind de domínio para o status HTTP
func statusOf(k contest.Kind) int {
	switch k {
	case contest.ErrContestNotFound, contest.ErrNoBetForUserContest:
		return http.StatusNotFound
	case contest.ErrInvalidContest, contest.ErrInvalidOutcomeID, contest.ErrOutcomeDoesNotExist,
		contest.ErrInvalidFee, contest.ErrAmountOverflow, contest.ErrBetBelowMinimum:
		return http.StatusBadRequest
	case contest.ErrUnauthorized:
		return http.StatusForbidden
	}
	switch k.Class() {
	case contest.ClassAuthorization:
		return http.StatusUnauthorized
	case contest.ClassIntegration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusConflict
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	k, ok := contest.KindOf(err)
	if !ok {
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, statusOf(k), dto.ErrorResponse{
		Error:     string(k),
		Class:     k.Class().String(),
		Message:   err.Error(),
		Retryable: contest.IsRetryable(err),
	})
}

// decode lê o JSON em v e aplica as tags validate
func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "bad json")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			badRequest(w, verrs[0].Field()+" failed "+verrs[0].Tag())
			return false
		}
		badRequest(w, err.Error())
		return false
	}
	return true
}

func contestIDParam(w http.ResponseWriter, r *http.Request, name string) (uint32, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		badRequest(w, "invalid contest id")
		return 0, false
	}
	return uint32(id), true
}

func parseIDs(raw string) ([]uint32, error) {
	var ids []uint32
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}

// intQuery retorna def quando o parâmetro não vem
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func (a *API) contestResponse(v contest.ContestView) dto.ContestResponse {
	return dto.ContestResponse{
		ContestView: v,
		Phase:       contest.PhaseAt(v.Info, v.Summary, uint64(a.Now().Unix())).String(),
		TotalPool:   v.Summary.TotalPool(),
	}
}

func (a *API) contestResponses(vs []contest.ContestView) []dto.ContestResponse {
	out := make([]dto.ContestResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, a.contestResponse(v))
	}
	return out
}

func (a *API) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.Engine.Config(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	stats, err := a.Engine.Stats(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ConfigResponse{
		MinimumBet:    cfg.MinimumBet,
		Fee:           dto.NewFeeResponse(cfg.Fee),
		ClaimableFees: cfg.ClaimableFees,
		Stats:         stats,
	})
}

func (a *API) createContest(w http.ResponseWriter, r *http.Request) {
	creator, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req dto.CreateContestRequest
	if !a.decode(w, r, &req) {
		return
	}
	var ref string
	if req.InitialBet != nil {
		if ref, ok = a.reserveStake(w, r, creator, req.ContestInfo.ID, req.InitialBet.Amount); !ok {
			return
		}
	}
	view, err := a.Engine.CreateContest(r.Context(), contest.CreateContestInput{
		Info:       req.ContestInfo,
		Signature:  req.Signature,
		Creator:    creator,
		InitialBet: req.InitialBet,
	})
	a.settleStake(r, creator, ref, err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.contestResponse(view))
}

func (a *API) getContest(w http.ResponseWriter, r *http.Request) {
	id, ok := contestIDParam(w, r, "id")
	if !ok {
		return
	}
	view, err := a.Engine.GetContest(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.contestResponse(view))
}

// listContests retorna os ids pedidos que existem e ignora o resto
func (a *API) listContests(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		badRequest(w, "invalid ids")
		return
	}
	list := a.Engine.ListContests
	if r.URL.Query().Get("strict") == "true" {
		list = a.Engine.ListContestsStrict
	}
	views, err := list(r.Context(), ids)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.contestResponses(views))
}

func (a *API) queryContests(w http.ResponseWriter, r *http.Request) {
	q := contest.ContestQuery{
		Filter: contest.ContestFilter(r.URL.Query().Get("filter")),
		Sort:   contest.ContestSort(r.URL.Query().Get("sort")),
	}
	switch q.Filter {
	case contest.ContestFilterNone, contest.ContestFilterActive, contest.ContestFilterUnresolved:
	default:
		badRequest(w, "unknown filter")
		return
	}
	switch q.Sort {
	case contest.ContestSortNone, contest.ContestSortVolume, contest.ContestSortDescending:
	default:
		badRequest(w, "unknown sort")
		return
	}
	var err error
	if q.Page, err = intQuery(r, "page", 0); err != nil {
		badRequest(w, err.Error())
		return
	}
	if q.PageSize, err = intQuery(r, "page_size", 0); err != nil {
		badRequest(w, err.Error())
		return
	}

	views, err := a.Engine.Contests(r.Context(), q)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.contestResponses(views))
}

func (a *API) lastContests(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", 10)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	views, err := a.Engine.LastContests(r.Context(), n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.contestResponses(views))
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := contestIDParam(w, r, "id")
	if !ok {
		return
	}
	var req dto.PlaceBetRequest
	if !a.decode(w, r, &req) {
		return
	}
	ref, ok := a.reserveStake(w, r, user, id, req.Amount)
	if !ok {
		return
	}
	res, err := a.Engine.PlaceBet(r.Context(), user, id, contest.OutcomeID(req.OutcomeID), req.Amount)
	a.settleStake(r, user, ref, err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.IsNewBet {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (a *API) finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := contestIDParam(w, r, "id")
	if !ok {
		return
	}
	summary, err := a.Engine.FinalizeOutcome(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := contestIDParam(w, r, "id")
	if !ok {
		return
	}
	res, err := a.Engine.Claim(r.Context(), id, user)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) claimMultiple(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req dto.ClaimMultipleRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Engine.ClaimMultiple(r.Context(), user, req.ContestIDs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func betFilters(raw string) ([]contest.BetFilter, error) {
	var out []contest.BetFilter
	for _, part := range strings.Split(raw, ",") {
		switch f := contest.BetFilter(strings.TrimSpace(part)); f {
		case "":
		case contest.BetFilterActive, contest.BetFilterClosedUnresolved, contest.BetFilterUnresolved, contest.BetFilterClaimable:
			out = append(out, f)
		default:
			return nil, errors.New("unknown filter " + string(f))
		}
	}
	return out, nil
}

func (a *API) usersBets(w http.ResponseWriter, r *http.Request) {
	filters, err := betFilters(r.URL.Query().Get("filter"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	since, _ := strconv.ParseBool(r.URL.Query().Get("since_cursor"))

	bets, err := a.Engine.UsersBets(r.Context(), userParam(r), r.Header.Get(headerViewingKey), contest.BetQuery{
		Filters:     filters,
		SinceCursor: since,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if bets == nil {
		bets = []contest.UserBetView{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) usersLastBets(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", 10)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	bets, err := a.Engine.UsersLastBets(r.Context(), userParam(r), r.Header.Get(headerViewingKey), n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if bets == nil {
		bets = []contest.UserBetView{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) usersNumberOfBets(w http.ResponseWriter, r *http.Request) {
	n, err := a.Engine.UsersNumberOfBets(r.Context(), userParam(r), r.Header.Get(headerViewingKey))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CountResponse{Count: n})
}

func (a *API) userBet(w http.ResponseWriter, r *http.Request) {
	id, ok := contestIDParam(w, r, "id")
	if !ok {
		return
	}
	bet, err := a.Engine.UserBet(r.Context(), userParam(r), r.Header.Get(headerViewingKey), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

func (a *API) claimable(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	amount, err := a.Engine.ClaimableValue(r.Context(), user, r.Header.Get(headerViewingKey))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ClaimableResponse{User: user, Amount: amount})
}

// setViewingKey permite ao usuário autenticado trocar a própria chave
func (a *API) setViewingKey(w http.ResponseWriter, r *http.Request) {
	if a.Keys == nil {
		writeJSON(w, http.StatusNotImplemented, dto.ErrorResponse{Error: "viewing keys disabled"})
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	user := userParam(r)
	if caller != user {
		a.writeError(w, r, &contest.Error{Kind: contest.ErrUnauthorized, User: caller, Expected: user, Actual: caller})
		return
	}
	var req dto.ViewingKeyRequest
	if !a.decode(w, r, &req) {
		return
	}

	if req.Key != "" {
		if err := a.Keys.SetViewingKey(r.Context(), user, req.Key); err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ViewingKeyResponse{User: user})
		return
	}
	key, err := a.Keys.GenerateViewingKey(r.Context(), user)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ViewingKeyResponse{User: user, Key: key})
}

func (a *API) setMinimumBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req dto.MinimumBetRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Engine.SetMinimumBet(r.Context(), caller, req.Amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req dto.FeeRequest
	if !a.decode(w, r, &req) {
		return
	}
	fee := contest.FeeFraction{Numerator: req.Numerator, Denominator: req.Denominator}
	if err := a.Engine.SetFee(r.Context(), caller, fee); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewFeeResponse(fee))
}

func (a *API) claimFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	amount, err := a.Engine.ClaimFees(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ClaimFeesResponse{Amount: amount})
}
