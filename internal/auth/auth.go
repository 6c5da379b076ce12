package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/signer"
)

const (
	HeaderCaller    = "X-Caller"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"

	maxBody = 1 << 20
)

type ctxKey struct{}

// Caller retorna o endereço autenticado gravado pelo Middleware
func Caller(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(ctxKey{}).(string)
	return c, ok && c != ""
}

// Normalize retorna o endereço hex com checksum; outros identificadores
// voltam sem alteração
func Normalize(id string) string {
	if common.IsHexAddress(id) {
		return common.HexToAddress(id).Hex()
	}
	return id
}

// Message é o conteúdo assinado pelo cliente:
// METHOD \n request-uri \n unix-segundos \n hex(sha256(body))
func Message(method, requestURI string, ts int64, body []byte) []byte {
	sum := sha256.Sum256(body)
	return []byte(fmt.Sprintf("%s\n%s\n%d\n%s", method, requestURI, ts, hex.EncodeToString(sum[:])))
}

// ReplayGuard registra as assinaturas já aceitas
type ReplayGuard interface {
	FirstUse(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SetNXer é a parte do cliente Redis usada pelo RedisReplayGuard
type SetNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

type RedisReplayGuard struct{ r SetNXer }

func NewRedisReplayGuard(r SetNXer) *RedisReplayGuard { return &RedisReplayGuard{r: r} }

func (g *RedisReplayGuard) FirstUse(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.r.SetNX(ctx, "contest:auth:sig:"+key, 1, ttl).Result()
	return ok, errors.Wrap(err, "replay guard")
}

// Authenticator valida requisições assinadas. Sem assinatura a requisição
// segue anônima e os handlers que exigem caller respondem 401
type Authenticator struct {
	MaxSkew time.Duration
	Now     func() time.Time
	Replay  ReplayGuard
	Log     *zap.Logger
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderSignature) == "" {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := a.authenticate(r)
		if err != nil {
			a.logger().Info("request authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeUnauthenticated(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, caller)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (string, error) {
	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return "", errors.New("invalid timestamp")
	}
	now := a.now()
	if d := now.Sub(time.Unix(ts, 0)); d > a.skew() || d < -a.skew() {
		return "", errors.New("timestamp outside allowed window")
	}

	var body []byte
	if r.Body != nil {
		if body, err = io.ReadAll(io.LimitReader(r.Body, maxBody+1)); err != nil {
			return "", errors.Wrap(err, "read body")
		}
		if len(body) > maxBody {
			return "", errors.New("body too large")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	sig := r.Header.Get(HeaderSignature)
	addr, err := signer.RecoverAddress(Message(r.Method, r.URL.RequestURI(), ts, body), sig)
	if err != nil {
		return "", errors.New("invalid signature")
	}
	if claimed := r.Header.Get(HeaderCaller); claimed != "" && !strings.EqualFold(Normalize(claimed), addr) {
		return "", errors.New("signature does not match caller")
	}

	if a.Replay != nil {
		first, err := a.Replay.FirstUse(r.Context(), strings.ToLower(strings.TrimPrefix(sig, "0x")), 2*a.skew())
		if err != nil {
			return "", err
		}
		if !first {
			return "", errors.New("signature already used")
		}
	}
	return addr, nil
}

func (a *Authenticator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *Authenticator) skew() time.Duration {
	if a.MaxSkew <= 0 {
		return 5 * time.Minute
	}
	return a.MaxSkew
}

func (a *Authenticator) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthenticated",
		"class":   "authorization",
		"message": msg,
	})
}

// SignRequest preenche os headers de autenticação de r para s em now.
// Lê e restaura r.Body
func SignRequest(r *http.Request, s *signer.Signer, now time.Time) error {
	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			return errors.Wrap(err, "read body")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	ts := now.Unix()
	sig, err := s.SignRecoverable(Message(r.Method, r.URL.RequestURI(), ts, body))
	if err != nil {
		return err
	}
	r.Header.Set(HeaderCaller, s.Address())
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	r.Header.Set(HeaderSignature, sig)
	return nil
}
