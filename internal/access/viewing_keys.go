package access

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// KV é a parte do cliente Redis usada pelo store de chaves
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// ViewingKeys guarda uma viewing key por usuário (hash) no Redis.
// Implementa contest.AccessControl
type ViewingKeys struct {
	R KV
}

func New(r KV) *ViewingKeys { return &ViewingKeys{R: r} }

func keyUser(user string) string { return "contest:viewing_key:" + user }

func digest(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// SetViewingKey substitui a chave do usuário. Credencial vazia é rejeitada
func (v *ViewingKeys) SetViewingKey(ctx context.Context, user, credential string) error {
	if user == "" || credential == "" {
		return &contest.Error{Kind: contest.ErrInvalidAccessCredential, User: user}
	}
	return errors.Wrap(v.R.Set(ctx, keyUser(user), digest(credential), 0).Err(), "store viewing key")
}

// GenerateViewingKey gera uma chave aleatória, grava e retorna
func (v *ViewingKeys) GenerateViewingKey(ctx context.Context, user string) (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", errors.Wrap(err, "generate viewing key")
	}
	key := "vk_" + hex.EncodeToString(b[:])
	if err := v.SetViewingKey(ctx, user, key); err != nil {
		return "", err
	}
	return key, nil
}

func (v *ViewingKeys) AssertValid(ctx context.Context, user, credential string) error {
	stored, err := v.R.Get(ctx, keyUser(user)).Result()
	if err == redis.Nil {
		return &contest.Error{Kind: contest.ErrInvalidAccessCredential, User: user}
	}
	if err != nil {
		return errors.Wrap(err, "load viewing key")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest(credential))) != 1 {
		return &contest.Error{Kind: contest.ErrInvalidAccessCredential, User: user}
	}
	return nil
}
