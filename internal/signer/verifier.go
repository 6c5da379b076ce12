package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Verifier valida assinaturas secp256k1 sobre sha256(message).
//
// Chaves públicas em hex, 33 bytes comprimida ou 65 bytes sem compressão.
// Assinaturas em hex R||S, opcionalmente seguidas do byte de recuperação
type Verifier struct{}

func NewVerifier() Verifier { return Verifier{} }

func (Verifier) Verify(publicKeyHex string, message []byte, signatureHex string) (bool, error) {
	pub, err := decodeHex(publicKeyHex)
	if err != nil {
		return false, errors.Wrap(err, "decode public key")
	}
	if len(pub) == 33 {
		key, err := crypto.DecompressPubkey(pub)
		if err != nil {
			return false, errors.Wrap(err, "decompress public key")
		}
		pub = crypto.FromECDSAPub(key)
	}
	if len(pub) != 65 {
		return false, errors.Errorf("public key must be 33 or 65 bytes, got %d", len(pub))
	}

	sig, err := decodeHex(signatureHex)
	if err != nil {
		return false, errors.Wrap(err, "decode signature")
	}
	if len(sig) == 65 {
		sig = sig[:64]
	}
	if len(sig) != 64 {
		return false, errors.Errorf("signature must be 64 bytes, got %d", len(sig))
	}

	digest := sha256.Sum256(message)
	return crypto.VerifySignature(pub, digest[:], sig), nil
}

// Signer gera assinaturas aceitas pelo Verifier. Usado pelo simulador e
// pelos testes para assinar contests
type Signer struct {
	key *ecdsa.PrivateKey
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return &Signer{key: key}, nil
}

// GenerateSigner cria um signer com chave aleatória
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Signer{key: key}, nil
}

func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSAPub(&s.key.PublicKey))
}

func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(s.key))
}

// Sign retorna R||S em hex sobre sha256(message)
func (s *Signer) Sign(message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(sig[:64]), nil
}

// Address é o endereço da chave do signer (checksum EIP-55)
func (s *Signer) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

// SignRecoverable retorna R||S||V em hex sobre sha256(message);
// RecoverAddress devolve o endereço do signer a partir dela
func (s *Signer) SignRecoverable(message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(sig), nil
}

// RecoverAddress retorna o endereço (com checksum) da chave que produziu a
// assinatura de 65 bytes sobre sha256(message). V pode ser 0/1 ou 27/28
func RecoverAddress(message []byte, signatureHex string) (string, error) {
	sig, err := decodeHex(signatureHex)
	if err != nil {
		return "", errors.Wrap(err, "decode signature")
	}
	if len(sig) != 65 {
		return "", errors.Errorf("recoverable signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	digest := sha256.Sum256(message)
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return "", errors.Wrap(err, "recover public key")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}
