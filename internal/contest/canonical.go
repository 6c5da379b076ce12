package contest

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON é o conteúdo assinado pelo signer confiável: JSON compacto
// na ordem de declaração, sem escape de HTML e sem nenhuma barra invertida
func CanonicalJSON(info ContestInfo) ([]byte, error) {
	if info.Outcomes == nil {
		info.Outcomes = []Outcome{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(info); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return bytes.ReplaceAll(out, []byte(`\`), nil), nil
}
