package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// ResultResponse é a resposta do oráculo para um contest. Result 0 anula o
// contest
type ResultResponse struct {
	ContestID uint32 `json:"contest_id"`
	Result    uint64 `json:"result"`
}

// Client consulta o oráculo via HTTP
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) QueryContestResult(ctx context.Context, contestID uint32) (contest.OutcomeID, error) {
	url := fmt.Sprintf("%s/contests/%d/result", c.BaseURL, contestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build oracle request")
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "oracle request")
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return 0, errors.Errorf("oracle result http %d", res.StatusCode)
	}

	var out ResultResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, errors.Wrap(err, "decode oracle result")
	}
	if out.Result > math.MaxUint8 {
		return 0, errors.Errorf("oracle result %d out of range", out.Result)
	}
	return contest.OutcomeID(out.Result), nil
}
