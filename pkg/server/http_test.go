package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shoenig/test/must"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/abennett/ttt/pkg"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func maxRoller() *pkg.Roller {
	return pkg.NewRoller(
		pkg.WithLogger(quietLogger),
		pkg.WithSampler(pkg.SamplerFunc(func(t *pkg.Table) int { return t.Max() })),
	)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer(WithLogger(quietLogger), WithRoller(maxRoller()))
	ts := httptest.NewServer(NewMux(srv))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	must.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	must.NoError(t, err)
	return resp.StatusCode, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	must.NoError(t, json.Unmarshal(b, &v))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	status, body := get(t, ts.URL+"/health")
	must.EqOp(t, http.StatusOK, status)
	must.EqOp(t, "ok", string(body))
}

func TestRollNotation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/tasks/roll/2d6+3")
	must.EqOp(t, http.StatusOK, status)
	res := decode[pkg.Result](t, body)
	must.Len(t, 1, res.Rolls)
	must.EqOp(t, 15, res.Rolls[0].Total)
	must.Eq(t, []int{15}, res.Rolls[0].Dice)

	status, body = get(t, ts.URL+"/tasks/roll/d20-d4")
	must.EqOp(t, http.StatusOK, status)
	res = decode[pkg.Result](t, body)
	must.EqOp(t, 16, res.Rolls[0].Total)
	must.Eq(t, []int{20, 4}, res.Rolls[0].Dice)
}

func TestRollNotation_QueryOptions(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/tasks/roll/4d6?dropLowest=1")
	must.EqOp(t, http.StatusOK, status)
	res := decode[pkg.Result](t, body)
	must.EqOp(t, 18, res.Rolls[0].Total)

	status, body = get(t, ts.URL+"/tasks/roll/1d6?rerollDie=6&addAll=2")
	must.EqOp(t, http.StatusOK, status)
	res = decode[pkg.Result](t, body)
	must.EqOp(t, 7, res.Rolls[0].Total)
}

func TestRollNotation_Rejected(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	cases := map[string]string{
		"unknown size": "/tasks/roll/1d7",
		"malformed":    "/tasks/roll/2d",
		"too long":     "/tasks/roll/" + strings.Repeat("1d6+", 10) + "1d6",
		"bad option":   "/tasks/roll/4d6?dropLowest=lots",
		"drop all":     "/tasks/roll/2d6?dropLowest=2",
		"huge shift":   "/tasks/roll/1d6?addAll=1000000",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := get(t, ts.URL+path)
			must.EqOp(t, http.StatusBadRequest, status)
			msg := decode[map[string]string](t, body)
			must.MapContainsKey(t, msg, "error")
		})
	}
}

func TestRollJSON(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	payload := `{
		"dice": [
			{"id": 2, "dString": "d8", "modifier": "+2"},
			{"id": 1, "dString": "d20", "connectorString": "-"}
		],
		"diceOptions": {"repeatRoll": 3}
	}`
	resp, err := http.Post(ts.URL+"/tasks/roll", "application/json", strings.NewReader(payload))
	must.NoError(t, err)
	defer resp.Body.Close()
	must.EqOp(t, http.StatusOK, resp.StatusCode)
	must.EqOp(t, "application/json", resp.Header.Get("Content-Type"))

	b, err := io.ReadAll(resp.Body)
	must.NoError(t, err)
	res := decode[pkg.Result](t, b)
	must.Len(t, 3, res.Rolls)
	for _, r := range res.Rolls {
		must.EqOp(t, 10, r.Total)
		must.Eq(t, []int{20, 10}, r.Dice)
	}
}

func TestRollJSON_Rejected(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	for _, payload := range []string{
		`not json`,
		`[1, 2]`,
		`{"dice": []}`,
		`{"dString": "1d6", "diceOptions": {"repeatRoll": 11}}`,
	} {
		resp, err := http.Post(ts.URL+"/tasks/roll", "application/json", strings.NewReader(payload))
		must.NoError(t, err)
		_ = resp.Body.Close()
		must.EqOp(t, http.StatusBadRequest, resp.StatusCode, must.Sprint(payload))
	}
}

func TestRollCharacter(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/tasks/roll/character/normal")
	must.EqOp(t, http.StatusOK, status)
	res := decode[pkg.Result](t, body)
	must.Len(t, 6, res.Rolls)
	for _, r := range res.Rolls {
		must.EqOp(t, 18, r.Total)
	}

	status, _ = get(t, ts.URL+"/tasks/roll/character/legendary")
	must.EqOp(t, http.StatusNotFound, status)
}

func TestOdds(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, body := get(t, ts.URL+"/tasks/odds/1d6+1")
	must.EqOp(t, http.StatusOK, status)
	odds := decode[oddsResponse](t, body)
	must.EqOp(t, 2, odds.Min)
	must.EqOp(t, 7, odds.Max)
	must.Len(t, 6, odds.Outcomes)
	probs := make([]float64, len(odds.Outcomes))
	for i, o := range odds.Outcomes {
		must.True(t, scalar.EqualWithinAbs(1.0/6, o.Probability, 1e-12))
		probs[i] = o.Probability
	}
	must.True(t, scalar.EqualWithinAbs(1, floats.Sum(probs), 1e-9))

	status, _ = get(t, ts.URL+"/tasks/odds/1d7")
	must.EqOp(t, http.StatusBadRequest, status)

	status, body = get(t, ts.URL+"/tasks/odds/999d100+999d100+999d100")
	must.EqOp(t, http.StatusBadRequest, status)
	must.StrContains(t, string(body), "possible totals")
}

func TestTasksAreCompressed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/tasks/odds/10d10", nil)
	must.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	must.NoError(t, err)
	defer resp.Body.Close()
	must.EqOp(t, http.StatusOK, resp.StatusCode)
	must.EqOp(t, "gzip", resp.Header.Get("Content-Encoding"))
}
