package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/example/ledbridge/internal/api"
	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/frame"
)

func newServer(capacity int) (*frame.Buffer, http.Handler, *int) {
	buf := frame.New(capacity, color.RGB(1, 1, 1))
	notifies := 0
	s := api.NewServer(buf, func() { notifies++ }, nil, api.DefaultMaxBody, nil, zerolog.Nop())
	return buf, s.Handler(), &notifies
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostLedStatesReplacesBuffer(t *testing.T) {
	buf, h, notifies := newServer(4)
	w := post(h, `{"rainbow": false, "ledstates": [[10,20,30],[40,50,60]]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []color.Color{color.RGB(10, 20, 30), color.RGB(40, 50, 60)}, buf.Snapshot())
	assert.Equal(t, 1, *notifies)
}

func TestPostRainbowBuildsFullSpectrum(t *testing.T) {
	buf, h, _ := newServer(360)
	w := post(h, `{"rainbow": true, "ledstates": []}`)
	assert.Equal(t, http.StatusOK, w.Code)

	snap := buf.Snapshot()
	assert.Len(t, snap, 360)
	for hue := 0; hue < 360; hue++ {
		want, err := color.FromHSV(hue, 100, 100)
		assert.NoError(t, err)
		assert.Equal(t, want, snap[hue], "hue %d", hue)
	}
}

func TestPostRainbowIsCappedAtStripLength(t *testing.T) {
	buf, h, _ := newServer(10)
	w := post(h, `{"rainbow": true, "ledstates": []}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, buf.Len())
	red, _ := color.FromHSV(0, 100, 100)
	assert.Equal(t, red, buf.Snapshot()[0])
}

func TestPostRainbowIgnoresLedStates(t *testing.T) {
	buf, h, _ := newServer(360)
	w := post(h, `{"rainbow": true, "ledstates": [[9,9,9]]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 360, buf.Len())
}

func TestPostOversizedBodyRejectedBeforeParsing(t *testing.T) {
	buf, h, notifies := newServer(4)
	// Valid JSON, but over the cap: it must be rejected on size alone.
	body := `{"rainbow": false, "ledstates": [` +
		strings.Repeat(`[1,2,3],`, 200) + `[1,2,3]]}`
	assert.Greater(t, len(body), api.DefaultMaxBody)

	w := post(h, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "payload too large")
	assert.Equal(t, color.RGB(1, 1, 1), buf.Snapshot()[0], "buffer must be untouched")
	assert.Equal(t, 0, *notifies)
}

func TestPostMalformedJSONKeepsLastFrame(t *testing.T) {
	buf, h, notifies := newServer(4)
	w := post(h, `{"rainbow": tru`)
	// Observed device contract: 200 with a diagnostic body.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "JSON error", w.Body.String())
	assert.Equal(t, color.RGB(1, 1, 1), buf.Snapshot()[0])
	assert.Equal(t, 0, *notifies)
}

func TestPostWrongMethod(t *testing.T) {
	_, h, _ := newServer(4)
	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealth(t *testing.T) {
	_, h, _ := newServer(4)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"capacity":4`)
}
