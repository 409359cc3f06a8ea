package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Name       string `json:"name" mod:"trim" validate:"max=9"`
	IndexerURL string `json:"indexer_url" validate:"omitempty,url"`
	Omit       string `json:"-"`
}

func TestBind(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("rejects content types other than json and form", func(tt *testing.T) {
		c := newContext(`{"name":"ok"}`, echo.MIMEApplicationXML)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(`{"name":"ok","foo":"bar"}`, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("reports json type errors by field", func(tt *testing.T) {
		c := newContext(`{"name":123}`, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"name" should be of type string`)
	})

	t.Run("applies mod tags before validating", func(tt *testing.T) {
		c := newContext(`{"name":" Landy "}`, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "Landy", p.Name)
	})

	t.Run("reports validation failures by field", func(tt *testing.T) {
		c := newContext(`{"name":"0123456789"}`, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})

	t.Run("rejects relative urls", func(tt *testing.T) {
		c := newContext(`{"name":"ok","indexer_url":"sabnzbd:8080"}`, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"indexer_url" is not a valid URL`)
	})
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
