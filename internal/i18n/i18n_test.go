package i18n

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedBundles(t *testing.T) {
	s := New()
	assert.Contains(t, s.Loaded(), "en")
	assert.Contains(t, s.Loaded(), "hi")
	assert.Equal(t, "Repair Guide", s.T("repairGuideTitle"))
}

func TestFallbackChain(t *testing.T) {
	s := NewEmpty()
	require.NoError(t, s.LoadBundle("en", []byte(`{"greeting":"Hello","only_en":"English only"}`)))
	require.NoError(t, s.LoadBundle("hi", []byte(`{"greeting":"नमस्ते","blank":""}`)))
	require.NoError(t, s.SetLanguage("hi"))

	assert.Equal(t, "नमस्ते", s.T("greeting"))
	assert.Equal(t, "English only", s.T("only_en"))
	assert.Equal(t, "missing.key", s.T("missing.key"))
	assert.Equal(t, "blank", s.T("blank"), "empty values fall through")

	// Locale without a bundle falls back to the default.
	require.NoError(t, s.SetLanguage("gu"))
	assert.Equal(t, "Hello", s.T("greeting"))
}

func TestReplacements(t *testing.T) {
	s := NewEmpty()
	require.NoError(t, s.LoadBundle("en", []byte(`{"err":"Could not access the camera: {{message}} ({{message}}, code {{code}})"}`)))

	got := s.T("err", map[string]any{"message": "busy", "code": 42})
	assert.Equal(t, "Could not access the camera: busy (busy, code 42)", got)

	// Unknown placeholders stay as written.
	assert.Equal(t, "Could not access the camera: {{message}} ({{message}}, code {{code}})", s.T("err"))
}

func TestSetLanguage(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultLocale, s.Language())

	require.NoError(t, s.SetLanguage("ta"))
	assert.Equal(t, "ta", s.Language())

	err := s.SetLanguage("xx")
	assert.ErrorIs(t, err, ErrUnknownLocale)
	assert.Equal(t, "ta", s.Language())
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"b/en.json": {Data: []byte(`{"a":"A"}`)},
		"b/hi.json": {Data: []byte(`{not json`)},
		"b/ta.json": {Data: []byte(`{"a":"அ"}`)},
	}
	s := NewEmpty()
	err := s.LoadFS(fsys, "b")
	require.Error(t, err)
	assert.Equal(t, []string{"en", "ta"}, s.Loaded())
	assert.Equal(t, "A", s.TIn("hi", "a"))
	assert.Equal(t, "அ", s.TIn("ta", "a"))
}

func TestBundleOverlay(t *testing.T) {
	s := NewEmpty()
	require.NoError(t, s.LoadBundle("en", []byte(`{"a":"A","b":"B"}`)))
	require.NoError(t, s.LoadBundle("mr", []byte(`{"a":"अ"}`)))
	assert.Equal(t, Bundle{"a": "अ", "b": "B"}, s.Bundle("mr"))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "en"},
		{"hi", "hi"},
		{"en_in", "en_in"},
		{"hi-IN,hi;q=0.9,en;q=0.8", "hi"},
		{"ta-IN", "ta"},
		{"fr-FR", "en"},
		{"ur", "ur"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.in))
		})
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "bn-IN,bn;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "bn", got)

	req = httptest.NewRequest(http.MethodGet, "/?lang=kn", nil)
	req.Header.Set("Accept-Language", "bn")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "kn", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "", got)
}

func TestEnglishName(t *testing.T) {
	assert.Equal(t, "Hindi", EnglishName("hi"))
	assert.Equal(t, "xx", EnglishName("xx"))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.json"), []byte(`{"custom":"पहला"}`), 0644))

	s := New()
	w, err := NewWatcher(s, dir)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	assert.Equal(t, "पहला", s.TIn("hi", "custom"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.json"), []byte(`{"custom":"दूसरा"}`), 0644))
	require.Eventually(t, func() bool {
		return s.TIn("hi", "custom") == "दूसरा"
	}, 3*time.Second, 20*time.Millisecond)

	// Embedded keys survive an override reload.
	assert.Equal(t, "निदान", s.TIn("hi", "diagnosisTitle"))
}
