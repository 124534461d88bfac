package pyannote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/pkg/errors"
)

func newTestDiarizer(t *testing.T, handler http.HandlerFunc) *Diarizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDiarizer(config.PyannoteConfig{BaseURL: srv.URL, Token: "hf_test"}, srv.Client(), nil)
}

func TestDiarize_Turns(t *testing.T) {
	d := newTestDiarizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/diarize", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, Pipeline, r.FormValue("pipeline"))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "call.wav", hdr.Filename)

		_, _ = w.Write([]byte(`{"turns": [
			{"start": 0.0, "end": 1.4, "speaker": "SPEAKER_00"},
			{"start": 1.4, "end": 1.0, "speaker": "SPEAKER_01"},
			{"start": 1.5, "end": 3.0, "speaker": "SPEAKER_01"}
		]}`))
	})

	turns, err := d.Diarize(context.Background(), []byte("wav"), "call.wav")
	require.NoError(t, err)
	assert.Equal(t, []evidence.Turn{
		{Start: 0, End: 1.4, SpeakerID: "SPEAKER_00"},
		{Start: 1.5, End: 3.0, SpeakerID: "SPEAKER_01"},
	}, turns)
}

func TestDiarize_NotConfigured(t *testing.T) {
	for _, cfg := range []config.PyannoteConfig{
		{},
		{BaseURL: "http://pyannote:8000"},
		{Token: "hf_test"},
	} {
		d := NewDiarizer(cfg, nil, nil)
		assert.False(t, d.Enabled())
		_, err := d.Diarize(context.Background(), []byte("wav"), "a.wav")
		assert.True(t, errors.IsCode(err, errors.ErrCodeDiarizerUnavailable))
	}
}

func TestDiarize_SidecarUnavailable(t *testing.T) {
	d := newTestDiarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := d.Diarize(context.Background(), []byte("wav"), "a.wav")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDiarizerUnavailable))
}

func TestDiarize_Failure(t *testing.T) {
	d := newTestDiarizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := d.Diarize(context.Background(), []byte("wav"), "a.wav")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDiarizationFailed))
	assert.Contains(t, err.Error(), "boom")
}

func TestDiarize_BadJSON(t *testing.T) {
	d := newTestDiarizer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"turns": "nope"}`))
	})
	_, err := d.Diarize(context.Background(), []byte("wav"), "a.wav")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDiarizationFailed))
}
