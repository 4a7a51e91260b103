package dictionary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeTranslator struct {
	translation string
	translateErr error
	speech      []byte
	speechErr   error
}

func (f *fakeTranslator) Translate(context.Context, string, string, string) (string, error) {
	return f.translation, f.translateErr
}

func (f *fakeTranslator) FetchSpeech(context.Context, string, string) ([]byte, error) {
	return f.speech, f.speechErr
}

func TestIsUzbek(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"hello", false},
		{"school", false},
		{"yaxshi ko‘rdim", true},  // Uzbek apostrophe
		{"қандай", true},          // Cyrillic
		{"bugun nima qilamiz", true},
		{"plain ascii words", false},
	}
	for _, c := range cases {
		if got := IsUzbek(c.in); got != c.want {
			t.Errorf("IsUzbek(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeWord(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Apple", "apple"},
		{"well-known phrase", "well-known"},
		{"don't stop", "don't"},
		{"42!", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeWord(c.in); got != c.want {
			t.Errorf("normalizeWord(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUzToEn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/apple.mp3" {
			w.Write([]byte("mp3data"))
			return
		}
		// Dictionary entry whose audio URL points back at this server.
		w.Write([]byte(`[{
		  "phonetics": [
		    {"text": "", "audio": ""},
		    {"text": "/ˈæp.əl/", "audio": "http://` + r.Host + `/apple.mp3"}
		  ],
		  "meanings": [
		    {"definitions": [{"definition": "a round fruit"}]}
		  ]
		}]`))
	}))
	defer srv.Close()

	tr := &fakeTranslator{translation: "Apple"}
	s := New(tr, WithLookupURL(srv.URL+"/entries/"), WithHTTPClient(srv.Client()))

	res, err := s.UzToEn(context.Background(), "olma")
	if err != nil {
		t.Fatalf("UzToEn returned %v", err)
	}
	if res.Translation != "Apple" {
		t.Errorf("Translation = %q", res.Translation)
	}
	if res.IPA != "/ˈæp.əl/" {
		t.Errorf("IPA = %q", res.IPA)
	}
	if res.Definition != "a round fruit" {
		t.Errorf("Definition = %q", res.Definition)
	}
	if string(res.Audio) != "mp3data" {
		t.Errorf("Audio = %q, want dictionary pronunciation", res.Audio)
	}
}

func TestUzToEnTTSFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// No phonetics audio at all.
		w.Write([]byte(`[{"phonetics": [], "meanings": []}]`))
	}))
	defer srv.Close()

	tr := &fakeTranslator{translation: "apple", speech: []byte("tts-mp3")}
	s := New(tr, WithLookupURL(srv.URL+"/entries/"), WithHTTPClient(srv.Client()))

	res, err := s.UzToEn(context.Background(), "olma")
	if err != nil {
		t.Fatalf("UzToEn returned %v", err)
	}
	if string(res.Audio) != "tts-mp3" {
		t.Errorf("Audio = %q, want TTS fallback", res.Audio)
	}
	if res.IPA != "—" || res.Definition != "—" {
		t.Errorf("placeholders not applied: IPA=%q Definition=%q", res.IPA, res.Definition)
	}
}

func TestUzToEnNoTranslation(t *testing.T) {
	s := New(&fakeTranslator{translation: ""})
	if _, err := s.UzToEn(context.Background(), "olma"); !errors.Is(err, ErrNoTranslation) {
		t.Fatalf("err = %v, want ErrNoTranslation", err)
	}
}

func TestEnToUz(t *testing.T) {
	tr := &fakeTranslator{translation: "olma", speech: []byte("spoken")}
	s := New(tr)

	res, err := s.EnToUz(context.Background(), "apple")
	if err != nil {
		t.Fatalf("EnToUz returned %v", err)
	}
	if res.Translation != "olma" {
		t.Errorf("Translation = %q", res.Translation)
	}
	if string(res.Audio) != "spoken" {
		t.Errorf("Audio = %q", res.Audio)
	}
}

func TestEnToUzSpeechFailureIsNotFatal(t *testing.T) {
	tr := &fakeTranslator{translation: "olma", speechErr: errors.New("tts down")}
	s := New(tr)

	res, err := s.EnToUz(context.Background(), "apple")
	if err != nil {
		t.Fatalf("EnToUz returned %v", err)
	}
	if res.Audio != nil {
		t.Errorf("Audio = %v, want nil", res.Audio)
	}
}

func TestLookupFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := &fakeTranslator{translation: "zxqwv"}
	s := New(tr, WithLookupURL(srv.URL+"/entries/"), WithHTTPClient(srv.Client()))

	res, err := s.UzToEn(context.Background(), "nimadir")
	if err != nil {
		t.Fatalf("UzToEn returned %v", err)
	}
	if res.IPA != "—" || res.Definition != "—" {
		t.Errorf("IPA=%q Definition=%q, want placeholders", res.IPA, res.Definition)
	}
}
