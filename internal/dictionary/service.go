// Package dictionary implements the bilingual word-lookup feature: Uzbek to
// English with IPA, definition, and pronunciation audio, and English to
// Uzbek with spoken playback of the source word.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/speakingzone/examiner/pkg/provider/translate"
)

// ErrNoTranslation is returned when the translator produced nothing usable.
var ErrNoTranslation = errors.New("no translation found")

// defaultLookupURL is the free English dictionary API endpoint root; the
// word is appended as the final path element.
const defaultLookupURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"

// Mode is the translation direction.
type Mode string

const (
	ModeUzEn Mode = "uz_en"
	ModeEnUz Mode = "en_uz"
)

// Result is one completed lookup, ready for rendering.
type Result struct {
	// Source is the user's input; Translation the translated text.
	Source      string
	Translation string

	// IPA and Definition come from the English dictionary; placeholders
	// when unavailable.
	IPA        string
	Definition string

	// Audio is an MP3 pronunciation, nil when no audio could be fetched.
	Audio []byte
}

// Option configures a [Service].
type Option func(*Service)

// WithLookupURL overrides the dictionary API root. Useful for tests.
func WithLookupURL(url string) Option {
	return func(s *Service) { s.lookupURL = url }
}

// WithHTTPClient replaces the HTTP client used for dictionary and audio
// requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// Service performs dictionary lookups. Safe for concurrent use.
type Service struct {
	translator translate.Provider
	client     *http.Client
	lookupURL  string
}

// New creates a dictionary service over the given translator.
func New(tr translate.Provider, opts ...Option) *Service {
	s := &Service{
		translator: tr,
		client:     &http.Client{Timeout: 15 * time.Second},
		lookupURL:  defaultLookupURL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// cyrillic and uzbekHints drive the language heuristic.
var (
	cyrillic    = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)
	uzbekWords  = regexp.MustCompile(`\b(yo'q|bo'lsa|qanday|nega|qayer|bugun|kecha|ertaga)\b`)
	uzbekChars  = []string{"ʻ", "’", "‘", "ʼ", "ğ", "ö", "ü", "қ", "ғ", "ҳ", "ў", "й"}
	nonASCII    = regexp.MustCompile(`[^\x00-\x7F]`)
	wordLetters = regexp.MustCompile(`[^a-zA-Z'\-]`)
)

// IsUzbek guesses whether text is Uzbek rather than English. Used to pick a
// direction when the user skipped the mode selection.
func IsUzbek(s string) bool {
	if cyrillic.MatchString(s) {
		return true
	}
	for _, ch := range uzbekChars {
		if strings.Contains(s, ch) {
			return true
		}
	}
	if uzbekWords.MatchString(strings.ToLower(s)) {
		return true
	}
	return nonASCII.MatchString(s)
}

// normalizeWord extracts a dictionary headword from translated text: first
// token, letters only, lower case.
func normalizeWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(wordLetters.ReplaceAllString(fields[0], ""))
}

// UzToEn translates an Uzbek word or phrase and enriches the result with
// IPA, definition, and pronunciation audio for the English headword.
func (s *Service) UzToEn(ctx context.Context, text string) (Result, error) {
	en, err := s.translator.Translate(ctx, text, "uz", "en")
	if err != nil {
		return Result{}, fmt.Errorf("dictionary: translate uz→en: %w", err)
	}
	if en == "" {
		return Result{}, ErrNoTranslation
	}

	res := Result{
		Source:      text,
		Translation: en,
		IPA:         "—",
		Definition:  "—",
	}

	word := normalizeWord(en)
	if word == "" {
		return res, nil
	}

	ipa, definition, audioURL := s.lookupEnglish(ctx, word)
	if ipa != "" {
		res.IPA = ipa
	}
	if definition != "" {
		res.Definition = definition
	}

	if audioURL != "" {
		if audio, err := s.fetchAudio(ctx, audioURL); err == nil {
			res.Audio = audio
		}
	}
	if res.Audio == nil {
		if audio, err := s.translator.FetchSpeech(ctx, word, "en"); err == nil {
			res.Audio = audio
		}
	}
	return res, nil
}

// EnToUz translates English text to Uzbek and attaches spoken playback of
// the English source.
func (s *Service) EnToUz(ctx context.Context, text string) (Result, error) {
	uz, err := s.translator.Translate(ctx, text, "en", "uz")
	if err != nil {
		return Result{}, fmt.Errorf("dictionary: translate en→uz: %w", err)
	}
	if uz == "" {
		return Result{}, ErrNoTranslation
	}

	res := Result{Source: text, Translation: uz}
	if audio, err := s.translator.FetchSpeech(ctx, text, "en"); err == nil {
		res.Audio = audio
	}
	return res, nil
}

// dictEntry mirrors the parts of the dictionaryapi.dev response we read.
type dictEntry struct {
	Phonetics []struct {
		Text  string `json:"text"`
		Audio string `json:"audio"`
	} `json:"phonetics"`
	Meanings []struct {
		Definitions []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// lookupEnglish fetches IPA, first definition, and an audio URL for a word.
// All failures degrade to empty values; the lookup is best-effort garnish on
// top of the translation.
func (s *Service) lookupEnglish(ctx context.Context, word string) (ipa, definition, audioURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.lookupURL+word, nil)
	if err != nil {
		return "", "", ""
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", ""
	}

	var entries []dictEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil || len(entries) == 0 {
		return "", "", ""
	}
	e := entries[0]

	for _, ph := range e.Phonetics {
		if ipa == "" && ph.Text != "" {
			ipa = ph.Text
		}
		if audioURL == "" && ph.Audio != "" {
			audioURL = ph.Audio
		}
	}
	if len(e.Meanings) > 0 && len(e.Meanings[0].Definitions) > 0 {
		definition = e.Meanings[0].Definitions[0].Definition
	}
	if strings.HasPrefix(audioURL, "//") {
		audioURL = "https:" + audioURL
	}
	return ipa, definition, audioURL
}

// fetchAudio downloads pronunciation audio.
func (s *Service) fetchAudio(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary: audio fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("dictionary: empty audio response")
	}
	return data, nil
}
