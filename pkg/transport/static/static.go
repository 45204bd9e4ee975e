// Package static answers from an embedded table of canned, keyword matched answers. It is
// used for demos and when running without an assistant service.
package static

import (
	"context"
	_ "embed"
	"sort"
	"strings"
	"unicode"

	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed answers.yaml
var defaultAnswers []byte

type localized struct {
	Response           string   `yaml:"response"`
	SuggestedQuestions []string `yaml:"suggested_questions"`
}

type entry struct {
	Category   string    `yaml:"category"`
	Keywords   []string  `yaml:"keywords"`
	Confidence float64   `yaml:"confidence"`
	Sources    []string  `yaml:"sources"`
	EN         localized `yaml:"en"`
	FR         localized `yaml:"fr"`
}

func (e entry) in(lang string) localized {
	if lang == "fr" && e.FR.Response != "" {
		return e.FR
	}
	return e.EN
}

type table struct {
	Fallback map[string]localized `yaml:"fallback"`
	Answers  []entry              `yaml:"answers"`
}

type Transport struct {
	table    table
	language transport.LanguageFunc
}

var _ transport.Transport = &Transport{}

// New loads the embedded answer table.
func New(language transport.LanguageFunc) (*Transport, error) {
	return NewFromYAML(defaultAnswers, language)
}

func NewFromYAML(data []byte, language transport.LanguageFunc) (*Transport, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "could not parse answer table")
	}
	if len(t.Answers) == 0 {
		return nil, errors.New("answer table is empty")
	}
	return &Transport{table: t, language: language}, nil
}

func (t *Transport) SendMessage(ctx context.Context, text string) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lang := "en"
	if t.language != nil && t.language() != "" {
		lang = t.language()
	}

	words := tokenize(text)
	best, bestScore := -1, 0
	for i, e := range t.table.Answers {
		score := 0
		for _, k := range e.Keywords {
			if _, ok := words[strings.ToLower(k)]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		fb, ok := t.table.Fallback[lang]
		if !ok {
			fb = t.table.Fallback["en"]
		}
		return &transport.Response{
			Response:           fb.Response,
			Confidence:         0.1,
			Sources:            []string{"Offline"},
			SuggestedQuestions: append([]string(nil), fb.SuggestedQuestions...),
		}, nil
	}

	e := t.table.Answers[best]
	l := e.in(lang)
	return &transport.Response{
		Response:           l.Response,
		Confidence:         e.Confidence,
		Sources:            append([]string(nil), e.Sources...),
		Categories:         []string{e.Category},
		SuggestedQuestions: append([]string(nil), l.SuggestedQuestions...),
	}, nil
}

// Categories lists the categories the table can answer.
func (t *Transport) Categories() []string {
	var ret []string
	for _, e := range t.table.Answers {
		ret = append(ret, e.Category)
	}
	sort.Strings(ret)
	return ret
}

func tokenize(s string) map[string]struct{} {
	ret := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		ret[w] = struct{}{}
	}
	return ret
}
