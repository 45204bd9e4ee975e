// Package i18n provides the bundled text resources of the assistant client and the
// Translator used by the conversation core to turn keys into user-facing strings.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

type Language string

const (
	English Language = "en"
	French  Language = "fr"

	DefaultLanguage = English
)

var ErrUnknownLanguage = errors.New("unknown language")

// Translator maps a resource key to a language-appropriate string.
type Translator interface {
	T(key string, params ...Param) string
}

// Param is a named interpolation value, substituted for {{Name}} in a resource string.
type Param struct {
	Name  string
	Value string
}

func P(name string, value string) Param {
	return Param{Name: name, Value: value}
}

// Catalog holds the flattened resource tables of every bundled language.
type Catalog struct {
	tables map[Language]map[string]string
}

// LoadCatalog parses the embedded locales/<lang>.yaml files.
func LoadCatalog() (*Catalog, error) {
	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bundled locales")
	}

	c := &Catalog{tables: map[Language]map[string]string{}}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		b, err := localesFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read locale %s", name)
		}
		if err := c.Add(Language(strings.TrimSuffix(name, ".yaml")), b); err != nil {
			return nil, err
		}
	}
	if _, ok := c.tables[DefaultLanguage]; !ok {
		return nil, errors.Errorf("bundled locales are missing the default language %q", DefaultLanguage)
	}
	return c, nil
}

// Add parses a YAML resource table and registers it under lang, replacing any previous table.
func (c *Catalog) Add(lang Language, data []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "failed to parse locale %s", lang)
	}
	table := map[string]string{}
	flatten("", raw, table)
	if c.tables == nil {
		c.tables = map[Language]map[string]string{}
	}
	c.tables[lang] = table
	return nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v_ := v.(type) {
		case map[string]interface{}:
			flatten(key, v_, out)
		case string:
			out[key] = v_
		default:
			out[key] = fmt.Sprint(v_)
		}
	}
}

func (c *Catalog) Has(lang Language) bool {
	_, ok := c.tables[lang]
	return ok
}

// Languages returns the bundled languages, sorted.
func (c *Catalog) Languages() []Language {
	ret := make([]Language, 0, len(c.tables))
	for lang := range c.tables {
		ret = append(ret, lang)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (c *Catalog) Lookup(lang Language, key string) (string, bool) {
	table, ok := c.tables[lang]
	if !ok {
		return "", false
	}
	s, ok := table[key]
	return s, ok
}

// Localizer is a Translator bound to a switchable current language. Missing keys fall back
// to the default language, then to the key itself.
type Localizer struct {
	mu      sync.RWMutex
	catalog *Catalog
	lang    Language
}

var _ Translator = &Localizer{}

func NewLocalizer(catalog *Catalog, lang Language) (*Localizer, error) {
	l := &Localizer{catalog: catalog, lang: DefaultLanguage}
	if lang == "" {
		return l, nil
	}
	if err := l.SetLanguage(lang); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Localizer) Catalog() *Catalog {
	return l.catalog
}

func (l *Localizer) Language() Language {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lang
}

func (l *Localizer) SetLanguage(lang Language) error {
	if !l.catalog.Has(lang) {
		return errors.Wrapf(ErrUnknownLanguage, "%q", lang)
	}
	l.mu.Lock()
	l.lang = lang
	l.mu.Unlock()
	return nil
}

func (l *Localizer) T(key string, params ...Param) string {
	lang := l.Language()
	s, ok := l.catalog.Lookup(lang, key)
	if !ok {
		s, ok = l.catalog.Lookup(DefaultLanguage, key)
	}
	if !ok {
		return key
	}
	return Interpolate(s, params...)
}

// Interpolate replaces every {{name}} placeholder with the matching param value.
// Unknown placeholders are left untouched.
func Interpolate(s string, params ...Param) string {
	if len(params) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	pairs := make([]string, 0, len(params)*2)
	for _, p := range params {
		pairs = append(pairs, "{{"+p.Name+"}}", p.Value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
