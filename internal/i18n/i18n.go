// Package i18n turns failure kinds and action kinds into display text.
// Messages live in per-locale YAML catalogs; each Bundle registers them in
// its own golang.org/x/text/message catalog.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/rules"
)

// BaseLocale must exist in every bundle and is the last-resort fallback.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the loaded locales and picks one per request.
type Bundle struct {
	supported []language.Tag // fallback first
	messages  map[string]map[string]string
	catalog   *catalog.Builder
	matcher   language.Matcher
	fallback  language.Tag
}

var defaultBundle = mustLoadEmbedded()

func mustLoadEmbedded() *Bundle {
	b, err := LoadFS(embeddedFS, BaseLocale)
	if err != nil {
		panic(fmt.Sprintf("embedded locale catalogs are invalid: %v", err))
	}
	return b
}

// Default returns the embedded bundle with en-US as the fallback.
func Default() *Bundle {
	return defaultBundle
}

// New returns the embedded catalogs with defaultLocale as the fallback.
// Unknown locales fall back to BaseLocale.
func New(defaultLocale string) (*Bundle, error) {
	return LoadFS(embeddedFS, defaultLocale)
}

// LoadFS loads every locales/*.yaml in fsys and registers the messages.
func LoadFS(fsys fs.FS, defaultLocale string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]string{}, catalog: catalog.NewBuilder()}
	tags := map[string]language.Tag{}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: invalid locale %q: %w", path, file.Locale, err)
		}
		locale := tag.String()
		if _, exists := b.messages[locale]; exists {
			return nil, fmt.Errorf("catalog %s: locale %s already loaded", path, locale)
		}
		b.messages[locale] = file.Messages
		tags[locale] = tag
		if err := b.register(tag, file.Messages); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	base, ok := tags[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	b.fallback = base
	if tag, ok := tags[defaultLocale]; ok {
		b.fallback = tag
	}

	b.supported = append(b.supported, b.fallback)
	locales := make([]string, 0, len(tags))
	for locale := range tags {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	for _, locale := range locales {
		if tags[locale] != b.fallback {
			b.supported = append(b.supported, tags[locale])
		}
	}
	b.matcher = language.NewMatcher(b.supported)
	return b, nil
}

// register adds messages under tag and its base language.
func (b *Bundle) register(tag language.Tag, messages map[string]string) error {
	targets := []language.Tag{tag}
	if base, conf := tag.Base(); conf != language.No {
		if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
			targets = append(targets, baseTag)
		}
	}
	keys := make([]string, 0, len(messages))
	for key := range messages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, target := range targets {
			if err := b.catalog.SetString(target, key, messages[key]); err != nil {
				return fmt.Errorf("register %s for %s: %w", key, target, err)
			}
		}
	}
	return nil
}

// Supported returns the loaded locales, fallback first.
func (b *Bundle) Supported() []language.Tag {
	return append([]language.Tag(nil), b.supported...)
}

// Fallback returns the locale used when nothing matches.
func (b *Bundle) Fallback() language.Tag {
	return b.fallback
}

// Match picks the best supported locale for the first non-empty value. Each
// value may be a single tag or an Accept-Language header.
func (b *Bundle) Match(values ...string) language.Tag {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(v)
		if err != nil || len(tags) == 0 {
			continue
		}
		if _, idx, conf := b.matcher.Match(tags...); conf != language.No {
			return b.supported[idx]
		}
	}
	return b.fallback
}

// Translator returns a rules.Translator for tag.
func (b *Bundle) Translator(tag language.Tag) *Translator {
	locale := tag.String()
	if _, ok := b.messages[locale]; !ok {
		tag = b.fallback
		locale = tag.String()
	}
	return &Translator{
		tag:      tag,
		printer:  message.NewPrinter(tag, message.Catalog(b.catalog)),
		messages: b.messages[locale],
		base:     message.NewPrinter(language.MustParse(BaseLocale), message.Catalog(b.catalog)),
		baseMsgs: b.messages[BaseLocale],
	}
}

// Translator renders messages for one locale, falling back to BaseLocale
// per key.
type Translator struct {
	tag      language.Tag
	printer  *message.Printer
	messages map[string]string
	base     *message.Printer
	baseMsgs map[string]string
}

var _ rules.Translator = (*Translator)(nil)

// Translate returns the text for key, or key itself when no locale has it.
func (t *Translator) Translate(key string, args ...any) string {
	if _, ok := t.messages[key]; ok {
		return t.printer.Sprintf(key, args...)
	}
	if _, ok := t.baseMsgs[key]; ok {
		return t.base.Sprintf(key, args...)
	}
	return key
}

// ActionLabel returns the display label for an action kind: the catalog's
// "action.<kind>" message when one exists, otherwise the kind tag title-cased
// for the translator's locale.
func (t *Translator) ActionLabel(kind actions.Kind) string {
	key := "action." + string(kind)
	if _, ok := t.messages[key]; ok {
		return t.printer.Sprintf(key)
	}
	return titleLabel(string(kind), t.tag)
}

// titleLabel turns a kind tag such as "bertObsession.completed" into
// "Bert Obsession Completed".
func titleLabel(kind string, tag language.Tag) string {
	var words strings.Builder
	for i, r := range kind {
		switch {
		case r == '.' || r == '_' || r == '-':
			words.WriteRune(' ')
		case unicode.IsUpper(r) && i > 0:
			words.WriteRune(' ')
			words.WriteRune(r)
		default:
			words.WriteRune(r)
		}
	}
	return cases.Title(tag).String(words.String())
}
