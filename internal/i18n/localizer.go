package i18n

import (
	"context"
	"fmt"

	"pointbox/customer-web/internal/store"
)

// Localizer is the language state of one browser.
type Localizer struct {
	catalog *Catalog
	store   store.Store
	lang    string
}

func NewLocalizer(ctx context.Context, catalog *Catalog, s store.Store) *Localizer {
	lang := catalog.DefaultLanguage()
	if stored, ok, err := s.Get(ctx, store.KeyLanguage); err == nil && ok && supported(stored) {
		lang = stored
	}
	return &Localizer{catalog: catalog, store: s, lang: lang}
}

func (l *Localizer) Language() string {
	return l.lang
}

func (l *Localizer) SetLanguage(ctx context.Context, lang string) error {
	if !supported(lang) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	if err := l.store.Set(ctx, store.KeyLanguage, lang); err != nil {
		return err
	}
	l.lang = lang
	return nil
}

func (l *Localizer) T(key string) string {
	return l.catalog.Lookup(l.lang, key)
}

// Dir is always ltr. Arabic is offered but no right-to-left layout exists.
func (l *Localizer) Dir() string {
	return "ltr"
}

func (l *Localizer) IsRTL() bool {
	return false
}
