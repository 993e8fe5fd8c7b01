package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Languages lists the supported languages in display order.
var Languages = []string{"en", "es", "fr", "ar"}

var ErrUnsupportedLanguage = errors.New("unsupported language")

type table = map[string]interface{}

// Catalog holds one nested string table per language, all loaded up front.
type Catalog struct {
	mu          sync.RWMutex
	defaultLang string
	tables      map[string]table
}

func LoadEmbedded(defaultLang string) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return Load(sub, defaultLang)
}

func LoadDir(dir, defaultLang string) (*Catalog, error) {
	return Load(os.DirFS(dir), defaultLang)
}

func Load(fsys fs.FS, defaultLang string) (*Catalog, error) {
	if !supported(defaultLang) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, defaultLang)
	}
	c := &Catalog{defaultLang: defaultLang}
	if err := c.Reload(fsys); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces every table at once; on error the previous tables stay.
func (c *Catalog) Reload(fsys fs.FS) error {
	tables := make(map[string]table, len(Languages))
	for _, lang := range Languages {
		data, err := fs.ReadFile(fsys, lang+".yaml")
		if err != nil {
			return fmt.Errorf("read %s locale: %w", lang, err)
		}
		var parsed table
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("parse %s locale: %w", lang, err)
		}
		if parsed == nil {
			parsed = table{}
		}
		tables[lang] = parsed
	}
	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()
	return nil
}

func (c *Catalog) DefaultLanguage() string {
	return c.defaultLang
}

// Lookup walks the dotted key in lang, then in the default language, and
// returns the key itself when neither resolves to a string.
func (c *Catalog) Lookup(lang, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path := strings.Split(key, ".")
	if value, ok := walk(c.tables[lang], path); ok {
		return value
	}
	if value, ok := walk(c.tables[c.defaultLang], path); ok {
		return value
	}
	return key
}

func walk(t table, path []string) (string, bool) {
	var current interface{} = t
	for _, segment := range path {
		node, ok := current.(table)
		if !ok {
			return "", false
		}
		current, ok = node[segment]
		if !ok {
			return "", false
		}
	}
	value, ok := current.(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Missing lists the keys of the default table that lang cannot resolve on
// its own.
func (c *Catalog) Missing(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	flatten("", c.tables[c.defaultLang], &keys)
	var missing []string
	for _, key := range keys {
		if _, ok := walk(c.tables[lang], strings.Split(key, ".")); !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func flatten(prefix string, t table, out *[]string) {
	for key, value := range t {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(table); ok {
			flatten(full, nested, out)
			continue
		}
		*out = append(*out, full)
	}
}

func supported(lang string) bool {
	for _, candidate := range Languages {
		if candidate == lang {
			return true
		}
	}
	return false
}
