// Package catalog looks up the localized templates used for chat notices and
// replies.
//
// Templates live under "chat.msg.<name>" with an optional language suffix,
// e.g. "chat.msg.enter.fr". They may reference up to three positional
// arguments: {0} the acting nickname, {1} the target user and {2} a free
// comment.
package catalog

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// KeyPrefix is prepended to every message name in the properties file.
const KeyPrefix = "chat.msg."

// LanguageKey selects the language suffix tried first.
const LanguageKey = "chat.language"

// Catalog resolves message names to formatted text.
type Catalog struct {
	templates map[string]string
	suffixes  []string
}

// New creates a catalog from templates keyed by message name (without
// KeyPrefix). lang may be empty.
func New(templates map[string]string, lang string) *Catalog {
	c := &Catalog{
		templates: make(map[string]string, len(templates)),
		suffixes:  Suffixes(lang),
	}
	for name, tpl := range templates {
		c.templates[strings.ToLower(name)] = tpl
	}
	return c
}

// FromViper collects every "chat.msg.*" key of v.
func FromViper(v *viper.Viper) *Catalog {
	templates := make(map[string]string)
	for _, key := range v.AllKeys() {
		if name, ok := strings.CutPrefix(key, KeyPrefix); ok {
			templates[name] = v.GetString(key)
		}
	}
	c := New(templates, v.GetString(LanguageKey))
	log.WithFields(log.Fields{"templates": len(templates), "languages": c.suffixes}).Debug("Message catalog loaded")
	return c
}

// Suffixes returns the language suffixes to try, most specific first. An
// unparsable tag is tried verbatim.
func Suffixes(lang string) []string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil
	}

	suffixes := []string{lang}
	add := func(s string) {
		for _, existing := range suffixes {
			if existing == s {
				return
			}
		}
		suffixes = append(suffixes, s)
	}

	tag, err := language.Parse(lang)
	if err != nil {
		log.WithError(err).WithField("language", lang).Warn("Unrecognized chat language")
		return suffixes
	}
	add(strings.ToLower(tag.String()))
	if base, confidence := tag.Base(); confidence != language.No {
		add(base.String())
	}
	return suffixes
}

// Template returns the raw template for name after language fallback.
func (c *Catalog) Template(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, suffix := range c.suffixes {
		if tpl, ok := c.templates[name+"."+suffix]; ok {
			return tpl, true
		}
	}
	if tpl, ok := c.templates[name]; ok {
		return tpl, true
	}
	tpl, ok := defaults[name]
	return tpl, ok
}

// Format substitutes args into the template called name. Missing arguments
// are replaced by empty strings. When arguments are given, trailing spaces
// left by an empty comment are dropped. Unknown names yield the name itself.
func (c *Catalog) Format(name string, args ...string) string {
	tpl, ok := c.Template(name)
	if !ok {
		return name
	}
	if len(args) == 0 {
		return tpl
	}

	pairs := make([]string, 0, 6)
	for i := 0; i < 3; i++ {
		arg := ""
		if i < len(args) {
			arg = args[i]
		}
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", arg)
	}
	return strings.TrimRight(strings.NewReplacer(pairs...).Replace(tpl), " ")
}
