package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Policy decides what happens to a contributor email with no directory match.
type Policy string

const (
	// PolicyFallback uses the raw email as the user id and lets the write
	// succeed or fail on its own.
	PolicyFallback Policy = "fallback"
	// PolicyFail fails every item that would receive the unresolved email.
	PolicyFail Policy = "fail"
)

// ParsePolicy validates a policy name. The empty string selects PolicyFallback.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFallback, nil
	case PolicyFallback, PolicyFail:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Directory maps the contributor emails of one batch to user ids.
type Directory struct {
	ids    map[string]string
	policy Policy
}

// IDs maps emails to user ids in order, dropping duplicates. Under
// PolicyFallback an unresolved email stands in as its own id; under
// PolicyFail it is omitted. unresolved lists emails with no directory match.
func (d *Directory) IDs(emails []string) (ids []string, unresolved []string) {
	seenEmail := make(map[string]bool, len(emails))
	seenID := make(map[string]bool, len(emails))
	for _, email := range emails {
		key := normalizeEmail(email)
		if key == "" || seenEmail[key] {
			continue
		}
		seenEmail[key] = true

		if id, ok := d.ids[key]; ok {
			if !seenID[id] {
				seenID[id] = true
				ids = append(ids, id)
			}
			continue
		}

		unresolved = append(unresolved, strings.TrimSpace(email))
		if d.policy == PolicyFallback {
			ids = append(ids, strings.TrimSpace(email))
		}
	}
	return ids, unresolved
}

// Lookup returns the user id for email.
func (d *Directory) Lookup(email string) (string, bool) {
	id, ok := d.ids[normalizeEmail(email)]
	return id, ok
}

// Policy returns the unresolved contributor policy of the directory.
func (d *Directory) Policy() Policy {
	return d.policy
}

// LanguageInfo identifies a project language.
type LanguageInfo struct {
	ID       string `json:"id"`
	Codename string `json:"codename,omitempty"`
	Name     string `json:"name,omitempty"`
}

// LanguageTarget is the language of one request: the identifier as the
// operator gave it and, when known, its canonical form.
type LanguageTarget struct {
	Given kontent.LanguageRef
	Info  LanguageInfo
}

// Canonical returns the GUID form of the language when it is known and
// differs from the identifier as given.
func (t LanguageTarget) Canonical() (kontent.LanguageRef, bool) {
	if t.Info.ID == "" {
		return kontent.LanguageRef{}, false
	}
	canonical := kontent.LanguageID(t.Info.ID)
	if t.Given.IsID() && t.Given.String() == canonical.String() {
		return kontent.LanguageRef{}, false
	}
	return canonical, true
}

// Matches reports whether ref addresses the target language in any form.
func (t LanguageTarget) Matches(ref kontent.Reference) bool {
	if t.Given.Matches(ref) {
		return true
	}
	if t.Info.ID != "" && strings.EqualFold(ref.ID, t.Info.ID) {
		return true
	}
	return t.Info.Codename != "" && ref.Codename == t.Info.Codename
}

// Languages indexes the project languages by id and codename.
type Languages struct {
	byID       map[string]kontent.Language
	byCodename map[string]kontent.Language
}

// NewLanguages indexes list.
func NewLanguages(list []kontent.Language) *Languages {
	l := &Languages{
		byID:       make(map[string]kontent.Language, len(list)),
		byCodename: make(map[string]kontent.Language, len(list)),
	}
	for _, lang := range list {
		if lang.ID != "" {
			l.byID[strings.ToLower(lang.ID)] = lang
		}
		if lang.Codename != "" {
			l.byCodename[lang.Codename] = lang
		}
	}
	return l
}

// Target resolves identifier. GUIDs pass through; codenames are looked up.
// ok is false when a codename has no match. A nil Languages resolves GUIDs
// only.
func (l *Languages) Target(identifier string) (target LanguageTarget, ok bool) {
	ref := kontent.ParseLanguageRef(identifier)
	target.Given = ref

	if ref.IsID() {
		target.Info.ID = ref.String()
		if l != nil {
			if lang, found := l.byID[ref.String()]; found {
				target.Info = info(lang)
			}
		}
		return target, true
	}

	target.Info.Codename = ref.String()
	if l == nil {
		return target, false
	}
	lang, found := l.byCodename[ref.String()]
	if !found {
		return target, false
	}
	target.Info = info(lang)
	return target, true
}

// Resolver maps operator-supplied identifiers to canonical CMS ids.
type Resolver struct {
	cms    CMS
	policy Policy
	logger *slog.Logger
}

// NewResolver creates a Resolver applying policy to unresolved contributors.
func NewResolver(cms CMS, policy Policy, logger *slog.Logger) *Resolver {
	return &Resolver{
		cms:    cms,
		policy: policy,
		logger: logger,
	}
}

// ResolveUsers fetches the user directory once and maps emails to user ids by
// case-insensitive exact match. A directory fetch failure wraps ErrBatchSetup.
func (r *Resolver) ResolveUsers(ctx context.Context, emails []string) (*Directory, error) {
	users, err := r.cms.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load user directory: %w", ErrBatchSetup, err)
	}

	byEmail := make(map[string]string, len(users))
	for _, u := range users {
		if key := normalizeEmail(u.Email); key != "" && u.ID != "" {
			byEmail[key] = u.ID
		}
	}

	d := &Directory{
		ids:    make(map[string]string, len(emails)),
		policy: r.policy,
	}
	unresolved := make(map[string]bool)

	for _, email := range emails {
		key := normalizeEmail(email)
		if key == "" {
			continue
		}
		if id, ok := byEmail[key]; ok {
			d.ids[key] = id
			continue
		}
		if unresolved[key] {
			continue
		}
		unresolved[key] = true

		if r.policy == PolicyFallback {
			r.logger.Warn("contributor not in user directory, using email as user id",
				"email", strings.TrimSpace(email),
				"policy", string(r.policy),
			)
		} else {
			r.logger.Warn("contributor not in user directory",
				"email", strings.TrimSpace(email),
				"policy", string(r.policy),
			)
		}
	}

	r.logger.Debug("contributors resolved",
		"requested", len(emails),
		"resolved", len(d.ids),
		"unresolved", len(unresolved),
	)
	return d, nil
}

// LoadLanguages fetches and indexes the project languages.
func (r *Resolver) LoadLanguages(ctx context.Context) (*Languages, error) {
	list, err := r.cms.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load languages: %w", err)
	}
	return NewLanguages(list), nil
}

// ResolveLanguage maps a language identifier to its canonical form. GUIDs are
// returned without a fetch; codenames are looked up in the language list.
func (r *Resolver) ResolveLanguage(ctx context.Context, identifier string) (LanguageInfo, error) {
	ref := kontent.ParseLanguageRef(identifier)
	if ref.IsZero() {
		return LanguageInfo{}, fmt.Errorf("%w: empty identifier", ErrLanguageUnresolved)
	}
	if ref.IsID() {
		return LanguageInfo{ID: ref.String()}, nil
	}

	langs, err := r.LoadLanguages(ctx)
	if err != nil {
		return LanguageInfo{}, err
	}
	target, ok := langs.Target(identifier)
	if !ok {
		return LanguageInfo{}, fmt.Errorf("%w: %s", ErrLanguageUnresolved, identifier)
	}
	return target.Info, nil
}

// Lookup is the immutable reference data shared by every item of one batch.
type Lookup struct {
	Directory *Directory
	Languages *Languages
	Workflows *WorkflowCatalog
}

func info(lang kontent.Language) LanguageInfo {
	return LanguageInfo{
		ID:       strings.ToLower(lang.ID),
		Codename: lang.Codename,
		Name:     lang.Name,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
