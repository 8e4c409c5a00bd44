// Package vcsspec parses and formats pip VCS install specs of the form
//
//	git+<url>@<ref>#egg=<name>[<extra1>,<extra2>]
//
// These are the strings the PR checklist swaps into sample notebooks so a
// reviewer installs the package from the branch under review.
package vcsspec

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Spec is a parsed VCS install spec
type Spec struct {
	// URL is the repository URL without the git+ prefix or ref,
	// e.g. "https://github.com/chuangyeshuo/sqlvana"
	URL string

	// Ref is the branch, tag or commit after @. Empty means default branch.
	Ref string

	// Egg is the distribution name from the #egg= fragment
	Egg string

	// Extras are the bracketed extras, in declaration order
	Extras []string
}

// eggPattern validates distribution names (PEP 508 subset)
var eggPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// extraPattern validates a single extra name
var extraPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// Parse parses a VCS install spec string.
//
// Accepted shape: git+URL[@REF]#egg=NAME[[extra,extra]]
// The egg fragment is mandatory; the ref and extras are optional.
func Parse(s string) (*Spec, error) {
	if !strings.HasPrefix(s, "git+") {
		return nil, errors.NewInvalidSpecError("missing git+ scheme prefix in %q", s)
	}
	rest := strings.TrimPrefix(s, "git+")

	// Split off the #egg= fragment first: the URL itself may contain @
	hashIdx := strings.Index(rest, "#")
	if hashIdx < 0 {
		return nil, errors.NewInvalidSpecError("missing #egg= fragment in %q", s)
	}
	urlAndRef, fragment := rest[:hashIdx], rest[hashIdx+1:]

	if !strings.HasPrefix(fragment, "egg=") {
		return nil, errors.NewInvalidSpecError("fragment must start with egg= in %q", s)
	}
	eggAndExtras := strings.TrimPrefix(fragment, "egg=")

	egg, extras, err := parseEggAndExtras(eggAndExtras)
	if err != nil {
		return nil, err
	}

	repoURL, ref := splitRef(urlAndRef)
	if repoURL == "" {
		return nil, errors.NewInvalidSpecError("empty repository URL in %q", s)
	}

	parsed, err := url.Parse(repoURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.NewInvalidSpecError("malformed repository URL %q", repoURL)
	}
	switch parsed.Scheme {
	case "https", "http", "ssh", "git":
	default:
		return nil, errors.NewInvalidSpecError("unsupported URL scheme %q", parsed.Scheme)
	}

	return &Spec{
		URL:    repoURL,
		Ref:    ref,
		Egg:    egg,
		Extras: extras,
	}, nil
}

// splitRef separates the @ref suffix from a repository URL.
// Only the last @ after the host part counts: ssh URLs carry git@host.
func splitRef(urlAndRef string) (repoURL, ref string) {
	// Find the path portion so an @ in userinfo is never treated as a ref
	slashIdx := strings.Index(urlAndRef, "://")
	searchFrom := 0
	if slashIdx >= 0 {
		if pathIdx := strings.Index(urlAndRef[slashIdx+3:], "/"); pathIdx >= 0 {
			searchFrom = slashIdx + 3 + pathIdx
		} else {
			return urlAndRef, ""
		}
	}

	atIdx := strings.LastIndex(urlAndRef[searchFrom:], "@")
	if atIdx < 0 {
		return urlAndRef, ""
	}
	atIdx += searchFrom
	return urlAndRef[:atIdx], urlAndRef[atIdx+1:]
}

// parseEggAndExtras splits "name[a,b]" into name and extras
func parseEggAndExtras(s string) (string, []string, error) {
	bracketIdx := strings.Index(s, "[")
	if bracketIdx < 0 {
		if !eggPattern.MatchString(s) {
			return "", nil, errors.NewInvalidSpecError("invalid egg name %q", s)
		}
		return s, nil, nil
	}

	if !strings.HasSuffix(s, "]") {
		return "", nil, errors.NewInvalidSpecError("unterminated extras bracket in %q", s)
	}

	egg := s[:bracketIdx]
	if !eggPattern.MatchString(egg) {
		return "", nil, errors.NewInvalidSpecError("invalid egg name %q", egg)
	}

	inner := s[bracketIdx+1 : len(s)-1]
	if inner == "" {
		return egg, nil, nil
	}

	var extras []string
	for _, extra := range strings.Split(inner, ",") {
		extra = strings.TrimSpace(extra)
		if !extraPattern.MatchString(extra) {
			return "", nil, errors.NewInvalidSpecError("invalid extra %q", extra)
		}
		extras = append(extras, extra)
	}

	return egg, extras, nil
}

// String renders the spec in canonical form
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString("git+")
	b.WriteString(s.URL)
	if s.Ref != "" {
		b.WriteString("@")
		b.WriteString(s.Ref)
	}
	b.WriteString("#egg=")
	b.WriteString(s.Egg)
	if len(s.Extras) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(s.Extras, ","))
		b.WriteString("]")
	}
	return b.String()
}

// PipArgument renders the spec quoted for use in a shell command line,
// matching the form contributors paste into notebooks:
//
//	pip install 'git+https://...@branch#egg=sqlvana[chromadb,snowflake,openai]'
func (s *Spec) PipArgument() string {
	return "'" + s.String() + "'"
}

// WithRef returns a copy of the spec pointing at a different ref
func (s *Spec) WithRef(ref string) *Spec {
	out := *s
	out.Extras = append([]string(nil), s.Extras...)
	out.Ref = ref
	return &out
}

// WithExtras returns a copy of the spec with different extras
func (s *Spec) WithExtras(extras []string) *Spec {
	out := *s
	out.Extras = append([]string(nil), extras...)
	return &out
}
