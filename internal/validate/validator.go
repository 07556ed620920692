// Package validate gates generated game code on security and quality
// checks before it is accepted as a new version. Pattern-based only.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Result is the outcome of validating one code snapshot.
type Result struct {
	Passed         bool     `json:"passed"`
	SecurityScore  int      `json:"security_score"`
	QualityScore   int      `json:"quality_score"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	SecurityIssues []string `json:"security_issues,omitempty"`
}

// Issues flattens everything the next generation attempt must fix.
func (r Result) Issues() []string {
	out := make([]string, 0, len(r.Errors)+len(r.SecurityIssues))
	out = append(out, r.Errors...)
	out = append(out, r.SecurityIssues...)
	return out
}

// requiredStructure must all be present in a complete HTML document.
var requiredStructure = []struct {
	expr *regexp.Regexp
	desc string
}{
	{regexp.MustCompile(`(?i)<!DOCTYPE\s+html>`), "missing DOCTYPE declaration"},
	{regexp.MustCompile(`(?i)<html[^>]*>`), "missing <html> tag"},
	{regexp.MustCompile(`(?i)</html>`), "missing closing </html> tag"},
	{regexp.MustCompile(`(?i)<head[^>]*>`), "missing <head> section"},
	{regexp.MustCompile(`(?i)<body[^>]*>`), "missing <body> section"},
}

// dangerousPatterns reject code outright when matched.
var dangerousPatterns = []struct {
	expr *regexp.Regexp
	desc string
}{
	{regexp.MustCompile(`(?i)\beval\s*\(`), "eval() call"},
	{regexp.MustCompile(`(?i)\bnew\s+Function\s*\(`), "Function constructor"},
	{regexp.MustCompile(`(?i)document\.write\s*\(`), "document.write() call"},
	{regexp.MustCompile(`(?i)javascript:`), "javascript: URI"},
	{regexp.MustCompile(`(?i)vbscript:`), "vbscript: URI"},
	{regexp.MustCompile(`(?i)data:text/html`), "data:text/html URI"},
	{regexp.MustCompile(`(?i)<iframe[^>]*srcdoc`), "iframe srcdoc injection"},
	{regexp.MustCompile(`(?i)insertAdjacentHTML\s*\(`), "insertAdjacentHTML() call"},
}

var (
	externalRefExpr  = regexp.MustCompile(`(?i)(?:src|href)\s*=\s*["']?(https?://[^"'>\s]+)`)
	eventHandlerExpr = regexp.MustCompile(`(?i)\son\w+\s*=`)
	scriptTagExpr    = regexp.MustCompile(`(?i)<script[^>]*>`)
	innerHTMLExpr    = regexp.MustCompile(`(?i)\binnerHTML\s*=`)
	titleExpr        = regexp.MustCompile(`(?i)<title[^>]*>\s*[^<]`)
	charsetExpr      = regexp.MustCompile(`(?i)<meta[^>]+charset`)
)

// Validator checks generated HTML game code. Safe for concurrent use.
type Validator struct {
	maxCodeBytes   int
	maxScriptTags  int
	allowedDomains map[string]bool
}

// New creates a validator. maxCodeBytes <= 0 disables the size check.
func New(maxCodeBytes int) *Validator {
	return &Validator{
		maxCodeBytes:  maxCodeBytes,
		maxScriptTags: 10,
		allowedDomains: map[string]bool{
			"cdn.jsdelivr.net":     true,
			"cdnjs.cloudflare.com": true,
			"unpkg.com":            true,
			"fonts.googleapis.com": true,
			"fonts.gstatic.com":    true,
		},
	}
}

// Validate runs all checks over the code and computes scores. It never
// returns an error: a broken snapshot is a failed Result, not a failure of
// validation itself.
func (v *Validator) Validate(code string) Result {
	var res Result

	if strings.TrimSpace(code) == "" {
		res.Errors = append(res.Errors, "empty code")
		return v.score(res)
	}
	if v.maxCodeBytes > 0 && len(code) > v.maxCodeBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("code exceeds size limit (%d > %d bytes)", len(code), v.maxCodeBytes))
	}

	for _, req := range requiredStructure {
		if !req.expr.MatchString(code) {
			res.Errors = append(res.Errors, req.desc)
		}
	}

	for _, pat := range dangerousPatterns {
		if pat.expr.MatchString(code) {
			res.SecurityIssues = append(res.SecurityIssues, "dangerous pattern: "+pat.desc)
		}
	}

	for _, m := range externalRefExpr.FindAllStringSubmatch(code, -1) {
		u, err := url.Parse(m[1])
		if err != nil || u.Host == "" {
			continue
		}
		if !v.allowedDomains[strings.ToLower(u.Host)] {
			res.SecurityIssues = append(res.SecurityIssues, "unauthorized external domain: "+u.Host)
		}
	}

	if n := len(eventHandlerExpr.FindAllString(code, -1)); n > 0 {
		res.SecurityIssues = append(res.SecurityIssues, fmt.Sprintf("inline event handlers: %d instances", n))
	}

	if innerHTMLExpr.MatchString(code) {
		res.Warnings = append(res.Warnings, "innerHTML assignment; prefer DOM APIs")
	}
	if n := len(scriptTagExpr.FindAllString(code, -1)); n > v.maxScriptTags {
		res.Warnings = append(res.Warnings, fmt.Sprintf("too many script tags: %d", n))
	}
	if !charsetExpr.MatchString(code) {
		res.Warnings = append(res.Warnings, "missing charset meta tag")
	}
	if !titleExpr.MatchString(code) {
		res.Warnings = append(res.Warnings, "missing or empty title tag")
	}

	return v.score(res)
}

func (v *Validator) score(res Result) Result {
	res.SecurityScore = clampScore(100 - 25*len(res.SecurityIssues))
	res.QualityScore = clampScore(100 - 20*len(res.Errors) - 10*len(res.Warnings))
	res.Passed = len(res.Errors) == 0 && len(res.SecurityIssues) == 0
	return res
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	return s
}
