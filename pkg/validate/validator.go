package validate

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/parse"
	"scope-crawler/pkg/trap"
	"scope-crawler/pkg/utils"
)

// DefaultScopeSuffix is the hostname fragment every in-scope URL must contain
const DefaultScopeSuffix = ".ics.uci.edu"

// nonHTMLExtensions matches lowercased paths that point at binaries, media and documents
var nonHTMLExtensions = regexp.MustCompile(`\.(css|js|bmp|gif|jpe?g|ico` +
	`|png|tiff?|mid|mp2|mp3|mp4` +
	`|wav|avi|mov|mpeg|ram|m4v|mkv|ogg|ogv|pdf` +
	`|ps|eps|tex|ppt|pptx|doc|docx|xls|xlsx|names|data|dat|exe|bz2|tar|msi|bin|7z|psd|dmg|iso|epub|dll|cnf|tgz|sha1` +
	`|thmx|mso|arff|rtf|jar|csv` +
	`|rm|smil|wmv|swf|wma|zip|rar|gz)$`)

// TrapClassifier decides whether a parsed URL is a crawler trap
type TrapClassifier interface {
	Classify(u parse.NormalizedURL) (bool, trap.Reason)
}

// TrapRecorder receives the domain_path of every URL rejected as a trap
type TrapRecorder interface {
	RecordTrap(domainPath string)
}

// Validator gates which discovered links may enter the frontier
type Validator struct {
	scopeSuffix        string
	disallowedPatterns []*regexp.Regexp
	traps              TrapClassifier
	recorder           TrapRecorder
	log                *logrus.Entry
}

// NewValidator creates a Validator. An empty scopeSuffix falls back to DefaultScopeSuffix.
// disallowedPatterns are optional extra path filters; nil means none.
func NewValidator(scopeSuffix string, disallowedPatterns []*regexp.Regexp, traps TrapClassifier, recorder TrapRecorder, log *logrus.Entry) *Validator {
	if scopeSuffix == "" {
		scopeSuffix = DefaultScopeSuffix
	}
	return &Validator{
		scopeSuffix:        strings.ToLower(scopeSuffix),
		disallowedPatterns: disallowedPatterns,
		traps:              traps,
		recorder:           recorder,
		log:                log.WithField("component", "link_validator"),
	}
}

// Scope returns the lowercased hostname fragment links must contain
func (v *Validator) Scope() string {
	return v.scopeSuffix
}

// IsValid reports whether rawURL should be fetched. See Check.
func (v *Validator) IsValid(rawURL string) bool {
	return v.Check(rawURL) == nil
}

// Check runs the validation pipeline and returns nil for an acceptable URL or
// an error wrapping ErrParsing, ErrTrapDetected or ErrScopeViolation.
// It is not pure: the trap check advances visit counters and a flagged URL is
// appended to the trap log on every call.
func (v *Validator) Check(rawURL string) error {
	u, err := parse.Parse(rawURL)
	if err != nil {
		v.log.WithFields(logrus.Fields{
			"url":       rawURL,
			"error_cat": utils.CategorizeError(err),
		}).Errorf("Rejecting unparseable link: %v", err)
		return err
	}

	if isTrap, reason := v.traps.Classify(u); isTrap {
		v.recorder.RecordTrap(u.DomainPath())
		return utils.WrapErrorf(utils.ErrTrapDetected, "%s (%s)", u.DomainPath(), reason)
	}

	host := u.Hostname()
	if host == "" {
		err := utils.WrapErrorf(utils.ErrParsing, "parsing URL '%s': no hostname", rawURL)
		v.log.WithFields(logrus.Fields{
			"url":       rawURL,
			"error_cat": utils.CategorizeError(err),
		}).Error("Rejecting link without a hostname")
		return err
	}
	if !strings.Contains(host, v.scopeSuffix) {
		return utils.WrapErrorf(utils.ErrScopeViolation, "host '%s' lacks '%s'", host, v.scopeSuffix)
	}

	path := strings.ToLower(u.Path)
	if nonHTMLExtensions.MatchString(path) {
		return utils.WrapErrorf(utils.ErrScopeViolation, "path '%s' has a non-HTML extension", u.Path)
	}
	for _, re := range v.disallowedPatterns {
		if re.MatchString(u.Path) {
			return utils.WrapErrorf(utils.ErrScopeViolation, "path '%s' matches disallowed pattern '%s'", u.Path, re.String())
		}
	}

	return nil
}
