package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"certhub/internal/model"
	pkgerrors "certhub/pkg/errors"
)

// Recognised placeholders. Templates write them as {name}.
const (
	PhCandidateName     = "candidateName"
	PhCandidateEmail    = "candidateEmail"
	PhCourseName        = "courseName"
	PhCourseCode        = "courseCode"
	PhIssueDate         = "issueDate"
	PhExpiryDate        = "expiryDate"
	PhCertificateNumber = "certificateNumber"
	PhGrade             = "grade"
	PhRemarks           = "remarks"
	PhOrganizationName  = "organizationName"
)

var recognisedPlaceholders = map[string]struct{}{
	PhCandidateName:     {},
	PhCandidateEmail:    {},
	PhCourseName:        {},
	PhCourseCode:        {},
	PhIssueDate:         {},
	PhExpiryDate:        {},
	PhCertificateNumber: {},
	PhGrade:             {},
	PhRemarks:           {},
	PhOrganizationName:  {},
}

// placeholderRe matches {identifier}. Braces around anything else are text.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// validatePlaceholders rejects identifiers outside the recognised set.
func validatePlaceholders(c model.TemplateContent) error {
	unknown := map[string]struct{}{}
	for _, text := range []string{c.Header, c.Body, c.Footer} {
		for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
			if _, ok := recognisedPlaceholders[m[1]]; !ok {
				unknown[m[1]] = struct{}{}
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, "{"+n+"}")
	}
	sort.Strings(names)
	return pkgerrors.Validation(fmt.Sprintf("%s: %s", ErrUnknownPlaceholder.Message, strings.Join(names, ", ")))
}

// resolvePlaceholders substitutes every recognised placeholder. Tokens that
// are not recognised stay as written.
func resolvePlaceholders(c model.TemplateContent, values map[string]string) model.TemplateContent {
	replace := func(text string) string {
		return placeholderRe.ReplaceAllStringFunc(text, func(tok string) string {
			name := tok[1 : len(tok)-1]
			if v, ok := values[name]; ok {
				return v
			}
			return tok
		})
	}
	return model.TemplateContent{
		Header: replace(c.Header),
		Body:   replace(c.Body),
		Footer: replace(c.Footer),
	}
}
