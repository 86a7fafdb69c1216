package validator

import (
	"regexp"
	"strings"

	"toolx/entity"
)

// local@domain.tld with no whitespace and a single @ on each side of the split.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var defaultDisposableDomains = []string{
	"mailinator.com",
	"10minutemail.com",
	"temp-mail.org",
	"guerrillamail.com",
	"yopmail.com",
	"trashmail.com",
	"getnada.com",
	"tempmail.dev",
}

// EmailDomainValidator checks email shape and the allow/deny domain lists.
// It holds no mutable state; Validate is safe for concurrent use.
type EmailDomainValidator struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

// NewEmailDomainValidator builds a validator. A non-empty allow list takes precedence over
// the deny list; the builtin disposable domains are always denied.
func NewEmailDomainValidator(allow, deny []string) *EmailDomainValidator {
	v := &EmailDomainValidator{
		allow: make(map[string]struct{}, len(allow)),
		deny:  make(map[string]struct{}, len(deny)+len(defaultDisposableDomains)),
	}
	for _, d := range allow {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			v.allow[d] = struct{}{}
		}
	}
	for _, d := range defaultDisposableDomains {
		v.deny[d] = struct{}{}
	}
	for _, d := range deny {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			v.deny[d] = struct{}{}
		}
	}
	return v
}

// Validate returns nil for an acceptable email or a *entity.ValidationError explaining why not.
func (v *EmailDomainValidator) Validate(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return &entity.ValidationError{Reason: "Email is required"}
	}

	if !emailShape.MatchString(email) {
		return &entity.ValidationError{Reason: "Invalid email address"}
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	if domain == "" {
		return &entity.ValidationError{Reason: "Invalid email domain"}
	}

	if len(v.allow) > 0 {
		if _, ok := v.allow[domain]; !ok {
			return &entity.ValidationError{Reason: "Email domain is not in the allow list"}
		}
		return nil
	}

	if _, ok := v.deny[domain]; ok {
		return &entity.ValidationError{Reason: "Email domain is not supported"}
	}

	return nil
}
