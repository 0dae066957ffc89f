package keychain

import "slices"

// Authorization names an operation an access rule governs. Values match the
// Security.framework kSecACLAuthorization* constants.
type Authorization string

const (
	AuthorizationDecrypt   Authorization = "ACLAuthorizationDecrypt"
	AuthorizationEncrypt   Authorization = "ACLAuthorizationEncrypt"
	AuthorizationChangeACL Authorization = "ACLAuthorizationChangeACL"
)

// PromptSelector is the SecKeychainPromptSelector bit set of a rule.
type PromptSelector uint16

const (
	// PromptRequirePassphrase forces the keychain password prompt.
	PromptRequirePassphrase PromptSelector = 0x0001
	// PromptEnabled marks the selector as carrying prompt settings at all.
	PromptEnabled PromptSelector = 0x0100
)

// Rule is one access control entry of an item.
type Rule struct {
	Authorizations []Authorization
	// TrustedApps lists executable paths allowed without prompting. nil
	// means any application; an empty slice means none.
	TrustedApps []string
	Description string
	Prompt      PromptSelector

	index    int
	modified bool
}

// Governs reports whether the rule covers auth.
func (r *Rule) Governs(auth Authorization) bool {
	return slices.Contains(r.Authorizations, auth)
}

// SetContents replaces the trusted applications and prompt selector and marks
// the rule for write back.
func (r *Rule) SetContents(apps []string, prompt PromptSelector) {
	r.TrustedApps = apps
	r.Prompt = prompt
	r.modified = true
}

// Modified reports whether SetContents was called.
func (r *Rule) Modified() bool {
	return r.modified
}

// Access is the access rule set of one item, in service order.
type Access struct {
	Rules []*Rule
}

// Matching returns the rules governing auth, in service order.
func (a *Access) Matching(auth Authorization) []*Rule {
	var out []*Rule
	for _, r := range a.Rules {
		if r.Governs(auth) {
			out = append(out, r)
		}
	}
	return out
}

// clone deep-copies a so callers cannot mutate stored state.
func (a *Access) clone() *Access {
	out := &Access{Rules: make([]*Rule, len(a.Rules))}
	for i, r := range a.Rules {
		cp := *r
		cp.Authorizations = slices.Clone(r.Authorizations)
		if r.TrustedApps != nil {
			cp.TrustedApps = slices.Clone(r.TrustedApps)
		}
		cp.index = i
		cp.modified = false
		out.Rules[i] = &cp
	}
	return out
}
