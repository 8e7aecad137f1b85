package auth

import (
	"sort"
	"strings"
)

// Permission keys granted to roles and embedded in session tokens.
const (
	PermApprovePropertyKey       = "APPROVE_PROPERTY"
	PermReviewPropertyKey        = "REVIEW_PROPERTY"
	PermApproveLeaseAppKey       = "APPROVE_LEASE_APP"
	PermReviewLeaseAppKey        = "REVIEW_LEASE_APP"
	PermManageUsersKey           = "MANAGE_USERS"
	PermViewLandlordPortfolioKey = "VIEW_LANDLORD_PORTFOLIO"
	PermReviewIssuesKey          = "REVIEW_ISSUES"
)

// PermissionSet is an immutable set of permission keys. Lookups ignore case.
type PermissionSet struct {
	keys map[string]struct{}
}

// NewPermissionSet normalizes keys and drops blanks and duplicates.
func NewPermissionSet(keys ...string) PermissionSet {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = normalizeKey(k)
		if k == "" {
			continue
		}
		m[k] = struct{}{}
	}
	return PermissionSet{keys: m}
}

// Has reports whether key is in the set. The zero PermissionSet grants nothing.
func (p PermissionSet) Has(key string) bool {
	if p.keys == nil {
		return false
	}
	_, ok := p.keys[normalizeKey(key)]
	return ok
}

// HasAny reports whether at least one of keys is in the set.
func (p PermissionSet) HasAny(keys ...string) bool {
	for _, k := range keys {
		if p.Has(k) {
			return true
		}
	}
	return false
}

func (p PermissionSet) Len() int { return len(p.keys) }

// Keys returns the normalized keys in sorted order.
func (p PermissionSet) Keys() []string {
	out := make([]string, 0, len(p.keys))
	for k := range p.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeKey(k string) string {
	return strings.ToUpper(strings.TrimSpace(k))
}
