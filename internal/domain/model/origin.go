package model

import "strings"

// OriginSet records which queries found a key and on behalf of which members.
type OriginSet struct {
	tags    map[SearchOrigin]bool
	members []string
}

// Has reports whether the origin tag was recorded.
func (o OriginSet) Has(origin SearchOrigin) bool {
	return o.tags[origin]
}

// Members returns the handles whose queries found the key, in discovery order.
func (o OriginSet) Members() []string {
	return o.members
}

// SearchOriginMap maps each found key to the queries that produced it.
// It lives only for the duration of one run.
type SearchOriginMap map[PRKey]*OriginSet

// Record tags key with origin on behalf of member.
func (m SearchOriginMap) Record(key PRKey, origin SearchOrigin, member string) {
	set, ok := m[key]
	if !ok {
		set = &OriginSet{tags: make(map[SearchOrigin]bool, 2)}
		m[key] = set
	}
	set.tags[origin] = true

	for _, existing := range set.members {
		if strings.EqualFold(existing, member) {
			return
		}
	}
	set.members = append(set.members, member)
}

// Has reports whether key was found by the given query.
func (m SearchOriginMap) Has(key PRKey, origin SearchOrigin) bool {
	set, ok := m[key]
	return ok && set.Has(origin)
}
