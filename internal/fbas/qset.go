package fbas

import "sort"

// InternalQuorumSet is the declared form of a validator's quorum set: a
// threshold over validator ids and nested sets. Declarations are explicit
// subtrees -- a validator cannot name another validator's qset -- so the
// structure is a finite tree and never contains a cycle. Validator ids are
// plain strings so tests can use short names instead of valid strkeys.
type InternalQuorumSet struct {
	Threshold  uint32
	Validators []string
	InnerSets  []InternalQuorumSet
}

// QuorumSetMap maps each validator id to its declared quorum set.
type QuorumSetMap map[string]*InternalQuorumSet

// sortedKeys returns the validator ids in sorted order; vertex indices are
// assigned in this order so they are stable across runs.
func (m QuorumSetMap) sortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
