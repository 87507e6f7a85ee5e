package analyzer

import (
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rachitkumar205/fbas-analyzer/internal/fbas"
	"github.com/rachitkumar205/fbas-analyzer/internal/limits"
	"go.uber.org/zap"
)

// hasDisjointQuorums brute-forces the split search: enumerate every
// non-empty validator subset, keep the closed ones, look for a disjoint
// pair. Only viable on tiny networks.
func hasDisjointQuorums(qsm fbas.QuorumSetMap) bool {
	names := make([]string, 0, len(qsm))
	for name := range qsm {
		names = append(names, name)
	}
	sort.Strings(names)

	var quorums []int
	for mask := 1; mask < 1<<len(names); mask++ {
		set := make(map[string]bool)
		for i, name := range names {
			if mask&(1<<i) != 0 {
				set[name] = true
			}
		}
		if isQuorum(qsm, set) {
			quorums = append(quorums, mask)
		}
	}

	for i := 0; i < len(quorums); i++ {
		for j := i + 1; j < len(quorums); j++ {
			if quorums[i]&quorums[j] == 0 {
				return true
			}
		}
	}
	return false
}

func genQuorumSet(names []string) gopter.Gen {
	n := len(names)
	// threshold (degenerate values included), member picks with
	// duplicates allowed, and optionally one inner set of the same shape
	return gopter.CombineGens(
		gen.UInt32Range(0, uint32(n)+1),
		gen.SliceOf(gen.IntRange(0, n-1)),
		gen.Bool(),
		gen.UInt32Range(0, uint32(n)),
		gen.SliceOf(gen.IntRange(0, n-1)),
	).Map(func(vals []interface{}) fbas.InternalQuorumSet {
		q := fbas.InternalQuorumSet{Threshold: vals[0].(uint32)}
		for _, i := range vals[1].([]int) {
			q.Validators = append(q.Validators, names[i])
		}
		if vals[2].(bool) {
			inner := fbas.InternalQuorumSet{Threshold: vals[3].(uint32)}
			for _, i := range vals[4].([]int) {
				inner.Validators = append(inner.Validators, names[i])
			}
			q.InnerSets = []fbas.InternalQuorumSet{inner}
		}
		return q
	})
}

func genNetwork() gopter.Gen {
	return gen.IntRange(1, 4).FlatMap(func(v interface{}) gopter.Gen {
		n := v.(int)
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("v%d", i)
		}
		return gen.SliceOfN(n, genQuorumSet(names)).Map(func(qsets []fbas.InternalQuorumSet) fbas.QuorumSetMap {
			qsm := make(fbas.QuorumSetMap, n)
			for i, name := range names {
				q := qsets[i]
				qsm[name] = &q
			}
			return qsm
		})
	}, reflect.TypeOf(fbas.QuorumSetMap{}))
}

func TestSolverAgreesWithBruteForce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80

	properties := gopter.NewProperties(parameters)
	properties.Property("verdict matches brute-force split search", prop.ForAll(
		func(qsm fbas.QuorumSetMap) bool {
			an, err := FromQuorumSetMap(qsm, limits.Unlimited(zap.NewNop()), zap.NewNop())
			if err != nil {
				return false
			}
			status, err := an.Solve()
			if err != nil {
				return false
			}

			if hasDisjointQuorums(qsm) {
				if status != StatusSAT {
					return false
				}
				qa, qb, err := an.PotentialSplit()
				if err != nil || len(qa) == 0 || len(qb) == 0 {
					return false
				}
				return isQuorum(qsm, toSet(qa)) && isQuorum(qsm, toSet(qb))
			}
			return status == StatusUNSAT
		},
		genNetwork(),
	))

	properties.TestingRun(t)
}
