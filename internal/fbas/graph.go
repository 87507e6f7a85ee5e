package fbas

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rachitkumar205/fbas-analyzer/internal/limits"
	"go.uber.org/zap"
)

// QuorumSetMaxDepth bounds recursive descent while building the graph.
// Protocol constant; deeper declarations fail with ErrMaxDepthExceeded.
const QuorumSetMaxDepth = 4

// VertexKind tags the two vertex variants.
type VertexKind uint8

const (
	VertexValidator VertexKind = iota
	VertexQSet
)

// QSet is a quorum-set vertex: a threshold over successor vertices.
// Successor index lists are sorted and deduplicated, so a duplicated
// member in a declaration collapses to a single edge.
type QSet struct {
	Threshold  uint32
	Validators []int
	InnerQSets []int
}

// key is the canonical form used for structural deduplication.
func (q *QSet) key() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(q.Threshold), 10))
	for _, vi := range q.Validators {
		b.WriteString(",v")
		b.WriteString(strconv.Itoa(vi))
	}
	for _, qi := range q.InnerQSets {
		b.WriteString(",q")
		b.WriteString(strconv.Itoa(qi))
	}
	return b.String()
}

// Vertex is either a validator or a quorum-set node.
type Vertex struct {
	Kind VertexKind
	Name string // validator id when Kind == VertexValidator
	QSet *QSet  // payload when Kind == VertexQSet
}

// Threshold returns 1 for validators (a validator depends on exactly its
// root qset) and the declared threshold for qset vertices.
func (v *Vertex) Threshold() uint32 {
	if v.Kind == VertexValidator {
		return 1
	}
	return v.QSet.Threshold
}

// Fbas is the transitive dependency graph of an fbas: a dense vertex
// array indexed by small integers with an adjacency slice per vertex.
// Built once from a quorum-set map, immutable afterwards.
type Fbas struct {
	vertices   []Vertex
	succ       [][]int
	validators []int
	logger     *zap.Logger
}

func (f *Fbas) NumVertices() int { return len(f.vertices) }

// Validators lists the indices of validator vertices, in sorted-id order.
func (f *Fbas) Validators() []int { return f.validators }

func (f *Fbas) Vertex(i int) *Vertex { return &f.vertices[i] }

// Successors returns the sorted successor indices of a vertex: the single
// root qset for a validator, the member set for a qset vertex.
func (f *Fbas) Successors(i int) []int { return f.succ[i] }

// ValidatorName resolves a validator vertex index back to its id.
func (f *Fbas) ValidatorName(i int) (string, error) {
	if i < 0 || i >= len(f.vertices) || f.vertices[i].Kind != VertexValidator {
		return "", InternalError("vertex index is not a validator")
	}
	return f.vertices[i].Name, nil
}

func (f *Fbas) numEdges() int {
	n := 0
	for _, s := range f.succ {
		n += len(s)
	}
	return n
}

// BuildFbas turns a quorum-set map into the dependency graph. Validators
// get vertices first, in sorted-key order, so indices are deterministic;
// the declared qset trees are then transformed depth-first with
// structural deduplication of qset vertices.
func BuildFbas(qsm QuorumSetMap, lim *limits.Limiter, logger *zap.Logger) (*Fbas, error) {
	f := &Fbas{logger: logger}
	knownValidators := make(map[string]int, len(qsm))
	knownQSets := make(map[string]int)

	keys := qsm.sortedKeys()
	for _, name := range keys {
		idx := f.addVertex(Vertex{Kind: VertexValidator, Name: name})
		f.validators = append(f.validators, idx)
		knownValidators[name] = idx
	}

	for _, name := range keys {
		if err := lim.Enforce(); err != nil {
			return nil, err
		}
		qIdx, err := f.processQuorumSet(qsm[name], 0, knownValidators, knownQSets)
		if err != nil {
			return nil, err
		}
		f.succ[knownValidators[name]] = []int{qIdx}
	}

	f.logger.Debug("fbas graph built",
		zap.Int("validators", len(f.validators)),
		zap.Int("vertices", len(f.vertices)),
		zap.Int("edges", f.numEdges()))
	return f, nil
}

func (f *Fbas) addVertex(v Vertex) int {
	f.vertices = append(f.vertices, v)
	f.succ = append(f.succ, nil)
	return len(f.vertices) - 1
}

func (f *Fbas) processQuorumSet(qset *InternalQuorumSet, depth int, knownValidators map[string]int, knownQSets map[string]int) (int, error) {
	if depth == QuorumSetMaxDepth {
		return 0, ErrMaxDepthExceeded
	}

	node := QSet{Threshold: qset.Threshold}

	seenValidators := make(map[int]bool, len(qset.Validators))
	for _, name := range qset.Validators {
		idx, ok := knownValidators[name]
		if !ok {
			f.logger.Warn("validator is unknown", zap.String("validator", name))
			continue
		}
		if !seenValidators[idx] {
			seenValidators[idx] = true
			node.Validators = append(node.Validators, idx)
		}
	}
	sort.Ints(node.Validators)

	seenInner := make(map[int]bool, len(qset.InnerSets))
	for i := range qset.InnerSets {
		qi, err := f.processQuorumSet(&qset.InnerSets[i], depth+1, knownValidators, knownQSets)
		if err != nil {
			return 0, err
		}
		if !seenInner[qi] {
			seenInner[qi] = true
			node.InnerQSets = append(node.InnerQSets, qi)
		}
	}
	sort.Ints(node.InnerQSets)

	key := node.key()
	if idx, ok := knownQSets[key]; ok {
		return idx, nil
	}

	idx := f.addVertex(Vertex{Kind: VertexQSet, QSet: &node})
	knownQSets[key] = idx

	succ := make([]int, 0, len(node.Validators)+len(node.InnerQSets))
	succ = append(succ, node.Validators...)
	succ = append(succ, node.InnerQSets...)
	sort.Ints(succ)
	f.succ[idx] = succ
	return idx, nil
}
