package encode

import (
	"math"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/rachitkumar205/fbas-analyzer/internal/fbas"
	"github.com/rachitkumar205/fbas-analyzer/internal/limits"
	"go.uber.org/zap"
)

// The split search is encoded over two imaginary quorums A and B. Each
// vertex v (validator or qset node) gets two membership variables, "v is
// in A" and "v is in B". Three constraint families make a satisfying
// assignment a genuine split:
//
//  1. both quorums contain at least one validator,
//  2. no validator is in both quorums,
//  3. every vertex in a quorum has a slice there: threshold(v) of its
//     successors are in the same quorum.
//
// Family 3 is expanded into CNF with a Tseitin transformation: one fresh
// auxiliary per size-threshold successor combination per quorum, with
// definitional clauses in both directions. A SAT verdict therefore
// witnesses two disjoint non-empty quorums and disproves quorum
// intersection; UNSAT proves every pair of quorums intersects.

// VarMap fixes the propositional variable layout: vertex i owns variables
// 2i+1 (membership in quorum A) and 2i+2 (membership in quorum B),
// allocated in vertex-index order. Tseitin auxiliaries live past 2n and
// are not retained after solving.
type VarMap struct {
	numVertices int
}

// LitA returns the literal asserting (or denying) membership of vertex i
// in quorum A.
func (m *VarMap) LitA(i int, member bool) z.Lit {
	l := z.Var(2*i + 1).Pos()
	if !member {
		l = l.Not()
	}
	return l
}

// LitB returns the literal asserting (or denying) membership of vertex i
// in quorum B.
func (m *VarMap) LitB(i int, member bool) z.Lit {
	l := z.Var(2*i + 2).Pos()
	if !member {
		l = l.Not()
	}
	return l
}

// NumMembershipVars returns the number of membership variables, 2 per vertex.
func (m *VarMap) NumMembershipVars() int { return 2 * m.numVertices }

// Stats reports the size of the emitted formula.
type Stats struct {
	Clauses uint64
	AuxVars uint64
}

// Encoder emits the split formula into a gini solver, enforcing the
// resource budget before every clause.
type Encoder struct {
	g       *gini.Gini
	f       *fbas.Fbas
	lim     *limits.Limiter
	logger  *zap.Logger
	vars    *VarMap
	nextVar z.Var
	stats   Stats
}

func NewEncoder(g *gini.Gini, f *fbas.Fbas, lim *limits.Limiter, logger *zap.Logger) *Encoder {
	n := f.NumVertices()
	return &Encoder{
		g:       g,
		f:       f,
		lim:     lim,
		logger:  logger,
		vars:    &VarMap{numVertices: n},
		nextVar: z.Var(2*n + 1),
	}
}

func (e *Encoder) Vars() *VarMap { return e.vars }

func (e *Encoder) Stats() Stats { return e.stats }

// NumVars returns the total variable count: membership plus auxiliaries.
func (e *Encoder) NumVars() uint64 {
	return uint64(e.vars.NumMembershipVars()) + e.stats.AuxVars
}

// Encode emits the full formula: non-emptiness, disjointness and
// threshold closure for both quorums.
func (e *Encoder) Encode() error {
	f := e.f

	// formula 1: both quorums are non-empty -- at least one *validator*
	// must be in each; qset vertices are internal bookkeeping
	lits := make([]z.Lit, 0, len(f.Validators()))
	for _, vi := range f.Validators() {
		lits = append(lits, e.vars.LitA(vi, true))
	}
	if err := e.addClause(lits...); err != nil {
		return err
	}
	lits = lits[:0]
	for _, vi := range f.Validators() {
		lits = append(lits, e.vars.LitB(vi, true))
	}
	if err := e.addClause(lits...); err != nil {
		return err
	}

	// formula 2: the quorums are disjoint -- no validator in both
	for _, vi := range f.Validators() {
		if err := e.addClause(e.vars.LitA(vi, false), e.vars.LitB(vi, false)); err != nil {
			return err
		}
	}

	// formula 3: threshold closure of every vertex, once per quorum
	if err := e.encodeClosure(e.vars.LitA); err != nil {
		return err
	}
	if err := e.encodeClosure(e.vars.LitB); err != nil {
		return err
	}

	if got, want := uint64(e.nextVar)-1, e.NumVars(); got != want {
		return fbas.InternalError("solver variable count does not match encoded formula")
	}

	e.logger.Debug("formula encoded",
		zap.Uint64("clauses", e.stats.Clauses),
		zap.Uint64("aux_vars", e.stats.AuxVars),
		zap.Uint64("num_vars", e.NumVars()))
	return nil
}

// encodeClosure emits, for each vertex v with threshold t and successor
// set S, the clauses tying v's membership to the existence of a size-t
// certifying slice among S. Combinations are enumerated lexicographically
// over the sorted successor indices so witnesses are reproducible.
// Degenerate thresholds are taken literally: t == 0 closes vacuously,
// t > |S| forces v out of every quorum.
func (e *Encoder) encodeClosure(lit func(int, bool) z.Lit) error {
	f := e.f
	for vi := 0; vi < f.NumVertices(); vi++ {
		t := int(f.Vertex(vi).Threshold())
		succs := f.Successors(vi)

		// "if v is in the quorum, some slice certifies it"
		closure := []z.Lit{lit(vi, false)}

		comb := newCombIter(len(succs), t)
		for pick, ok := comb.next(); ok; pick, ok = comb.next() {
			alpha := e.freshLit()
			closure = append(closure, alpha)

			// alpha <=> all of the slice is in the quorum
			reverse := make([]z.Lit, 0, len(pick)+1)
			reverse = append(reverse, alpha)
			for _, k := range pick {
				if err := e.addClause(alpha.Not(), lit(succs[k], true)); err != nil {
					return err
				}
				reverse = append(reverse, lit(succs[k], false))
			}
			if err := e.addClause(reverse...); err != nil {
				return err
			}
		}

		if err := e.addClause(closure...); err != nil {
			return err
		}
	}
	return nil
}

// freshLit allocates a Tseitin auxiliary. Their indices are not recorded:
// they only exist to keep the expansion polynomial.
func (e *Encoder) freshLit() z.Lit {
	l := e.nextVar.Pos()
	e.nextVar++
	e.stats.AuxVars++
	return l
}

// addClause enforces the resource budget before every clause so a
// pathological expansion trips the limiter inside the combination
// enumeration, not only between vertices.
func (e *Encoder) addClause(lits ...z.Lit) error {
	if err := e.lim.Enforce(); err != nil {
		return err
	}
	for _, l := range lits {
		e.g.Add(l)
	}
	e.g.Add(z.LitNull)
	e.stats.Clauses++
	return nil
}

// EstimateAuxVars returns the number of Tseitin auxiliaries a full
// encoding of f will allocate across both quorums, saturating on
// overflow. Callers can reject hopeless instances before encoding starts.
func EstimateAuxVars(f *fbas.Fbas) uint64 {
	var total uint64
	for vi := 0; vi < f.NumVertices(); vi++ {
		c := combinationCount(len(f.Successors(vi)), int(f.Vertex(vi).Threshold()))
		total += c
		if total < c {
			return math.MaxUint64
		}
	}
	if total > math.MaxUint64/2 {
		return math.MaxUint64
	}
	return 2 * total
}
