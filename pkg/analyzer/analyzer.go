package analyzer

import (
	"time"

	"github.com/go-air/gini"
	"github.com/rachitkumar205/fbas-analyzer/internal/encode"
	"github.com/rachitkumar205/fbas-analyzer/internal/fbas"
	"github.com/rachitkumar205/fbas-analyzer/internal/limits"
	"go.uber.org/zap"
)

// Status is the verdict of the quorum-split search.
type Status int

const (
	// StatusUnknown means the search has not run to completion.
	StatusUnknown Status = iota
	// StatusSAT means a pair of disjoint quorums exists; quorum
	// intersection does not hold.
	StatusSAT
	// StatusUNSAT means every pair of quorums intersects.
	StatusUNSAT
)

func (s Status) String() string {
	switch s {
	case StatusSAT:
		return "SAT"
	case StatusUNSAT:
		return "UNSAT"
	default:
		return "UNKNOWN"
	}
}

// solve poll slice; bounds how long a limit overrun can go unnoticed
// while the solver is searching
const pollInterval = 10 * time.Millisecond

// FormulaStats describes the encoded formula.
type FormulaStats struct {
	Clauses uint64
	AuxVars uint64
	NumVars uint64
}

// Analyzer decides whether an fbas enjoys the quorum intersection
// property by reducing the existence of two disjoint quorums to SAT.
// Construction ingests the input, builds the graph and encodes the
// formula eagerly; Solve runs the search under the resource budget.
type Analyzer struct {
	fbas    *fbas.Fbas
	solver  *gini.Gini
	vars    *encode.VarMap
	lim     *limits.Limiter
	logger  *zap.Logger
	stats   FormulaStats
	status  Status
	quorumA []int
	quorumB []int
}

// FromQuorumSetMapBuf builds an analyzer from two parallel sequences of
// xdr buffers: NodeId and ScpQuorumSet, one pair per validator.
func FromQuorumSetMapBuf(nodes, quorumSets [][]byte, lim *limits.Limiter, logger *zap.Logger) (*Analyzer, error) {
	logger = logger.Named("SCP")
	qsm, err := fbas.QuorumSetMapFromBuf(nodes, quorumSets, logger)
	if err != nil {
		return nil, err
	}
	return fromQuorumSetMap(qsm, lim, logger)
}

// FromJSONPath builds an analyzer from a quorum-set declaration file in
// either supported json dialect.
func FromJSONPath(path string, lim *limits.Limiter, logger *zap.Logger) (*Analyzer, error) {
	qsm, err := fbas.QuorumSetMapFromJSON(path)
	if err != nil {
		return nil, err
	}
	return fromQuorumSetMap(qsm, lim, logger.Named("SCP"))
}

// FromQuorumSetMap builds an analyzer straight from an in-memory map;
// handy for generated networks.
func FromQuorumSetMap(qsm fbas.QuorumSetMap, lim *limits.Limiter, logger *zap.Logger) (*Analyzer, error) {
	return fromQuorumSetMap(qsm, lim, logger.Named("SCP"))
}

func fromQuorumSetMap(qsm fbas.QuorumSetMap, lim *limits.Limiter, logger *zap.Logger) (*Analyzer, error) {
	f, err := fbas.BuildFbas(qsm, lim, logger)
	if err != nil {
		return nil, err
	}

	g := gini.New()
	enc := encode.NewEncoder(g, f, lim, logger)
	if err := enc.Encode(); err != nil {
		return nil, err
	}

	return &Analyzer{
		fbas:   f,
		solver: g,
		vars:   enc.Vars(),
		lim:    lim,
		logger: logger,
		stats: FormulaStats{
			Clauses: enc.Stats().Clauses,
			AuxVars: enc.Stats().AuxVars,
			NumVars: enc.NumVars(),
		},
	}, nil
}

// Solve runs the SAT search under the resource budget. The solver runs in
// the background while this goroutine polls the limiter in short slices
// and stops the search on exhaustion. An exhausted budget always surfaces
// as a *limits.LimitError, never as a silent UNKNOWN.
func (a *Analyzer) Solve() (Status, error) {
	handle := a.solver.GoSolve()
	var res int
	for {
		res = handle.Try(pollInterval)
		if res != 0 {
			break
		}
		if a.lim.ShouldStop() {
			res = handle.Stop()
			break
		}
	}

	switch res {
	case 1:
		for _, vi := range a.fbas.Validators() {
			if a.solver.Value(a.vars.LitA(vi, true)) {
				a.quorumA = append(a.quorumA, vi)
			}
			if a.solver.Value(a.vars.LitB(vi, true)) {
				a.quorumB = append(a.quorumB, vi)
			}
		}
		a.status = StatusSAT
		a.logger.Warn("found quorum split",
			zap.Ints("quorum_a", a.quorumA),
			zap.Ints("quorum_b", a.quorumB))
	case -1:
		a.status = StatusUNSAT
	default:
		// interrupted before a verdict; almost always the budget
	}

	if err := a.lim.Enforce(); err != nil {
		return a.status, err
	}
	return a.status, nil
}

// Status returns the current verdict without solving.
func (a *Analyzer) Status() Status { return a.status }

// PotentialSplit returns the two disjoint quorums as validator id
// strings, in vertex-index order, for a SAT verdict; two empty slices
// otherwise. The model yields one valid split with no guarantee which of
// the many permutations.
func (a *Analyzer) PotentialSplit() ([]string, []string, error) {
	if a.status != StatusSAT {
		return []string{}, []string{}, nil
	}
	qa, err := a.validatorNames(a.quorumA)
	if err != nil {
		return nil, nil, err
	}
	qb, err := a.validatorNames(a.quorumB)
	if err != nil {
		return nil, nil, err
	}
	return qa, qb, nil
}

func (a *Analyzer) validatorNames(indices []int) ([]string, error) {
	names := make([]string, 0, len(indices))
	for _, vi := range indices {
		name, err := a.fbas.ValidatorName(vi)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// FormulaStats returns the encoded formula size.
func (a *Analyzer) FormulaStats() FormulaStats { return a.stats }

// NumVertices returns the graph vertex count, validators included.
func (a *Analyzer) NumVertices() int { return a.fbas.NumVertices() }

// NumValidators returns the validator count.
func (a *Analyzer) NumValidators() int { return len(a.fbas.Validators()) }
