package fbas

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
)

// Two json dialects are accepted, told apart by the shape of the root: an
// object with a "nodes" array (compact dialect, qsets as {"t":..,"v":[..]})
// or a top-level array of node objects (stellarbeats dialect, qsets as
// {"threshold":..,"validators":[..],"innerQuorumSets":[..]}).

// QuorumSetMapFromJSON reads and parses a quorum-set declaration file.
func QuorumSetMapFromJSON(path string) (QuorumSetMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ParseError("fail to read file")
	}
	return QuorumSetMapFromJSONBytes(data)
}

// QuorumSetMapFromJSONBytes parses a quorum-set declaration document.
func QuorumSetMapFromJSONBytes(data []byte) (QuorumSetMap, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, ParseError("fail to parse to json")
	}
	switch trimmed[0] {
	case '{':
		return quorumSetMapFromRegularJSON(trimmed)
	case '[':
		return quorumSetMapFromStellarbeatsJSON(trimmed)
	default:
		return nil, ParseError("root is neither an object nor an array")
	}
}

// wrapJSONError keeps ParseErrors raised by the member decoders and folds
// everything else (malformed document, wrong field types) into one.
func wrapJSONError(err error) error {
	var pe ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return ParseError("fail to parse to json")
}

// regular (compact) dialect

type regularRoot struct {
	Nodes *[]regularNode `json:"nodes"`
}

type regularNode struct {
	Node *string      `json:"node"`
	QSet *regularQSet `json:"qset"`
}

type regularQSet struct {
	T *uint32         `json:"t"`
	V []regularMember `json:"v"`
}

// regularMember is either a validator id string or a nested qset object.
type regularMember struct {
	validator string
	inner     *regularQSet
}

func (m *regularMember) UnmarshalJSON(data []byte) error {
	d := bytes.TrimLeft(data, " \t\r\n")
	if len(d) == 0 {
		return ParseError("validator entry must be either a string (PublicKey) or an object (QuorumSet)")
	}
	switch d[0] {
	case '"':
		return json.Unmarshal(data, &m.validator)
	case '{':
		var q regularQSet
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		m.inner = &q
		return nil
	default:
		return ParseError("validator entry must be either a string (PublicKey) or an object (QuorumSet)")
	}
}

func quorumSetMapFromRegularJSON(data []byte) (QuorumSetMap, error) {
	var root regularRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, wrapJSONError(err)
	}
	if root.Nodes == nil {
		return nil, ParseError("nodes field missing or not an array")
	}

	qsm := make(QuorumSetMap, len(*root.Nodes))
	for i := range *root.Nodes {
		node := &(*root.Nodes)[i]
		if node.Node == nil {
			return nil, ParseError("node field missing or not a string")
		}
		qset, err := node.QSet.toInternal()
		if err != nil {
			return nil, err
		}
		qsm[*node.Node] = qset
	}
	return qsm, nil
}

func (q *regularQSet) toInternal() (*InternalQuorumSet, error) {
	if q == nil || q.T == nil {
		return nil, ParseError("threshold field missing or not a number")
	}
	if q.V == nil {
		return nil, ParseError("v field missing or not an array")
	}
	out := &InternalQuorumSet{Threshold: *q.T}
	for i := range q.V {
		m := &q.V[i]
		if m.inner != nil {
			inner, err := m.inner.toInternal()
			if err != nil {
				return nil, err
			}
			out.InnerSets = append(out.InnerSets, *inner)
		} else {
			out.Validators = append(out.Validators, m.validator)
		}
	}
	return out, nil
}

// stellarbeats dialect

type stellarbeatsNode struct {
	PublicKey *string           `json:"publicKey"`
	QuorumSet *stellarbeatsQSet `json:"quorumSet"`
}

type stellarbeatsQSet struct {
	Threshold       *uint32             `json:"threshold"`
	Validators      *[]string           `json:"validators"`
	InnerQuorumSets *[]stellarbeatsQSet `json:"innerQuorumSets"`
}

func quorumSetMapFromStellarbeatsJSON(data []byte) (QuorumSetMap, error) {
	var nodes []stellarbeatsNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, wrapJSONError(err)
	}

	qsm := make(QuorumSetMap, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		if node.PublicKey == nil {
			return nil, ParseError("publicKey field missing or not a string")
		}
		qset, err := node.QuorumSet.toInternal()
		if err != nil {
			return nil, err
		}
		qsm[*node.PublicKey] = qset
	}
	return qsm, nil
}

func (q *stellarbeatsQSet) toInternal() (*InternalQuorumSet, error) {
	if q == nil || q.Threshold == nil {
		return nil, ParseError("threshold field missing or not a number")
	}
	if q.Validators == nil {
		return nil, ParseError("validators field missing or not an array")
	}
	if q.InnerQuorumSets == nil {
		return nil, ParseError("innerQuorumSets field missing or not an array")
	}
	out := &InternalQuorumSet{Threshold: *q.Threshold}
	out.Validators = append(out.Validators, *q.Validators...)
	for i := range *q.InnerQuorumSets {
		inner, err := (*q.InnerQuorumSets)[i].toInternal()
		if err != nil {
			return nil, err
		}
		out.InnerSets = append(out.InnerSets, *inner)
	}
	return out, nil
}
