package fbas

import (
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"
)

// QuorumSetMapFromBuf decodes two parallel sequences of xdr buffers, one
// NodeId and one ScpQuorumSet per validator. A validator with an empty
// quorum-set buffer is dropped with a warning: it gets no vertex, and
// declarations referencing it are later dropped as unknown.
func QuorumSetMapFromBuf(nodes, quorumSets [][]byte, logger *zap.Logger) (QuorumSetMap, error) {
	if len(nodes) != len(quorumSets) {
		return nil, ParseError("length in nodes and quorum_sets do not match")
	}

	qsm := make(QuorumSetMap, len(nodes))
	for i, nodeBuf := range nodes {
		var node xdr.NodeId
		if err := xdr.SafeUnmarshal(nodeBuf, &node); err != nil {
			return nil, XdrDecodingError("NodeId cannot be decoded from xdr")
		}
		nodeStr, err := nodeIDString(node)
		if err != nil {
			return nil, err
		}

		if len(quorumSets[i]) == 0 {
			logger.Warn("validator's quorum set is empty", zap.String("validator", nodeStr))
			continue
		}
		var qset xdr.ScpQuorumSet
		if err := xdr.SafeUnmarshal(quorumSets[i], &qset); err != nil {
			return nil, XdrDecodingError("ScpQuorumSet cannot be decoded from xdr")
		}
		internal, err := internalFromXdr(&qset)
		if err != nil {
			return nil, err
		}
		qsm[nodeStr] = internal
	}
	return qsm, nil
}

// nodeIDString renders an ed25519 node id as a strkey account string, the
// same form validator ids take everywhere else in the system.
func nodeIDString(node xdr.NodeId) (string, error) {
	if node.Type != xdr.PublicKeyTypePublicKeyTypeEd25519 || node.Ed25519 == nil {
		return "", XdrDecodingError("NodeId is not an ed25519 public key")
	}
	s, err := strkey.Encode(strkey.VersionByteAccountID, node.Ed25519[:])
	if err != nil {
		return "", XdrDecodingError("NodeId cannot be rendered as a strkey")
	}
	return s, nil
}

func internalFromXdr(qset *xdr.ScpQuorumSet) (*InternalQuorumSet, error) {
	out := &InternalQuorumSet{Threshold: uint32(qset.Threshold)}
	for _, v := range qset.Validators {
		s, err := nodeIDString(v)
		if err != nil {
			return nil, err
		}
		out.Validators = append(out.Validators, s)
	}
	for i := range qset.InnerSets {
		inner, err := internalFromXdr(&qset.InnerSets[i])
		if err != nil {
			return nil, err
		}
		out.InnerSets = append(out.InnerSets, *inner)
	}
	return out, nil
}
