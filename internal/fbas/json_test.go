package fbas

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const regularDoc = `{
	"nodes": [
		{"node": "v0", "qset": {"t": 2, "v": ["v0", "v1", {"t": 1, "v": ["v2"]}]}},
		{"node": "v1", "qset": {"t": 2, "v": ["v0", "v1"]}},
		{"node": "v2", "qset": {"t": 1, "v": ["v2"]}}
	]
}`

const stellarbeatsDoc = `[
	{"publicKey": "v0", "quorumSet": {"threshold": 2, "validators": ["v0", "v1"], "innerQuorumSets": [
		{"threshold": 1, "validators": ["v2"], "innerQuorumSets": []}
	]}},
	{"publicKey": "v1", "quorumSet": {"threshold": 2, "validators": ["v0", "v1"], "innerQuorumSets": []}}
]`

func TestParseRegularJSON(t *testing.T) {
	qsm, err := QuorumSetMapFromJSONBytes([]byte(regularDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(qsm) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(qsm))
	}

	q := qsm["v0"]
	if q.Threshold != 2 {
		t.Errorf("expected threshold 2, got %d", q.Threshold)
	}
	if !reflect.DeepEqual(q.Validators, []string{"v0", "v1"}) {
		t.Errorf("unexpected validators: %v", q.Validators)
	}
	if len(q.InnerSets) != 1 {
		t.Fatalf("expected 1 inner set, got %d", len(q.InnerSets))
	}
	inner := q.InnerSets[0]
	if inner.Threshold != 1 || !reflect.DeepEqual(inner.Validators, []string{"v2"}) {
		t.Errorf("unexpected inner set: %+v", inner)
	}
}

func TestParseStellarbeatsJSON(t *testing.T) {
	qsm, err := QuorumSetMapFromJSONBytes([]byte(stellarbeatsDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(qsm) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(qsm))
	}

	q := qsm["v0"]
	if q.Threshold != 2 {
		t.Errorf("expected threshold 2, got %d", q.Threshold)
	}
	if !reflect.DeepEqual(q.Validators, []string{"v0", "v1"}) {
		t.Errorf("unexpected validators: %v", q.Validators)
	}
	if len(q.InnerSets) != 1 {
		t.Fatalf("expected 1 inner set, got %d", len(q.InnerSets))
	}
	if q.InnerSets[0].Threshold != 1 {
		t.Errorf("expected inner threshold 1, got %d", q.InnerSets[0].Threshold)
	}

	if len(qsm["v1"].InnerSets) != 0 {
		t.Errorf("expected no inner sets for v1, got %d", len(qsm["v1"].InnerSets))
	}
}

func TestParseShapeViolations(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"scalar root", `5`},
		{"empty document", ``},
		{"nodes missing", `{"other": []}`},
		{"node id missing", `{"nodes": [{"qset": {"t": 1, "v": []}}]}`},
		{"threshold missing", `{"nodes": [{"node": "a", "qset": {"v": []}}]}`},
		{"members missing", `{"nodes": [{"node": "a", "qset": {"t": 1}}]}`},
		{"qset missing", `{"nodes": [{"node": "a"}]}`},
		{"member is a number", `{"nodes": [{"node": "a", "qset": {"t": 1, "v": [7]}}]}`},
		{"public key missing", `[{"quorumSet": {"threshold": 1, "validators": [], "innerQuorumSets": []}}]`},
		{"sb validators missing", `[{"publicKey": "a", "quorumSet": {"threshold": 1, "innerQuorumSets": []}}]`},
		{"sb inner sets missing", `[{"publicKey": "a", "quorumSet": {"threshold": 1, "validators": []}}]`},
		{"sb threshold missing", `[{"publicKey": "a", "quorumSet": {"validators": [], "innerQuorumSets": []}}]`},
	}

	for _, tc := range cases {
		_, err := QuorumSetMapFromJSONBytes([]byte(tc.doc))
		if err == nil {
			t.Errorf("%s: expected a parse error", tc.name)
			continue
		}
		var parseErr ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: expected a ParseError, got %T (%v)", tc.name, err, err)
		}
	}
}

// serializeRegular renders a quorum-set map back into the compact dialect
// so parsing can be checked to round-trip.
func serializeRegular(t *testing.T, qsm QuorumSetMap) []byte {
	t.Helper()

	type outNode struct {
		Node string                 `json:"node"`
		QSet map[string]interface{} `json:"qset"`
	}

	var renderQSet func(q *InternalQuorumSet) map[string]interface{}
	renderQSet = func(q *InternalQuorumSet) map[string]interface{} {
		members := make([]interface{}, 0, len(q.Validators)+len(q.InnerSets))
		for _, v := range q.Validators {
			members = append(members, v)
		}
		for i := range q.InnerSets {
			members = append(members, renderQSet(&q.InnerSets[i]))
		}
		return map[string]interface{}{"t": q.Threshold, "v": members}
	}

	nodes := make([]outNode, 0, len(qsm))
	for _, name := range qsm.sortedKeys() {
		nodes = append(nodes, outNode{Node: name, QSet: renderQSet(qsm[name])})
	}
	data, err := json.Marshal(map[string]interface{}{"nodes": nodes})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return data
}

func TestParseRegularRoundTrip(t *testing.T) {
	first, err := QuorumSetMapFromJSONBytes([]byte(regularDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	second, err := QuorumSetMapFromJSONBytes(serializeRegular(t, first))
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed the map:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
