package rules

import (
	"regexp"

	"github.com/audiolink/audiolinkd/pkg/topology"
)

// Matches reports whether the node satisfies this identifier. Each provided
// pattern is checked against the corresponding property when the node carries
// it; the first hit wins. A pattern that failed to compile never matches,
// mirroring load-time validation being the place where bad patterns surface.
func (id *NodeIdentifier) Matches(node topology.Node) bool {
	if id.NodeName != nil && node.NodeName != "" {
		if matchPattern(id.nodeNameRe, *id.NodeName, node.NodeName) {
			return true
		}
	}
	if id.NodeNick != nil && node.NodeNick != "" {
		if matchPattern(id.nodeNickRe, *id.NodeNick, node.NodeNick) {
			return true
		}
	}
	if id.ObjectPath != nil && node.ObjectPath != "" {
		if matchPattern(id.objectPathRe, *id.ObjectPath, node.ObjectPath) {
			return true
		}
	}
	return false
}

// matchPattern prefers the precompiled regex and falls back to an ad-hoc
// compile for identifiers that never went through Compile.
func matchPattern(re *regexp.Regexp, pattern, text string) bool {
	if re != nil {
		return re.MatchString(text)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return compiled.MatchString(text)
}

// MatchingNodes returns the nodes in the snapshot matching the identifier.
func MatchingNodes(snap *topology.Snapshot, id *NodeIdentifier) []topology.Node {
	var matched []topology.Node
	for _, n := range snap.Nodes {
		if id.Matches(n) {
			matched = append(matched, n)
		}
	}
	return matched
}
