// Package pwcli implements the topology provider by shelling out to the
// pw-cli and pw-link command line tools and parsing their output. Using the
// tools instead of a native binding keeps the daemon free of cgo and survives
// server restarts without connection bookkeeping.
package pwcli

import (
	"regexp"
)

// Object is a raw object as printed by `pw-cli ls`.
type Object struct {
	ID         uint32            `json:"id"`
	ObjectType string            `json:"object_type"`
	Properties map[string]string `json:"properties"`
}

// Get returns a property value, or "" when absent.
func (o *Object) Get(key string) string {
	return o.Properties[key]
}

// Has reports whether a property is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Properties[key]
	return ok
}

// Object type names as printed by pw-cli.
const (
	TypeNode   = "Node"
	TypeDevice = "Device"
	TypePort   = "Port"
	TypeLink   = "Link"
	TypeClient = "Client"
	TypeModule = "Module"
)

var (
	// "        id 38, type PipeWire:Interface:Node/3"
	objectHeaderRe = regexp.MustCompile(`^\s*id\s+(\d+),\s+type\s+PipeWire:Interface:(\w+)/\d+`)
	// `                node.name = "effect_input.proc"` (quotes optional)
	objectPropRe = regexp.MustCompile(`^\s+(\S+)\s+=\s+"?([^"]*)"?\s*$`)
)

// parseObjects parses `pw-cli ls` output into objects. Lines that match
// neither the header nor the property shape are ignored.
func parseObjects(output string) []Object {
	var objects []Object
	var current *Object

	for _, line := range splitLines(output) {
		if m := objectHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				objects = append(objects, *current)
			}
			current = &Object{
				ID:         parseUint32(m[1]),
				ObjectType: m[2],
				Properties: make(map[string]string),
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := objectPropRe.FindStringSubmatch(line); m != nil {
			current.Properties[m[1]] = m[2]
		}
	}
	if current != nil {
		objects = append(objects, *current)
	}
	return objects
}
