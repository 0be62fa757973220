// Package graphql exposes a read-only GraphQL view of the audio graph and
// the active link rules.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/status"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

// Backend supplies the data the schema resolves against.
type Backend struct {
	Snapshot func() (*topology.Snapshot, error)
	Rules    *rules.Store
	Status   *status.Tracker
}

// GenerateSchema builds the query schema over the backend.
func GenerateSchema(b Backend) (graphql.Schema, error) {
	portType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Port",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.ID, nil
					}
					return nil, nil
				},
			},
			"nodeId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.NodeID, nil
					}
					return nil, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.Name, nil
					}
					return nil, nil
				},
			},
			"fullName": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.FullName, nil
					}
					return nil, nil
				},
			},
			"direction": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.Direction.String(), nil
					}
					return nil, nil
				},
			},
			"channel": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if port, ok := p.Source.(topology.Port); ok {
						return port.Channel, nil
					}
					return nil, nil
				},
			},
		},
	})

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(topology.Node); ok {
						return node.ID, nil
					}
					return nil, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(topology.Node); ok {
						return node.NodeName, nil
					}
					return nil, nil
				},
			},
			"nick": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(topology.Node); ok {
						return node.NodeNick, nil
					}
					return nil, nil
				},
			},
			"objectPath": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(topology.Node); ok {
						return node.ObjectPath, nil
					}
					return nil, nil
				},
			},
			"displayName": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if node, ok := p.Source.(topology.Node); ok {
						return node.DisplayName(), nil
					}
					return nil, nil
				},
			},
			"ports": &graphql.Field{
				Type: graphql.NewList(portType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					node, ok := p.Source.(topology.Node)
					if !ok {
						return nil, nil
					}
					snap, err := b.Snapshot()
					if err != nil {
						return nil, err
					}
					var ports []topology.Port
					for _, port := range snap.Ports {
						if port.NodeID == node.ID {
							ports = append(ports, port)
						}
					}
					return ports, nil
				},
			},
		},
	})

	linkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Link",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if link, ok := p.Source.(topology.Link); ok {
						return link.ID, nil
					}
					return nil, nil
				},
			},
			"outputPort": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if link, ok := p.Source.(topology.Link); ok {
						return link.OutputPortName, nil
					}
					return nil, nil
				},
			},
			"inputPort": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if link, ok := p.Source.(topology.Link); ok {
						return link.InputPortName, nil
					}
					return nil, nil
				},
			},
		},
	})

	ruleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Rule",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return rule.rule.Name, nil
					}
					return nil, nil
				},
			},
			"type": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return string(rule.rule.LinkType), nil
					}
					return nil, nil
				},
			},
			"linkAtStartup": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return rule.rule.LinkAtStartup, nil
					}
					return nil, nil
				},
			},
			"relinkEvery": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return int(rule.rule.RelinkEvery), nil
					}
					return nil, nil
				},
			},
			"totalRuns": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return int(rule.status.TotalRuns), nil
					}
					return nil, nil
				},
			},
			"linksCreated": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return rule.status.LinksCreated, nil
					}
					return nil, nil
				},
			},
			"linksFailed": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return rule.status.LinksFailed, nil
					}
					return nil, nil
				},
			},
			"lastError": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if rule, ok := p.Source.(ruleWithStatus); ok {
						return rule.status.LastError, nil
					}
					return nil, nil
				},
			},
		},
	})

	queryFields := graphql.Fields{
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return "ok", nil
			},
		},
		"nodes": &graphql.Field{
			Type: graphql.NewList(nodeType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				snap, err := b.Snapshot()
				if err != nil {
					return nil, err
				}
				return snap.Nodes, nil
			},
		},
		"node": &graphql.Field{
			Type: nodeType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				snap, err := b.Snapshot()
				if err != nil {
					return nil, err
				}
				id, err := parseID(p.Args["id"])
				if err != nil {
					return nil, err
				}
				for _, node := range snap.Nodes {
					if node.ID == id {
						return node, nil
					}
				}
				return nil, nil
			},
		},
		"links": &graphql.Field{
			Type: graphql.NewList(linkType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				snap, err := b.Snapshot()
				if err != nil {
					return nil, err
				}
				return snap.Links, nil
			},
		},
		"rules": &graphql.Field{
			Type: graphql.NewList(ruleType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				list := b.Rules.Rules()
				statuses := b.Status.All()
				out := make([]ruleWithStatus, len(list))
				for i, rule := range list {
					out[i] = ruleWithStatus{rule: rule, status: statuses[i]}
				}
				return out, nil
			},
		},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields,
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}

	return schema, nil
}

// ruleWithStatus pairs a rule with its reconciliation status for resolvers.
type ruleWithStatus struct {
	rule   rules.LinkRule
	status status.RuleStatus
}

func parseID(arg any) (uint32, error) {
	switch v := arg.(type) {
	case string:
		var id uint32
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, fmt.Errorf("invalid id %q", v)
		}
		return id, nil
	case int:
		return uint32(v), nil
	default:
		return 0, fmt.Errorf("invalid id type %T", arg)
	}
}
