// YAML-based graph definition parsing.
//
// Graph definitions can be written in human-readable YAML and loaded into
// executable Graph structures.
//
// # Structure example
//
//	name: scheduling-agent
//	version: "3"
//	goal: book-a-meeting
//	entry_point: gather
//	pause_nodes: [confirm]
//	terminal_nodes: [done]
//	nodes:
//	  - id: gather
//	    type: model
//	    instructions: Collect the attendee list and constraints.
//	    output_keys: [attendees]
//	    max_retries: 2
//	    timeout: 30s
//	  - id: confirm
//	    type: tool
//	    tool_refs: [calendar]
//	    input_keys: [attendees]
//	    output_keys: [booking]
//	  - id: done
//	    type: terminal-pass
//	edges:
//	  - id: e1
//	    source: gather
//	    target: confirm
//	    condition: on_success
//	  - id: e2
//	    source: confirm
//	    target: done
//	    condition: always
//
// Timeout values use Go duration format ("300ms", "1s", "5m").
package graph

import (
	"fmt"
	"os"
	"time"

	"github.com/aden-hq/hive/internal/types"
	"gopkg.in/yaml.v3"
)

// yamlGraph is the top-level structure of a graph YAML file.
type yamlGraph struct {
	Name          string     `yaml:"name"`
	Version       string     `yaml:"version"`
	Goal          string     `yaml:"goal"`
	EntryPoint    string     `yaml:"entry_point"`
	PauseNodes    []string   `yaml:"pause_nodes"`
	TerminalNodes []string   `yaml:"terminal_nodes"`
	Nodes         []yamlNode `yaml:"nodes"`
	Edges         []yamlEdge `yaml:"edges"`
}

type yamlNode struct {
	ID           string           `yaml:"id"`
	Type         string           `yaml:"type"`
	InputKeys    []string         `yaml:"input_keys"`
	OutputKeys   []string         `yaml:"output_keys"`
	Instructions string           `yaml:"instructions"`
	ToolRefs     []string         `yaml:"tool_refs"`
	MaxRetries   int              `yaml:"max_retries"`
	Timeout      string           `yaml:"timeout"`
	Overwrite    bool             `yaml:"overwrite"`
	Conditional  *ConditionalSpec `yaml:"conditional"`
}

type yamlEdge struct {
	ID            string `yaml:"id"`
	Source        string `yaml:"source"`
	Target        string `yaml:"target"`
	Condition     string `yaml:"condition"`
	PredicateExpr string `yaml:"predicate_expr"`
	Priority      int    `yaml:"priority"`
}

// ParseYAML parses a graph definition from YAML bytes. The returned graph
// has been structurally validated; any violations are returned as an error
// listing every problem found.
func ParseYAML(data []byte) (*Graph, error) {
	g, err := ParseYAMLUnvalidated(data)
	if err != nil {
		return nil, err
	}
	if errs := Validate(g); len(errs) > 0 {
		return nil, fmt.Errorf("graph validation failed with %d error(s): %v", len(errs), errs)
	}
	return g, nil
}

// ParseYAMLUnvalidated parses a graph definition without running structural
// validation, so callers can report the full error list themselves.
func ParseYAMLUnvalidated(data []byte) (*Graph, error) {
	var yg yamlGraph
	if err := yaml.Unmarshal(data, &yg); err != nil {
		return nil, fmt.Errorf("failed to parse graph YAML: %w", err)
	}

	g := &Graph{
		ID:            types.NewID(),
		Name:          yg.Name,
		Version:       yg.Version,
		Goal:          yg.Goal,
		Nodes:         make(map[string]*NodeSpec, len(yg.Nodes)),
		Edges:         make([]EdgeSpec, 0, len(yg.Edges)),
		EntryPoint:    yg.EntryPoint,
		PauseNodes:    yg.PauseNodes,
		TerminalNodes: yg.TerminalNodes,
		CreatedAt:     time.Now(),
	}

	for _, yn := range yg.Nodes {
		node, err := yn.toSpec()
		if err != nil {
			return nil, err
		}
		if _, exists := g.Nodes[node.ID]; exists {
			return nil, fmt.Errorf("duplicate node ID %q", node.ID)
		}
		g.Nodes[node.ID] = node
	}

	for _, ye := range yg.Edges {
		g.Edges = append(g.Edges, EdgeSpec{
			ID:            ye.ID,
			Source:        ye.Source,
			Target:        ye.Target,
			Condition:     EdgeCondition(ye.Condition),
			PredicateExpr: ye.PredicateExpr,
			Priority:      ye.Priority,
		})
	}

	return g, nil
}

// LoadYAMLFile loads and parses a graph definition from a YAML file.
func LoadYAMLFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}
	return ParseYAML(data)
}

// LoadYAMLFileUnvalidated loads a graph definition without structural
// validation.
func LoadYAMLFileUnvalidated(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}
	return ParseYAMLUnvalidated(data)
}

func (yn yamlNode) toSpec() (*NodeSpec, error) {
	if yn.ID == "" {
		return nil, fmt.Errorf("node must have an ID")
	}

	node := &NodeSpec{
		ID:           yn.ID,
		Type:         NodeType(yn.Type),
		InputKeys:    yn.InputKeys,
		OutputKeys:   yn.OutputKeys,
		Instructions: yn.Instructions,
		ToolRefs:     yn.ToolRefs,
		MaxRetries:   yn.MaxRetries,
		Overwrite:    yn.Overwrite,
		Conditional:  yn.Conditional,
	}

	if yn.Timeout != "" {
		d, err := time.ParseDuration(yn.Timeout)
		if err != nil {
			return nil, fmt.Errorf("node %q has invalid timeout %q: %w", yn.ID, yn.Timeout, err)
		}
		node.Timeout = d
	}

	return node, nil
}
