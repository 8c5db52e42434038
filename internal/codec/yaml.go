// Package codec converts the commands file between its YAML text and
// domain.Document, preserving category and entry order.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

// ErrMalformed indicates text that does not have the commands file shape.
var ErrMalformed = errors.New("malformed commands file")

// DefaultIndent matches the indentation of the hand-maintained file.
const DefaultIndent = 2

// YAML reads and writes commands.yaml:
//
//	Tools:
//	  - display_name: Alpha
//	    aliases:
//	      - a
//	    link: https://x.test/a
//
// A plain map would lose category order, so parsing walks yaml.Node trees.
type YAML struct {
	Indent int
}

// NewYAML creates a codec with the default indentation.
func NewYAML() *YAML {
	return &YAML{Indent: DefaultIndent}
}

// entryYAML is the on-disk shape of one entry.
type entryYAML struct {
	DisplayName string   `yaml:"display_name"`
	Aliases     []string `yaml:"aliases"`
	Link        string   `yaml:"link"`
}

// Parse builds a Document from YAML text. Empty text yields an empty document.
func (c *YAML) Parse(text string) (*domain.Document, error) {
	doc := domain.NewDocument()
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("failed to parse commands yaml: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return doc, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of categories (line %d)", ErrMalformed, top.Line)
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		entries, err := parseEntries(key.Value, value)
		if err != nil {
			return nil, err
		}
		if err := doc.AppendCategory(key.Value, entries...); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, key.Line, err)
		}
	}
	return doc, nil
}

func parseEntries(category string, node *yaml.Node) ([]domain.Entry, error) {
	switch {
	case node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		return nil, nil
	case node.Kind != yaml.SequenceNode:
		return nil, fmt.Errorf("%w: category %q must hold a list (line %d)", ErrMalformed, category, node.Line)
	}

	entries := make([]domain.Entry, 0, len(node.Content))
	for _, item := range node.Content {
		var raw entryYAML
		if err := item.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: category %q line %d: %v", ErrMalformed, category, item.Line, err)
		}
		aliases := raw.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		entries = append(entries, domain.Entry{
			DisplayName: raw.DisplayName,
			Aliases:     aliases,
			Link:        raw.Link,
		})
	}
	return entries, nil
}

// Serialize renders doc as YAML. Empty categories are written as "[]".
func (c *YAML) Serialize(doc *domain.Document) (string, error) {
	top := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range doc.Categories() {
		entries, _ := doc.Category(name)
		list := &yaml.Node{Kind: yaml.SequenceNode}
		if len(entries) == 0 {
			list.Style = yaml.FlowStyle
		}
		for _, e := range entries {
			list.Content = append(list.Content, entryNode(e))
		}
		top.Content = append(top.Content, stringNode(name), list)
	}

	if len(top.Content) == 0 {
		return "{}\n", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent())
	if err := enc.Encode(top); err != nil {
		return "", fmt.Errorf("failed to encode commands yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode commands yaml: %w", err)
	}
	return buf.String(), nil
}

func (c *YAML) indent() int {
	if c == nil || c.Indent <= 0 {
		return DefaultIndent
	}
	return c.Indent
}

func entryNode(e domain.Entry) *yaml.Node {
	aliases := &yaml.Node{Kind: yaml.SequenceNode}
	if len(e.Aliases) == 0 {
		aliases.Style = yaml.FlowStyle
	}
	for _, a := range e.Aliases {
		aliases.Content = append(aliases.Content, stringNode(a))
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			stringNode("display_name"), stringNode(e.DisplayName),
			stringNode("aliases"), aliases,
			stringNode("link"), stringNode(e.Link),
		},
	}
}

// stringNode forces a string tag so values like "yes" or "2" round trip as text.
func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
