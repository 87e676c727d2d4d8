// Package gexf reads and writes the object-centric dependency graph in
// the GEXF 1.2 graph interchange format. Node types and attribute maps
// and edge relation/weight/evidence survive a write-then-read round trip
// exactly; attribute values and the evidence list are stored as their
// JSON encodings so arbitrary values and identifiers survive unchanged.
package gexf

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocdg"
)

// Reserved node attribute columns. Object attribute columns are declared
// after them, one per attribute key present in the graph.
const (
	attrObjectType = "objtype"
	attrRelation   = "relation"
	attrEvidence   = "evidence"
)

type xmlGEXF struct {
	XMLName xml.Name `xml:"gexf"`
	XMLNS   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`
	Graph   xmlGraph `xml:"graph"`
}

type xmlGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	AttrDecls       []xmlAttrDecls `xml:"attributes"`
	Nodes           []xmlNode      `xml:"nodes>node"`
	Edges           []xmlEdge      `xml:"edges>edge"`
}

type xmlAttrDecls struct {
	Class string        `xml:"class,attr"`
	Attrs []xmlAttrDecl `xml:"attribute"`
}

type xmlAttrDecl struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type xmlNode struct {
	ID         string         `xml:"id,attr"`
	Label      string         `xml:"label,attr"`
	AttrValues []xmlAttrValue `xml:"attvalues>attvalue"`
}

type xmlEdge struct {
	ID         string         `xml:"id,attr"`
	Source     string         `xml:"source,attr"`
	Target     string         `xml:"target,attr"`
	Weight     float64        `xml:"weight,attr"`
	AttrValues []xmlAttrValue `xml:"attvalues>attvalue"`
}

type xmlAttrValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

// Write serializes the graph to w.
func Write(g *ocdg.Graph, w io.Writer) error {
	nodeAttrKeys := collectAttributeKeys(g)

	doc := xmlGEXF{
		XMLNS:   "http://www.gexf.net/1.2draft",
		Version: "1.2",
		Graph: xmlGraph{
			DefaultEdgeType: "directed",
			Mode:            "static",
			AttrDecls: []xmlAttrDecls{
				nodeAttrDecls(nodeAttrKeys),
				{
					Class: "edge",
					Attrs: []xmlAttrDecl{
						{ID: attrRelation, Title: attrRelation, Type: "string"},
						{ID: attrEvidence, Title: attrEvidence, Type: "string"},
					},
				},
			},
		},
	}

	for _, node := range g.Nodes() {
		xn := xmlNode{
			ID:    node.ID,
			Label: node.ID,
			AttrValues: []xmlAttrValue{
				{For: attrObjectType, Value: node.Type},
			},
		}
		for _, key := range nodeAttrKeys {
			value, ok := node.Attributes[key]
			if !ok {
				continue
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encoding attribute %s of node %s: %w", key, node.ID, err)
			}
			xn.AttrValues = append(xn.AttrValues, xmlAttrValue{
				For:   attributeColumn(key),
				Value: string(encoded),
			})
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, xn)
	}

	for i, edge := range g.Edges() {
		// Evidence is JSON-encoded like node attributes, so event IDs
		// containing any delimiter survive the round trip.
		evidence, err := json.Marshal(edge.Evidence())
		if err != nil {
			return fmt.Errorf("encoding evidence of edge %s -> %s: %w", edge.Source, edge.Target, err)
		}
		doc.Graph.Edges = append(doc.Graph.Edges, xmlEdge{
			ID:     fmt.Sprintf("e%d", i),
			Source: edge.Source,
			Target: edge.Target,
			Weight: float64(edge.Weight),
			AttrValues: []xmlAttrValue{
				{For: attrRelation, Value: edge.Relation.String()},
				{For: attrEvidence, Value: string(evidence)},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding GEXF: %w", err)
	}
	return enc.Close()
}

// WriteFile serializes the graph to a file.
func WriteFile(g *ocdg.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := Write(g, f); err != nil {
		return err
	}
	return f.Close()
}

// Read deserializes a graph from r.
func Read(r io.Reader) (*ocdg.Graph, error) {
	var doc xmlGEXF
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding GEXF: %w", err)
	}

	g := ocdg.New()

	for _, xn := range doc.Graph.Nodes {
		node := &ocdg.Node{ID: xn.ID, Attributes: make(map[string]interface{})}
		for _, av := range xn.AttrValues {
			if av.For == attrObjectType {
				node.Type = av.Value
				continue
			}
			key, ok := attributeKey(av.For)
			if !ok {
				continue
			}
			var value interface{}
			if err := json.Unmarshal([]byte(av.Value), &value); err != nil {
				return nil, fmt.Errorf("decoding attribute %s of node %s: %w", key, xn.ID, err)
			}
			node.Attributes[key] = value
		}
		g.AddNode(node)
	}

	for _, xe := range doc.Graph.Edges {
		var relationName string
		var evidence []string
		for _, av := range xe.AttrValues {
			switch av.For {
			case attrRelation:
				relationName = av.Value
			case attrEvidence:
				if av.Value == "" {
					continue
				}
				if err := json.Unmarshal([]byte(av.Value), &evidence); err != nil {
					return nil, fmt.Errorf("decoding evidence of edge %s -> %s: %w", xe.Source, xe.Target, err)
				}
			}
		}
		relation, err := ocdg.ParseRelation(relationName)
		if err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", xe.Source, xe.Target, err)
		}
		edge := ocdg.NewEdge(xe.Source, xe.Target, relation, int(xe.Weight), evidence...)
		if err := g.SetEdge(edge); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// ReadFile deserializes a graph from a file.
func ReadFile(path string) (*ocdg.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

func collectAttributeKeys(g *ocdg.Graph) []string {
	seen := make(map[string]bool)
	for _, node := range g.Nodes() {
		for key := range node.Attributes {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func nodeAttrDecls(keys []string) xmlAttrDecls {
	decls := xmlAttrDecls{
		Class: "node",
		Attrs: []xmlAttrDecl{{ID: attrObjectType, Title: attrObjectType, Type: "string"}},
	}
	for _, key := range keys {
		decls.Attrs = append(decls.Attrs, xmlAttrDecl{
			ID:    attributeColumn(key),
			Title: key,
			Type:  "string",
		})
	}
	return decls
}

// attributeColumn namespaces object attribute columns away from the
// reserved ones.
func attributeColumn(key string) string {
	return "attr:" + key
}

func attributeKey(column string) (string, bool) {
	if strings.HasPrefix(column, "attr:") {
		return strings.TrimPrefix(column, "attr:"), true
	}
	return "", false
}
