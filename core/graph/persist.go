package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

const snapshotFormatVersion = 1

type snapshotFile struct {
	Version    int           `json:"version"`
	Snapshot   string        `json:"snapshot"`
	Collection string        `json:"collection,omitempty"`
	Nodes      []*model.Node `json:"nodes"`
	Edges      []*model.Edge `json:"edges"`
}

// SnapshotPath returns the file a snapshot is stored in.
func SnapshotPath(dir string, snapshot string) string {
	return filepath.Join(dir, snapshot+".graph.json")
}

// Save writes the graph to <dir>/<snapshot>.graph.json together with the
// name of the vector collection built from the same passages. The file is
// replaced atomically so readers never observe a partial snapshot.
func Save(g *Graph, dir string, snapshot string, collection string) (string, error) {
	if err := validateSnapshotName(snapshot); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", helper.NewError("create snapshot dir", err)
	}

	data, err := json.Marshal(snapshotFile{
		Version:    snapshotFormatVersion,
		Snapshot:   snapshot,
		Collection: collection,
		Nodes:      g.Nodes(),
		Edges:      g.Edges(),
	})
	if err != nil {
		return "", helper.NewError("marshal graph", err)
	}

	path := SnapshotPath(dir, snapshot)
	tmp, err := os.CreateTemp(dir, snapshot+".*.tmp")
	if err != nil {
		return "", helper.NewError("create temp snapshot", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", helper.NewError("write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return "", helper.NewError("close snapshot", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", helper.NewError("replace snapshot", err)
	}
	return path, nil
}

// Load reads a snapshot written by Save and returns the graph with the name
// of its vector collection.
func Load(dir string, snapshot string) (*Graph, string, error) {
	if err := validateSnapshotName(snapshot); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(SnapshotPath(dir, snapshot))
	if err != nil {
		return nil, "", helper.NewError("read snapshot", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", helper.NewError("unmarshal graph", err)
	}
	if file.Version != snapshotFormatVersion {
		return nil, "", helper.NewError("load snapshot", fmt.Errorf("unsupported format version %d", file.Version))
	}

	g := newGraph()
	for _, n := range file.Nodes {
		if n == nil || n.ID == "" {
			return nil, "", helper.NewError("load snapshot", fmt.Errorf("node without id"))
		}
		if g.HasNode(n.ID) {
			return nil, "", helper.NewError("load snapshot", fmt.Errorf("duplicate node %s", n.ID))
		}
		g.nodes[n.ID] = n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	for i, e := range file.Edges {
		if e == nil {
			return nil, "", helper.NewError("load snapshot", fmt.Errorf("empty edge at position %d", i))
		}
		if !g.HasNode(e.Source) {
			return nil, "", &model.UnknownNodeError{ID: e.Source}
		}
		if !g.HasNode(e.Target) {
			return nil, "", &model.UnknownNodeError{ID: e.Target}
		}
		key := e.Key()
		if _, ok := g.edges[key]; ok {
			return nil, "", helper.NewError("load snapshot", fmt.Errorf("duplicate %s edge %s - %s", e.EdgeType, e.Source, e.Target))
		}
		g.edges[key] = e
		g.edgeOrder = append(g.edgeOrder, key)
		g.adjacency[key.A] = append(g.adjacency[key.A], key)
		g.adjacency[key.B] = append(g.adjacency[key.B], key)
	}
	return g, file.Collection, nil
}

func validateSnapshotName(snapshot string) error {
	if snapshot == "" || strings.ContainsAny(snapshot, `/\`) || snapshot == "." || snapshot == ".." {
		return &model.InvalidInputError{Field: "snapshot", Reason: fmt.Sprintf("invalid snapshot name %q", snapshot)}
	}
	return nil
}
