package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-mastery/internal/app"
	"github.com/yungbote/neurobridge-mastery/internal/learning/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and maintain prerequisite graphs",
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an authored prerequisite file for strict cycles and bad edges",
	Long: `Validate a YAML prerequisite file before importing it.

The file lists edges:

  edges:
    - skill: algebra-2
      prerequisite: algebra-1
      weight: 1
      strict: true

Strict cycles, self-references and weights outside (0,1] are reported.
On success the recommended learning order is printed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		edges, err := parseGraphFile(f)
		if err != nil {
			return err
		}
		order, err := validateEdges(edges)
		if err != nil {
			return err
		}
		cmd.Printf("%d edges ok\n", len(edges))
		cmd.Printf("learning order: %s\n", strings.Join(order.Order, " -> "))
		return nil
	},
}

var graphSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror a subject's prerequisite edges to the graph store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenant, err := uuidFlag(cmd, "tenant")
		if err != nil {
			return err
		}
		subject, err := uuidFlag(cmd, "subject")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), app.Options{}, func(ctx context.Context, a *app.App) error {
			if err := a.Services.Prerequisites.ValidateGraph(ctx, tenant, subject); err != nil {
				return err
			}
			n, err := a.Services.Prerequisites.SyncGraph(ctx, tenant, subject)
			if err != nil {
				return err
			}
			cmd.Printf("mirrored %d edges\n", n)
			return nil
		})
	},
}

func init() {
	graphValidateCmd.Flags().StringP("file", "f", "", "prerequisite YAML file")
	_ = graphValidateCmd.MarkFlagRequired("file")
	graphSyncCmd.Flags().String("tenant", "", "tenant id")
	graphSyncCmd.Flags().String("subject", "", "subject id")
	_ = graphSyncCmd.MarkFlagRequired("tenant")
	_ = graphSyncCmd.MarkFlagRequired("subject")
	graphCmd.AddCommand(graphValidateCmd, graphSyncCmd)
}

type graphFile struct {
	Edges []skillgraph.Edge `yaml:"edges"`
}

func parseGraphFile(r io.Reader) ([]skillgraph.Edge, error) {
	var gf graphFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&gf); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("graph file is empty")
		}
		return nil, fmt.Errorf("parse graph file: %w", err)
	}
	return gf.Edges, nil
}

func validateEdges(edges []skillgraph.Edge) (skillgraph.OrderResult, error) {
	var problems []string
	for i, e := range edges {
		switch {
		case strings.TrimSpace(e.Skill) == "" || strings.TrimSpace(e.Prerequisite) == "":
			problems = append(problems, fmt.Sprintf("edge %d: skill and prerequisite are required", i))
		case e.Skill == e.Prerequisite:
			problems = append(problems, fmt.Sprintf("edge %d: %s requires itself", i, e.Skill))
		case e.Weight <= 0 || e.Weight > 1:
			problems = append(problems, fmt.Sprintf("edge %d: weight %v outside (0,1]", i, e.Weight))
		}
	}
	if len(problems) > 0 {
		return skillgraph.OrderResult{}, fmt.Errorf("invalid edges:\n  %s", strings.Join(problems, "\n  "))
	}
	g := skillgraph.New(edges)
	if err := services.CyclesError("graph validate", g.StrictCycles()); err != nil {
		return skillgraph.OrderResult{}, err
	}
	return g.LearningOrder(), nil
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}
