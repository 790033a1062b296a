package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
)

// scoreFixture is an anchor with a fixed set of candidates, read from YAML.
type scoreFixture struct {
	Partner         *model.Partner         `yaml:"partner"`
	Anchor          model.Anchor           `yaml:"anchor"`
	LearnedPatterns []model.LearnedPattern `yaml:"learned_patterns"`
	Signals         []string               `yaml:"signals"`
	Candidates      []model.Candidate      `yaml:"candidates"`
}

func loadFixture(path string) (*scoreFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fx scoreFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, common.NewUserError("Fixture is not valid YAML", err)
	}
	if fx.Anchor.IsEmpty() {
		return nil, common.NewUserError("Fixture anchor has nothing to match on", common.ErrInvalidAnchor)
	}
	for i, c := range fx.Candidates {
		if err := c.Validate(); err != nil {
			return nil, common.NewUserError(fmt.Sprintf("Fixture candidate %d is invalid", i+1), fmt.Errorf("%w: %w", common.ErrInvalidCandidate, err))
		}
	}
	return &fx, nil
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score and rank candidates from a fixture file",
		Long: `Score a fixed list of candidates against one anchor without searching.

The fixture is a YAML file with an anchor, optional partner, learned
patterns and signal names, and the candidates to rank.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("fixture")
			asJSON, _ := cmd.Flags().GetBool("json")
			reasons, _ := cmd.Flags().GetBool("reasons")

			fx, err := loadFixture(path)
			if err != nil {
				return err
			}
			signals, err := match.ParseSignals(fx.Signals)
			if err != nil {
				return common.NewUserError(err.Error(), err)
			}

			scorer := match.NewScorer(currentConfig().Matching)
			ranked := scorer.Rank(fx.Anchor, fx.Candidates, match.Options{
				Partner:         fx.Partner,
				LearnedPatterns: fx.LearnedPatterns,
				Signals:         signals,
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}
			return cli.RenderRanked(out, ranked, reasons)
		},
	}

	cmd.Flags().String("fixture", "", "YAML fixture with anchor and candidates")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().Bool("reasons", true, "Show score reasons")
	_ = cmd.MarkFlagRequired("fixture")

	return cmd
}
