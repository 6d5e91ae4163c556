package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/catalog"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List skills in catalog order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s  %-6s  %s\n", "Order", "ID", "Skill")
		fmt.Println(strings.Repeat("─", 40))
		for _, s := range cat.Skills() {
			fmt.Printf("%-5d  %-6d  %s\n", s.Order, s.ID, s.Name)
		}
		return nil
	},
}

var learnersCmd = &cobra.Command{
	Use:   "learners",
	Short: "List known learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		cfg, _ := loadConfig(cmd)
		def, _ := cat.DefaultLearner(cfg.Learner.Default)

		fmt.Printf("%-6s  %s\n", "ID", "Learner")
		fmt.Println(strings.Repeat("─", 40))
		for _, l := range cat.Learners() {
			mark := ""
			if l.Name == def.Name {
				mark = "  (default)"
			}
			fmt.Printf("%-6d  %s%s\n", l.ID, l.Name, mark)
		}
		return nil
	},
}

func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.Data.Skills, cfg.Data.Learners)
}
