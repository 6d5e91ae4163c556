package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/config"
	"github.com/abhisek/skillpath/internal/question"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question bank",
}

var questionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a questions file into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := question.LoadFile(args[0])
		if err != nil {
			return err
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		repo := s.QuestionRepo()
		if err := repo.Import(ctx, qs); err != nil {
			return fmt.Errorf("import: %w", err)
		}
		total, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d questions (%d in database).\n", len(qs), total)
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions from the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		skill, _ := cmd.Flags().GetString("skill")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var qs []question.Question
		if cfg.Data.QuestionSource == config.SourceSQLite {
			s, _, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer s.Close()
			qs, err = s.QuestionRepo().List(context.Background(), skill)
			if err != nil {
				return err
			}
		} else {
			all, err := question.LoadFile(cfg.Data.Questions)
			if err != nil {
				return err
			}
			for _, q := range all {
				if skill == "" || q.Skill == skill {
					qs = append(qs, q)
				}
			}
		}

		if len(qs) == 0 {
			fmt.Println("No questions found.")
			return nil
		}

		fmt.Printf("%-5s  %-20s  %-6s  %s\n", "ID", "Skill", "Kind", "Prompt")
		fmt.Println(strings.Repeat("─", 90))
		for _, q := range qs {
			kind := "text"
			if q.IsMultipleChoice() {
				kind = fmt.Sprintf("mc/%d", len(q.Options))
			}
			prompt := q.Prompt
			if len(prompt) > 55 {
				prompt = prompt[:52] + "..."
			}
			fmt.Printf("%-5d  %-20s  %-6s  %s\n", q.ID, q.Skill, kind, prompt)
		}
		return nil
	},
}

func init() {
	questionsListCmd.Flags().String("skill", "", "Only list questions of this skill")
	questionsCmd.AddCommand(questionsImportCmd)
	questionsCmd.AddCommand(questionsListCmd)
}
