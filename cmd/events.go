package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded events",
}

var eventsSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent session lifecycle events",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.EventRepo().QuerySessionEvents(context.Background(), queryOpts(cmd))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No session events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-12s  %-10s  %-8s  %-7s  %-7s  %s\n",
			"ID", "Timestamp", "Learner", "Action", "Session", "Served", "Correct", "Secs")
		fmt.Println(strings.Repeat("─", 90))
		for _, e := range events {
			fmt.Printf("%-5d  %-19s  %-12s  %-10s  %-8s  %-7d  %-7d  %d\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Learner,
				e.Action,
				shortID(e.SessionID),
				e.QuestionsServed,
				e.CorrectAnswers,
				e.DurationSecs,
			)
		}
		return nil
	},
}

var eventsAnswersCmd = &cobra.Command{
	Use:   "answers",
	Short: "List recent graded answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.EventRepo().QueryAnswerEvents(context.Background(), queryOpts(cmd))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No answer events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-12s  %-5s  %-18s  %-2s  %s\n",
			"ID", "Timestamp", "Learner", "Q", "Skill", "OK", "Mastery")
		fmt.Println(strings.Repeat("─", 90))
		for _, e := range events {
			ok := "✓"
			if !e.Correct {
				ok = "✗"
			}
			change := "untracked"
			if e.Tracked {
				change = fmt.Sprintf("%.3f → %.3f", e.MasteryBefore, e.MasteryAfter)
			}
			fmt.Printf("%-5d  %-19s  %-12s  %-5d  %-18s  %-2s  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Learner,
				e.QuestionID,
				e.Skill,
				ok,
				change,
			)
		}
		return nil
	},
}

var eventsLLMCmd = &cobra.Command{
	Use:   "llm [id]",
	Short: "List recent LLM requests, or show one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid ID %q: %w", args[0], err)
			}
			return showLLMEvent(s.EventRepo(), id)
		}

		purpose, _ := cmd.Flags().GetString("purpose")
		events, err := s.EventRepo().QueryLLMEvents(context.Background(), queryOpts(cmd))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 100))
		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

func showLLMEvent(repo store.EventRepo, id int) error {
	e, err := repo.GetLLMEvent(context.Background(), id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return fmt.Errorf("event %d not found", id)
	}

	sep := strings.Repeat("─", 60)
	fmt.Printf("ID:        %d\n", e.ID)
	fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Provider:  %s\n", e.Provider)
	fmt.Printf("Model:     %s\n", e.Model)
	fmt.Printf("Purpose:   %s\n", e.Purpose)
	fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Printf("Latency:   %dms\n", e.LatencyMs)
	fmt.Printf("Success:   %v\n", e.Success)
	if e.ErrorMessage != "" {
		fmt.Printf("Error:     %s\n", e.ErrorMessage)
	}

	for _, part := range []struct{ title, body string }{
		{"REQUEST", e.RequestBody},
		{"RESPONSE", e.ResponseBody},
	} {
		fmt.Println(sep)
		fmt.Println(part.title)
		fmt.Println(sep)
		if part.body == "" {
			fmt.Println("(not captured)")
		} else {
			fmt.Println(part.body)
		}
	}
	return nil
}

func queryOpts(cmd *cobra.Command) store.QueryOpts {
	limit, _ := cmd.Flags().GetInt("limit")
	learner, _ := cmd.Flags().GetString("learner")
	return store.QueryOpts{Limit: limit, Learner: learner}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	eventsCmd.PersistentFlags().Int("limit", 20, "Maximum number of events to show")
	eventsSessionsCmd.Flags().String("learner", "", "Only show events of this learner")
	eventsAnswersCmd.Flags().String("learner", "", "Only show events of this learner")
	eventsLLMCmd.Flags().String("purpose", "", "Filter by purpose (e.g. initial-mastery)")

	eventsCmd.AddCommand(eventsSessionsCmd)
	eventsCmd.AddCommand(eventsAnswersCmd)
	eventsCmd.AddCommand(eventsLLMCmd)
}
