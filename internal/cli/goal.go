package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/service"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goals and their roll-up",
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	Long: `List every goal, or the goals of one person.

Examples:
  orgoals goal list
  orgoals goal list --person 3 --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var personID int64
		if cmd.Flags().Changed("person") {
			personID = goalPerson
		}
		return runGoalList(personID, goalFormat)
	},
}

var goalAddCmd = &cobra.Command{
	Use:   "add <person-id> <name>",
	Short: "Add a goal to a person",
	Long: `Add a goal. Unless it is private it is propagated to every manager above
the person, creating their same-named goal where missing.

Examples:
  orgoals goal add 4 Revenue --target 500000 --value 120000
  orgoals goal add 4 "Team NPS" --definition "Quarterly survey" --private`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		personID, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		ng := models.NewGoal{
			PersonID:     personID,
			Name:         args[1],
			Target:       goalTarget,
			CurrentValue: goalValue,
			IsLocked:     goalLocked,
			IsPrivate:    goalPrivate,
		}
		if cmd.Flags().Changed("definition") {
			ng.Definition = &goalDefinition
		}
		return runGoalAdd(ng)
	},
}

var goalUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a goal",
	Long: `Update a goal. Only the flags given are changed.

Examples:
  orgoals goal update 7 --value 180000
  orgoals goal update 7 --private=false
  orgoals goal update 7 --clear-definition`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		var patch models.GoalPatch
		if flags.Changed("name") {
			patch.Name = &goalName
		}
		if flags.Changed("definition") && goalClearDefinition {
			return fmt.Errorf("--definition and --clear-definition are mutually exclusive")
		}
		if flags.Changed("definition") {
			patch.SetDefinition = true
			patch.Definition = &goalDefinition
		}
		if goalClearDefinition {
			patch.SetDefinition = true
		}
		if flags.Changed("target") {
			patch.Target = &goalTarget
		}
		if flags.Changed("value") {
			patch.CurrentValue = &goalValue
		}
		if flags.Changed("locked") {
			patch.IsLocked = &goalLocked
		}
		if flags.Changed("private") {
			patch.IsPrivate = &goalPrivate
		}
		return runGoalUpdate(id, patch)
	},
}

var goalRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a goal",
	Long:  `Remove a goal and re-aggregate the manager's same-named goal without it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return runGoalRemove(id)
	},
}

var goalPropagateCmd = &cobra.Command{
	Use:   "propagate <id>",
	Short: "Re-run propagation from a goal",
	Long: `Push a goal's value up the management chain again and report every
ancestor goal visited.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return runGoalPropagate(id, goalFormat)
	},
}

var (
	goalPerson          int64
	goalName            string
	goalDefinition      string
	goalClearDefinition bool
	goalTarget          float64
	goalValue           float64
	goalLocked          bool
	goalPrivate         bool
	goalFormat          string
)

func runGoalList(personID int64, formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *service.Service) error {
		var goals []models.Goal
		if personID > 0 {
			goals, err = svc.GoalsForPerson(ctx, personID)
		} else {
			goals, err = svc.ListGoals(ctx)
		}
		if err != nil {
			return err
		}
		return printGoals(format, goals)
	})
}

func runGoalAdd(ng models.NewGoal) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		g, err := svc.CreateGoal(ctx, ng)
		if err != nil {
			return err
		}
		fmt.Printf("Goal %d created: %s = %g (target %g) for person %d\n", g.ID, g.Name, g.CurrentValue, g.Target, g.PersonID)
		return nil
	})
}

func runGoalUpdate(id int64, patch models.GoalPatch) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		g, err := svc.UpdateGoal(ctx, id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Goal %d updated: %s = %g (target %g), locked %s, private %s\n",
			g.ID, g.Name, g.CurrentValue, g.Target, yesNo(g.IsLocked), yesNo(g.IsPrivate))
		return nil
	})
}

func runGoalRemove(id int64) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		if err := svc.DeleteGoal(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Goal %d deleted\n", id)
		return nil
	})
}

func runGoalPropagate(id int64, formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		res, err := svc.Propagate(ctx, id)
		if err != nil {
			return err
		}
		return printChanges(format, res)
	})
}

func printGoals(format string, goals []models.Goal) error {
	if format != "table" {
		if goals == nil {
			goals = []models.Goal{}
		}
		return printStructured(os.Stdout, format, goals)
	}
	if len(goals) == 0 {
		fmt.Println("No goals found")
		return nil
	}
	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tPERSON\tNAME\tVALUE\tTARGET\tLOCKED\tPRIVATE\tDEFINITION")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t-----\t------\t------\t-------\t----------")
	for _, g := range goals {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%g\t%g\t%s\t%s\t%s\n",
			g.ID, g.PersonID, g.Name, g.CurrentValue, g.Target,
			yesNo(g.IsLocked), yesNo(g.IsPrivate), orDash(g.Definition))
	}
	return w.Flush()
}

func printChanges(format string, res propagation.Result) error {
	if format != "table" {
		if res.Changes == nil {
			res.Changes = []propagation.Change{}
		}
		return printStructured(os.Stdout, format, res)
	}
	if len(res.Changes) == 0 {
		fmt.Println("Nothing to propagate (root, private, or no manager goal)")
		return nil
	}
	w := newTable()
	_, _ = fmt.Fprintln(w, "PERSON\tGOAL\tNAME\tBEFORE\tAFTER\tNOTE")
	_, _ = fmt.Fprintln(w, "------\t----\t----\t------\t-----\t----")
	for _, ch := range res.Changes {
		note := "-"
		switch {
		case ch.Created:
			note = "created"
		case ch.Locked:
			note = "locked"
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%g\t%g\t%s\n", ch.PersonID, ch.GoalID, ch.Name, ch.Previous, ch.Value, note)
	}
	return w.Flush()
}

func init() {
	goalListCmd.Flags().Int64Var(&goalPerson, "person", 0, "Only this person's goals")
	goalListCmd.Flags().StringVarP(&goalFormat, "format", "f", "", "Output format (table, json, yaml)")

	for _, cmd := range []*cobra.Command{goalAddCmd, goalUpdateCmd} {
		cmd.Flags().StringVar(&goalDefinition, "definition", "", "How the goal is measured")
		cmd.Flags().Float64Var(&goalTarget, "target", 0, "Target value")
		cmd.Flags().Float64Var(&goalValue, "value", 0, "Current value")
		cmd.Flags().BoolVar(&goalLocked, "locked", false, "Keep the value when reports change")
		cmd.Flags().BoolVar(&goalPrivate, "private", false, "Keep the goal out of the roll-up")
	}
	goalUpdateCmd.Flags().StringVar(&goalName, "name", "", "New name")
	goalUpdateCmd.Flags().BoolVar(&goalClearDefinition, "clear-definition", false, "Reset the definition to null")

	goalPropagateCmd.Flags().StringVarP(&goalFormat, "format", "f", "", "Output format (table, json, yaml)")

	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalUpdateCmd)
	goalCmd.AddCommand(goalRemoveCmd)
	goalCmd.AddCommand(goalPropagateCmd)
	RootCmd.AddCommand(goalCmd)
}
