package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/service"
)

var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage persons in the hierarchy",
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every person",
	Long: `List every person with their position and manager.

Examples:
  orgoals person list
  orgoals person list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPersonList(personFormat)
	},
}

var personAddCmd = &cobra.Command{
	Use:   "add <name> <position>",
	Short: "Add a person",
	Long: `Add a person, optionally reporting to an existing manager.

Examples:
  orgoals person add "Ada Lovelace" CEO
  orgoals person add "Bob Smith" "VP Sales" --parent 1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var parent *int64
		if cmd.Flags().Changed("parent") {
			parent = &personParent
		}
		return runPersonAdd(models.NewPerson{Name: args[0], Position: args[1], ParentID: parent})
	},
}

var personUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename, retitle or move a person",
	Long: `Update a person. Only the flags given are changed. Moving a person
re-aggregates their goals along the old and the new management chain.

Examples:
  orgoals person update 4 --position "Head of Sales"
  orgoals person update 4 --parent 2
  orgoals person update 4 --root`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		var patch models.PersonPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &personName
		}
		if cmd.Flags().Changed("position") {
			patch.Position = &personPosition
		}
		switch {
		case personRoot && cmd.Flags().Changed("parent"):
			return fmt.Errorf("--root and --parent are mutually exclusive")
		case personRoot:
			patch.SetParent = true
		case cmd.Flags().Changed("parent"):
			patch.SetParent = true
			patch.ParentID = &personParent
		}
		return runPersonUpdate(id, patch)
	},
}

var personRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a person and their goals",
	Long: `Remove a person. Their goals are deleted, their direct reports become
roots, and the former manager's goals are re-aggregated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return runPersonRemove(id)
	},
}

var personSubordinatesCmd = &cobra.Command{
	Use:   "subordinates <id>",
	Short: "List the direct reports of a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return runPersonSubordinates(id, personFormat)
	},
}

var personDetachedCmd = &cobra.Command{
	Use:   "detached",
	Short: "List persons no root reaches",
	Long: `List the persons "orgoals tree" leaves out: their manager id points at a
person that does not exist, or their reporting line loops back on itself.
Fix them with "orgoals person update <id> --parent <id>" or "--root".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPersonDetached(personFormat)
	},
}

var (
	personName     string
	personPosition string
	personParent   int64
	personRoot     bool
	personFormat   string
)

func parseIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func runPersonList(formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *service.Service) error {
		persons, err := svc.ListPersons(ctx)
		if err != nil {
			return err
		}
		return printPersons(format, persons, "No persons yet. Add one with: orgoals person add <name> <position>")
	})
}

func runPersonAdd(np models.NewPerson) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		p, err := svc.CreatePerson(ctx, np)
		if err != nil {
			return err
		}
		fmt.Printf("Person %d created: %s (%s)\n", p.ID, p.Name, p.Position)
		return nil
	})
}

func runPersonUpdate(id int64, patch models.PersonPatch) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		p, err := svc.UpdatePerson(ctx, id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Person %d updated: %s (%s), reports to %s\n", p.ID, p.Name, p.Position, idOrDash(p.ParentID))
		return nil
	})
}

func runPersonRemove(id int64) error {
	return withWriteService(func(ctx context.Context, svc *service.Service) error {
		if err := svc.DeletePerson(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Person %d deleted\n", id)
		return nil
	})
}

func runPersonSubordinates(id int64, formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *service.Service) error {
		subs, err := svc.Subordinates(ctx, id)
		if err != nil {
			return err
		}
		return printPersons(format, subs, fmt.Sprintf("Person %d has no direct reports", id))
	})
}

func runPersonDetached(formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *service.Service) error {
		persons, err := svc.Detached(ctx)
		if err != nil {
			return err
		}
		return printPersons(format, persons, "Every person is reachable from a root")
	})
}

func printPersons(format string, persons []models.Person, empty string) error {
	if format != "table" {
		if persons == nil {
			persons = []models.Person{}
		}
		return printStructured(os.Stdout, format, persons)
	}
	if len(persons) == 0 {
		fmt.Println(empty)
		return nil
	}
	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPOSITION\tMANAGER")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t-------")
	for _, p := range persons {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Position, idOrDash(p.ParentID))
	}
	return w.Flush()
}

func init() {
	personAddCmd.Flags().Int64Var(&personParent, "parent", 0, "Manager's person id")

	personUpdateCmd.Flags().StringVar(&personName, "name", "", "New name")
	personUpdateCmd.Flags().StringVar(&personPosition, "position", "", "New position")
	personUpdateCmd.Flags().Int64Var(&personParent, "parent", 0, "New manager's person id")
	personUpdateCmd.Flags().BoolVar(&personRoot, "root", false, "Detach from the current manager")

	personListCmd.Flags().StringVarP(&personFormat, "format", "f", "", "Output format (table, json, yaml)")
	personSubordinatesCmd.Flags().StringVarP(&personFormat, "format", "f", "", "Output format (table, json, yaml)")
	personDetachedCmd.Flags().StringVarP(&personFormat, "format", "f", "", "Output format (table, json, yaml)")

	personCmd.AddCommand(personListCmd)
	personCmd.AddCommand(personAddCmd)
	personCmd.AddCommand(personUpdateCmd)
	personCmd.AddCommand(personRemoveCmd)
	personCmd.AddCommand(personSubordinatesCmd)
	personCmd.AddCommand(personDetachedCmd)
	RootCmd.AddCommand(personCmd)
}
