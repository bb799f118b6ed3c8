package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/service"
)

var treeFormat string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the org chart",
	Long: `Print the hierarchy from every root down. Persons caught in a parent
cycle, or whose manager no longer exists, are not reachable from a root and
are left out; "orgoals person detached" lists them.

Examples:
  orgoals tree
  orgoals tree --format yaml > org.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTree(treeFormat)
	},
}

func runTree(formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *service.Service) error {
		roots, err := svc.Tree(ctx)
		if err != nil {
			return err
		}
		if format != "table" {
			if roots == nil {
				roots = []*models.TreeNode{}
			}
			return printStructured(os.Stdout, format, roots)
		}
		if len(roots) == 0 {
			fmt.Println("The organization is empty")
			return nil
		}
		fmt.Print(treeString(roots))
		return nil
	})
}

// writeTree renders node and its descendants with box-drawing guides.
func writeTree(w io.Writer, node *models.TreeNode, prefix, branch string) {
	_, _ = fmt.Fprintf(w, "%s%s%s (%s) #%d\n", prefix, branch, node.Name, node.Position, node.ID)

	childPrefix := prefix
	switch branch {
	case "├── ":
		childPrefix += "│   "
	case "└── ":
		childPrefix += "    "
	}
	for i, child := range node.Children {
		next := "├── "
		if i == len(node.Children)-1 {
			next = "└── "
		}
		writeTree(w, child, childPrefix, next)
	}
}

// treeString is writeTree into a string.
func treeString(roots []*models.TreeNode) string {
	var b strings.Builder
	for _, root := range roots {
		writeTree(&b, root, "", "")
	}
	return b.String()
}

func init() {
	treeCmd.Flags().StringVarP(&treeFormat, "format", "f", "", "Output format (table, json, yaml)")
	RootCmd.AddCommand(treeCmd)
}
