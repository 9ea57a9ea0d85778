package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depaudit/internal/manifest"
	"github.com/blackwell-systems/depaudit/internal/output"
)

var (
	explainEvidence   string
	explainGradleTree string

	explainCmd = &cobra.Command{
		Use:   "explain <manifest> <line|group:artifact[:version]>",
		Short: "Show how a dependency declaration was classified",
		Long: `Show the rule that decided a declaration's category, the heuristic verdict
when evidence overrode it, the size estimate and what to do next.

The declaration is selected by its 1-based line number or by coordinate.
A coordinate without a version matches every declaration of that module.`,
		Example: `  # Explain the declaration on line 9
  depaudit explain build.gradle.kts 9

  # Explain guava, checked against resolved dependencies
  depaudit explain build.gradle.kts com.google.guava:guava --gradle-tree deps.txt`,
		Args: cobra.ExactArgs(2),
		RunE: runExplain,
	}
)

func init() {
	explainCmd.Flags().StringVar(&explainEvidence, "evidence", "", "file of resolved group:artifact:version coordinates")
	explainCmd.Flags().StringVar(&explainGradleTree, "gradle-tree", "", "file containing 'gradle dependencies' output")
	explainCmd.MarkFlagsMutuallyExclusive("evidence", "gradle-tree")

	RootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	path, selector := args[0], strings.TrimSpace(args[1])

	lines, err := readManifest(path)
	if err != nil {
		return err
	}

	ev, err := loadEvidence(explainEvidence, explainGradleTree)
	if err != nil {
		return err
	}

	decls := selectDeclarations(manifest.Parse(lines), selector)
	if len(decls) == 0 {
		return fmt.Errorf("no dependency declaration matching %q in %s", selector, path)
	}

	c := newClassifier(configFrom(cmd.Context()))
	out := cmd.OutOrStdout()
	for i, d := range decls {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, output.RenderExplanation(c.Explain(d, ev)))
	}
	return nil
}

// selectDeclarations picks declarations by line number, full coordinate or
// group:artifact.
func selectDeclarations(decls []manifest.Declaration, selector string) []manifest.Declaration {
	var out []manifest.Declaration

	if line, err := strconv.Atoi(selector); err == nil {
		for _, d := range decls {
			if d.LineNumber == line {
				out = append(out, d)
			}
		}
		return out
	}

	for _, d := range decls {
		if d.Coordinate() == selector || d.Module() == selector {
			out = append(out, d)
		}
	}
	return out
}
