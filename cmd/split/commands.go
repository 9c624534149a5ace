package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/imlitech/split"
	"github.com/imlitech/split/goals"
	"github.com/imlitech/split/trial"
)

var (
	visitorID   string
	finishGoals []string
	noReset     bool
)

var assignCmd = &cobra.Command{
	Use:   "assign <experiment> <control> [alternative...]",
	Short: "Assign a visitor to an alternative",
	Long: `Assign a visitor to an alternative of an experiment, creating the
experiment on first use. Without --visitor a new visitor ID is generated and
printed. With only the experiment name, its static definition is used.

Examples:
  split assign link_color blue red
  split assign --visitor 3f6c... link_color blue red`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runAssign),
}

var finishCmd = &cobra.Command{
	Use:   "finish <experiment|metric>",
	Short: "Record a conversion for a visitor",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runFinish),
}

var statsCmd = &cobra.Command{
	Use:   "stats <experiment>",
	Short: "Show participation and completion counters",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runStats),
}

var goalsCmd = &cobra.Command{
	Use:   "goals <experiment>",
	Short: "List the goals of an experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runGoals),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored experiments",
	Args:  cobra.NoArgs,
	RunE:  withApp(runList),
}

var winnerCmd = &cobra.Command{
	Use:   "winner <experiment> [alternative]",
	Short: "Set the winning alternative, or clear it when none is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  withApp(runWinner),
}

var resetCmd = &cobra.Command{
	Use:   "reset <experiment>",
	Short: "Clear counters and winner and move visitors to a new version",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runReset),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <experiment>",
	Short: "Delete an experiment with its goals and counters",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runDelete),
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove a visitor's keys of deleted, decided or unstarted experiments",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCleanup),
}

var visitorCmd = &cobra.Command{
	Use:   "visitor",
	Short: "Show the running experiments of a visitor",
	Args:  cobra.NoArgs,
	RunE:  withApp(runVisitor),
}

func init() {
	for _, cmd := range []*cobra.Command{assignCmd, finishCmd, cleanupCmd, visitorCmd} {
		cmd.Flags().StringVar(&visitorID, "visitor", "", "visitor ID")
	}
	_ = finishCmd.MarkFlagRequired("visitor")
	_ = cleanupCmd.MarkFlagRequired("visitor")
	_ = visitorCmd.MarkFlagRequired("visitor")

	finishCmd.Flags().StringSliceVar(&finishGoals, "goal", nil, "goal to complete (repeatable)")
	finishCmd.Flags().BoolVar(&noReset, "no-reset", false, "keep the assignment and mark it finished")
}

func runAssign(cmd *cobra.Command, a *app, args []string) error {
	if visitorID == "" {
		visitorID = uuid.NewString()
	}
	vc := &split.VisitorContext{ID: visitorID}

	var control any
	alternatives := make([]any, 0, len(args))
	if len(args) > 1 {
		control = args[1]
		for _, alt := range args[2:] {
			alternatives = append(alternatives, alt)
		}
	}

	asg, err := a.manager.ABTest(cmd.Context(), vc, args[0], control, alternatives...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "visitor\t%s\n", vc.ID)
	fmt.Fprintf(out, "alternative\t%s\n", asg.Name())
	if asg.Fallback != nil {
		fmt.Fprintf(out, "fallback\t%s\n", asg.Fallback.Reason)
	}

	return nil
}

func runFinish(cmd *cobra.Command, a *app, args []string) error {
	vc := &split.VisitorContext{ID: visitorID}

	var desc any = args[0]
	if len(finishGoals) > 0 {
		desc = split.WithGoals(args[0], finishGoals...)
	}

	return a.manager.ABFinished(cmd.Context(), vc, desc, split.WithReset(!noReset))
}

func runStats(cmd *cobra.Command, a *app, args []string) error {
	exp, err := findExperiment(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}

	stats, err := trial.LoadStats(cmd.Context(), a.store, exp)
	if err != nil {
		return err
	}

	writeStats(cmd.OutOrStdout(), exp, stats)

	return nil
}

func writeStats(w io.Writer, exp *split.Experiment, stats []trial.AlternativeStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "experiment\t%s\tversion %d\n", exp.Name, exp.Version)
	if exp.HasWinner() {
		fmt.Fprintf(tw, "winner\t%s\n", exp.Winner)
	}
	fmt.Fprintln(tw, "ALTERNATIVE\tPARTICIPANTS\tCOMPLETED\tGOALS")
	for _, s := range stats {
		goalText := ""
		for _, g := range slices.Sorted(maps.Keys(s.Goals)) {
			goalText += fmt.Sprintf("%s=%d ", g, s.Goals[g])
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Participants, s.Completed, goalText)
	}
}

func runGoals(cmd *cobra.Command, a *app, args []string) error {
	list, err := goals.New(a.store, args[0], nil).LoadFromStore(cmd.Context())
	if err != nil {
		return err
	}
	for _, g := range list {
		fmt.Fprintln(cmd.OutOrStdout(), g)
	}

	return nil
}

func runList(cmd *cobra.Command, a *app, _ []string) error {
	names, err := a.manager.Catalog().Names(cmd.Context())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}

	return nil
}

func runWinner(cmd *cobra.Command, a *app, args []string) error {
	exp, err := findExperiment(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return a.manager.Catalog().ResetWinner(cmd.Context(), exp)
	}

	return a.manager.Catalog().SetWinner(cmd.Context(), exp, args[1])
}

func runReset(cmd *cobra.Command, a *app, args []string) error {
	exp, err := findExperiment(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}

	return a.manager.Catalog().Reset(cmd.Context(), exp)
}

func runDelete(cmd *cobra.Command, a *app, args []string) error {
	return a.manager.Catalog().Delete(cmd.Context(), args[0])
}

func runVisitor(cmd *cobra.Command, a *app, _ []string) error {
	active, err := a.manager.ActiveExperiments(cmd.Context(), &split.VisitorContext{ID: visitorID})
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(active)) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, active[name])
	}

	return nil
}

func runCleanup(cmd *cobra.Command, a *app, _ []string) error {
	return a.manager.Cleanup(cmd.Context(), &split.VisitorContext{ID: visitorID})
}

func findExperiment(ctx context.Context, a *app, name string) (*split.Experiment, error) {
	exp, found, err := a.manager.Catalog().Find(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", split.ErrExperimentNotFound, name)
	}

	return exp, nil
}
