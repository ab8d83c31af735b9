/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/linecrew/internal/composition"
	"github.com/friendsincode/linecrew/internal/generation"
	"github.com/friendsincode/linecrew/internal/lifecycle"
)

var (
	periodCrewID    string
	periodPatternID string
	periodStart     string
	periodEnd       string
	periodNote      string

	generateFrom string

	publishForce bool

	extendUntil string
)

var createPeriodCmd = &cobra.Command{
	Use:   "create-period",
	Short: "Open a new draft schedule period for a crew",
	RunE:  runCreatePeriod,
}

var generateCmd = &cobra.Command{
	Use:   "generate <period-id>",
	Short: "Generate rotation slots for a period",
	Long:  "Compute and write the rotation slots of a period. Without --from the whole period is generated; with --from generation is restricted to that day onward (published days are never touched).",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var validateCmd = &cobra.Command{
	Use:   "validate <period-id>",
	Short: "Check a period's working days against the required crew composition",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var submitCmd = &cobra.Command{
	Use:   "submit <period-id>",
	Short: "Move a draft period to pending approval",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

var publishCmd = &cobra.Command{
	Use:   "publish <period-id>",
	Short: "Publish a period, freezing its slots",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <period-id>",
	Short: "Archive a published period",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

var extendCmd = &cobra.Command{
	Use:   "extend <period-id>",
	Short: "Extend a published period to a later end date",
	Long:  "Widen a published period and generate slots for the new days only. The period drops back to draft and must be published again; already-published days are preserved and the rotation phase carries over without a jump.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtend,
}

var slotsCmd = &cobra.Command{
	Use:   "slots <period-id>",
	Short: "Print the slots of a period",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlots,
}

func init() {
	createPeriodCmd.Flags().StringVar(&periodCrewID, "crew", "", "Crew ID (required)")
	createPeriodCmd.Flags().StringVar(&periodPatternID, "pattern", "", "Rotation pattern ID (required)")
	createPeriodCmd.Flags().StringVar(&periodStart, "start", "", "Period start date, YYYY-MM-DD (required)")
	createPeriodCmd.Flags().StringVar(&periodEnd, "end", "", "Period end date, YYYY-MM-DD (required)")
	createPeriodCmd.Flags().StringVar(&periodNote, "note", "", "Free-form note")
	createPeriodCmd.MarkFlagRequired("crew")
	createPeriodCmd.MarkFlagRequired("pattern")
	createPeriodCmd.MarkFlagRequired("start")
	createPeriodCmd.MarkFlagRequired("end")

	generateCmd.Flags().StringVar(&generateFrom, "from", "", "Regenerate from this date only, YYYY-MM-DD")

	publishCmd.Flags().BoolVar(&publishForce, "skip-composition-check", false, "Publish even when composition is violated (administrative loads only)")

	extendCmd.Flags().StringVar(&extendUntil, "until", "", "New period end date, YYYY-MM-DD (required)")
	extendCmd.MarkFlagRequired("until")

	rootCmd.AddCommand(createPeriodCmd, generateCmd, validateCmd, submitCmd, publishCmd, archiveCmd, extendCmd, slotsCmd)
}

func parseDay(label, value string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", label, value)
	}
	return day, nil
}

func withEngine(fn func(ctx context.Context, eng *engine) error) error {
	if err := loadConfig(); err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()
	return fn(context.Background(), eng)
}

func runCreatePeriod(cmd *cobra.Command, args []string) error {
	start, err := parseDay("--start", periodStart)
	if err != nil {
		return err
	}
	end, err := parseDay("--end", periodEnd)
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, eng *engine) error {
		period, err := eng.lifecycle.CreatePeriod(ctx, lifecycle.CreatePeriodInput{
			CrewID:      periodCrewID,
			PatternID:   periodPatternID,
			PeriodStart: start,
			PeriodEnd:   end,
			Note:        periodNote,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created period %s (%s to %s, status %s)\n",
			period.ID,
			period.PeriodStart.Format("2006-01-02"),
			period.PeriodEnd.Format("2006-01-02"),
			period.Status)
		return nil
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	opts := generation.Options{Mode: generation.ModeFull}
	if generateFrom != "" {
		from, err := parseDay("--from", generateFrom)
		if err != nil {
			return err
		}
		opts = generation.Options{Mode: generation.ModeFromDate, FromDate: from}
	}

	return withEngine(func(ctx context.Context, eng *engine) error {
		result, err := eng.generator.Generate(ctx, args[0], nil, opts)
		if err != nil {
			return err
		}
		fmt.Printf("generated %d slot(s)\n", result.SlotsWritten)
		return nil
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine) error {
		report, err := eng.validator.Validate(ctx, args[0])
		if err != nil {
			return err
		}
		if len(report.Violations) == 0 {
			fmt.Println("composition ok")
			return nil
		}
		for _, v := range report.Violations {
			fmt.Printf("%s: %d worker(s) scheduled, %d required\n",
				v.Day.Format("2006-01-02"), v.Actual, v.Required)
		}
		return fmt.Errorf("composition violated on %d day(s)", len(report.Violations))
	})
}

func runSubmit(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine) error {
		if err := eng.lifecycle.SubmitForApproval(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("period pending approval")
		return nil
	})
}

func runPublish(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine) error {
		err := eng.lifecycle.Publish(ctx, args[0], lifecycle.PublishOptions{
			SkipCompositionCheck: publishForce,
		})
		var compErr *composition.Error
		if errors.As(err, &compErr) {
			for _, v := range compErr.Violations {
				fmt.Printf("%s: %d worker(s) scheduled, %d required\n",
					v.Day.Format("2006-01-02"), v.Actual, v.Required)
			}
			return err
		}
		if err != nil {
			return err
		}
		fmt.Println("period published")
		return nil
	})
}

func runArchive(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine) error {
		if err := eng.lifecycle.Archive(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("period archived")
		return nil
	})
}

func runExtend(cmd *cobra.Command, args []string) error {
	until, err := parseDay("--until", extendUntil)
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, eng *engine) error {
		if err := eng.lifecycle.Extend(ctx, args[0], until); err != nil {
			return err
		}
		fmt.Printf("period extended to %s, back in draft\n", until.Format("2006-01-02"))
		return nil
	})
}

func runSlots(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine) error {
		slots, err := eng.lifecycle.ListSlots(ctx, args[0])
		if err != nil {
			return err
		}
		for _, slot := range slots {
			line := fmt.Sprintf("%s %-8s %s", slot.Day.Format("2006-01-02"), slot.State, slot.WorkerID)
			if slot.PredictedStart != "" {
				line += fmt.Sprintf(" %s-%s", slot.PredictedStart, slot.PredictedEnd)
			}
			if slot.Retired {
				line += " (retired)"
			}
			fmt.Println(line)
		}
		fmt.Printf("%d slot(s)\n", len(slots))
		return nil
	})
}
