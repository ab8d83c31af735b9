/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/linecrew/internal/deviation"
)

var (
	absenceDay        string
	absenceWorker     string
	absenceSubstitute string
	absenceReason     string

	swapDay      string
	swapTitular  string
	swapExecutor string
	swapReason   string

	transferFrom      string
	transferTo        string
	transferEffective string
	transferReason    string
)

var absenceCmd = &cobra.Command{
	Use:   "absence <period-id>",
	Short: "Record a worker's absence on a published day",
	Long:  "Mark the slot of a worker on a given day as an absence and append the coverage event. With --substitute the absence resolves as covered, without one it records an uncovered gap.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAbsence,
}

var swapCmd = &cobra.Command{
	Use:   "swap <period-id>",
	Short: "Record that one worker executed another's shift",
	Long:  "Register a shift swap on a published day. The rostered worker's slot is left as generated; the coverage event records who actually worked it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwap,
}

var transferCmd = &cobra.Command{
	Use:   "transfer <period-id>",
	Short: "Reassign a worker's future slots to another worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransfer,
}

func init() {
	absenceCmd.Flags().StringVar(&absenceDay, "day", "", "Day of the absence, YYYY-MM-DD (required)")
	absenceCmd.Flags().StringVar(&absenceWorker, "worker", "", "Absent worker ID (required)")
	absenceCmd.Flags().StringVar(&absenceSubstitute, "substitute", "", "Covering worker ID")
	absenceCmd.Flags().StringVar(&absenceReason, "reason", "", "Justification")
	absenceCmd.MarkFlagRequired("day")
	absenceCmd.MarkFlagRequired("worker")

	swapCmd.Flags().StringVar(&swapDay, "day", "", "Day of the swap, YYYY-MM-DD (required)")
	swapCmd.Flags().StringVar(&swapTitular, "titular", "", "Rostered worker ID (required)")
	swapCmd.Flags().StringVar(&swapExecutor, "executor", "", "Worker who executed the shift (required)")
	swapCmd.Flags().StringVar(&swapReason, "reason", "", "Justification")
	swapCmd.MarkFlagRequired("day")
	swapCmd.MarkFlagRequired("titular")
	swapCmd.MarkFlagRequired("executor")

	transferCmd.Flags().StringVar(&transferFrom, "from", "", "Worker giving up the slots (required)")
	transferCmd.Flags().StringVar(&transferTo, "to", "", "Worker receiving the slots (required)")
	transferCmd.Flags().StringVar(&transferEffective, "effective", "", "First transferred day, YYYY-MM-DD, must be in the future (required)")
	transferCmd.Flags().StringVar(&transferReason, "reason", "", "Justification")
	transferCmd.MarkFlagRequired("from")
	transferCmd.MarkFlagRequired("to")
	transferCmd.MarkFlagRequired("effective")

	rootCmd.AddCommand(absenceCmd, swapCmd, transferCmd)
}

func runAbsence(cmd *cobra.Command, args []string) error {
	day, err := parseDay("--day", absenceDay)
	if err != nil {
		return err
	}

	input := deviation.AbsenceInput{
		PeriodID:      args[0],
		Day:           day,
		WorkerID:      absenceWorker,
		Justification: absenceReason,
	}
	if absenceSubstitute != "" {
		input.SubstituteWorkerID = &absenceSubstitute
	}

	return withEngine(func(ctx context.Context, eng *engine) error {
		event, err := eng.deviation.RecordAbsence(ctx, input)
		if err != nil {
			return err
		}
		fmt.Printf("absence recorded, resolution %s\n", event.Resolution)
		return nil
	})
}

func runSwap(cmd *cobra.Command, args []string) error {
	day, err := parseDay("--day", swapDay)
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, eng *engine) error {
		_, err := eng.deviation.RecordSwap(ctx, deviation.SwapInput{
			PeriodID:      args[0],
			Day:           day,
			TitularID:     swapTitular,
			ExecutorID:    swapExecutor,
			Justification: swapReason,
		})
		if err != nil {
			return err
		}
		fmt.Println("swap recorded")
		return nil
	})
}

func runTransfer(cmd *cobra.Command, args []string) error {
	effective, err := parseDay("--effective", transferEffective)
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, eng *engine) error {
		result, err := eng.deviation.Transfer(ctx, deviation.TransferInput{
			PeriodID:      args[0],
			FromWorkerID:  transferFrom,
			ToWorkerID:    transferTo,
			EffectiveFrom: effective,
			Justification: transferReason,
		})
		if err != nil {
			return err
		}
		fmt.Printf("transferred %d slot(s), liberated %d conflicting slot(s)\n",
			result.SlotsTransferred, result.SlotsLiberated)
		return nil
	})
}
