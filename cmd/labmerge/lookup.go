package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"stealthcompany.com/labmerge/internal/dataset"
	"stealthcompany.com/labmerge/internal/exam"
	"stealthcompany.com/labmerge/internal/pipeline"
)

func lookupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find every exam of a patient in a merged dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			method, _ := cmd.Flags().GetString("method")
			input, _ := cmd.Flags().GetString("input")
			if input == "" {
				input = a.cfg.OutputPath
			}

			ds, err := dataset.Load(input, dataset.FormatJSON, exam.NewNormalizer(exam.AgeNullable))
			if err != nil {
				return err
			}
			if strings.EqualFold(strings.TrimSpace(method), pipeline.MethodBinary) {
				ds = ds.Sort()
			}

			hits, err := pipeline.Lookup(ds, name, method)
			if err != nil {
				return err
			}

			if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "Exams found for %s: %d\n", name, len(hits)); err != nil {
				return err
			}
			return dataset.New(hits).Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("name", "", "patient name, matched ignoring case")
	cmd.Flags().String("method", pipeline.MethodSequential, "sequential or binary")
	cmd.Flags().String("input", "", "merged JSON file (default OUTPUT_PATH)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
