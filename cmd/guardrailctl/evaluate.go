package main

import (
	"github.com/spf13/cobra"

	"github.com/rmcmillan34/edge-journal/internal/playbook"
)

func newEvaluateCmd() *cobra.Command {
	var (
		templatePath string
		valuesPath   string
		intended     float64
		accountCap   float64
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score values against a template and resolve the risk cap",
		Example: `  guardrailctl evaluate -t template.yaml -v values.yaml --intended 0.8 --account-cap 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := readTemplate(templatePath)
			if err != nil {
				return err
			}
			values, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			in := playbook.EvaluateInput{
				Schema:             tpl.Schema,
				Values:             values,
				Thresholds:         tpl.GradeThresholds,
				Schedule:           tpl.RiskSchedule,
				TemplateMaxRiskPct: tpl.TemplateMaxRiskPct,
			}
			if cmd.Flags().Changed("intended") {
				in.IntendedRiskPct = playbook.Float(intended)
			}
			if cmd.Flags().Changed("account-cap") {
				in.AccountMaxRiskPct = playbook.Float(accountCap)
			}
			eval, err := playbook.Evaluate(in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), eval)
		},
	}
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "template YAML file")
	cmd.Flags().StringVarP(&valuesPath, "values", "v", "", "values YAML file")
	cmd.Flags().Float64Var(&intended, "intended", 0, "intended risk percent")
	cmd.Flags().Float64Var(&accountCap, "account-cap", 0, "account max risk percent")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
