package cmd

import (
	"fmt"
	"strings"

	"exchange-ledger/cmd/ledger/config"
	"exchange-ledger/internal/normalizer"
	"exchange-ledger/internal/rates"
	"exchange-ledger/internal/reporter"
	"exchange-ledger/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate [<base> <target> <amount> <rate>]",
	Short: "Compute a conversion payable from a trader rate",
	Long: `Rate applies the conversion policy to an amount and a trader rate and prints
the payable in the target currency. Without arguments it lists the supported
currency pairs and whether the rate multiplies or divides.

Examples:
  ledger rate
  ledger rate RMB USD 50 7
  ledger rate USD IRR 1,000 42000`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 4 {
			return fmt.Errorf("accepts 0 or 4 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: runRate,
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) error {
	calc := rates.NewCalculator(nil)
	w := cmd.OutOrStdout()

	if len(args) == 0 {
		policy := rates.DefaultPolicy()
		for _, pair := range calc.Pairs() {
			fmt.Fprintf(w, "%-10s %s\n", pair, policy[pair])
		}
		return nil
	}

	base, target := args[0], args[1]

	amount, ok := normalizer.Number(args[2])
	if !ok {
		return errors.ValidationError(errors.CodeInvalidAmount, normalizer.FieldAmount, args[2], nil)
	}
	rate, ok := normalizer.Number(args[3])
	if !ok {
		return errors.ValidationError(errors.CodeInvalidAmount, normalizer.FieldTraderRate, args[3], nil)
	}

	pair := rates.NewPair(base, target)
	payable := calc.ComputePayable(base, target, amount, rate)
	if !payable.Valid {
		return errors.ValidationError(errors.CodeUnsupportedPair, normalizer.FieldPayable, pair.String(), nil).
			WithSuggestion(fmt.Sprintf("supported pairs: %s; enter the payable manually otherwise", supportedPairs(calc)))
	}

	tag, err := config.ParseLocale(viper.GetString("locale"))
	if err != nil {
		return err
	}
	numbers := reporter.NewNumberFormatter(tag)

	fmt.Fprintf(w, "%s %s × %s → %s %s\n",
		numbers.Format(amount), pair.Base, numbers.Format(rate), numbers.Format(payable), pair.Target)
	return nil
}

func supportedPairs(calc *rates.Calculator) string {
	pairs := calc.Pairs()
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}
