package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medienwerk/credsheet/internal/credgen"
)

var (
	generateLength  int
	generateCount   int
	generateNoLower bool
	generateNoUpper bool
	generateNoDigit bool
	generateNoSym   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate passwords with the policy used for vault records",
	Long: `Generate one or more random passwords using the same policy that
fills ` + "`${generated}`" + ` markers in structure templates.`,
	Run: func(cmd *cobra.Command, args []string) {
		policy := credgen.Policy{
			Length: generateLength,
			Lower:  !generateNoLower,
			Upper:  !generateNoUpper,
			Digit:  !generateNoDigit,
			Symbol: !generateNoSym,
		}
		for i := 0; i < generateCount; i++ {
			secret, err := credgen.Generate(policy)
			if err != nil {
				fail("error: %v", err)
			}
			fmt.Println(secret)
		}
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateLength, "length", credgen.DefaultPolicy.Length, "password length")
	generateCmd.Flags().IntVar(&generateCount, "count", 1, "number of passwords")
	generateCmd.Flags().BoolVar(&generateNoLower, "no-lower", false, "exclude lowercase letters")
	generateCmd.Flags().BoolVar(&generateNoUpper, "no-upper", false, "exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoDigit, "no-digits", false, "exclude digits")
	generateCmd.Flags().BoolVar(&generateNoSym, "no-symbols", false, "exclude symbols")
	rootCmd.AddCommand(generateCmd)
}
